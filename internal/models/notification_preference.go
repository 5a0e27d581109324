package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationPreference represents user notification preferences
type NotificationPreference struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"userId"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// General push notification toggle
	PushEnabled bool `gorm:"column:push_enabled;default:true" json:"pushEnabled"`

	// Specific notification preferences
	RentalAlerts  bool `gorm:"column:rental_alerts;default:true" json:"rentalAlerts"`
	CarpoolAlerts bool `gorm:"column:carpool_alerts;default:true" json:"carpoolAlerts"`

	// Email preferences
	EmailEnabled bool `gorm:"column:email_enabled;default:true" json:"emailEnabled"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:        userID,
		PushEnabled:   true,
		RentalAlerts:  true,
		CarpoolAlerts: true,
		EmailEnabled:  true,
	}
}
