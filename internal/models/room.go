package models

import (
	"time"

	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomStatusEnabled          RoomStatus = "enabled"
	RoomStatusDisabled         RoomStatus = "disabled"
	RoomStatusUnderMaintenance RoomStatus = "under_maintenance"
)

// Room represents a physical room that can be rented for events.
// Rentals keep their room reference even after the room is disabled.
type Room struct {
	gorm.Model
	OrganizerID       uint       `json:"organizerId" gorm:"not null;index"`
	Organizer         *User      `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID"`
	Name              string     `json:"name" gorm:"not null"`
	Address           string     `json:"address" gorm:"not null"`
	Capacity          int        `json:"capacity" gorm:"not null"`
	HourlyRate        *float64   `json:"hourlyRate,omitempty"`
	Status            RoomStatus `json:"status" gorm:"not null;default:'enabled'"`
	AvailabilityStart *time.Time `json:"availabilityStart,omitempty"`
	AvailabilityEnd   *time.Time `json:"availabilityEnd,omitempty"`
	PhotoURL          string     `json:"photoUrl,omitempty"`
}

// TableName specifies the table name
func (Room) TableName() string {
	return "rooms"
}
