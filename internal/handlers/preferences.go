package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuslink/resources-backend/internal/models"
)

// GetNotificationPreferences returns the caller's notification settings
func GetNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var prefs models.NotificationPreference
		err := db.Where("user_id = ?", userID).First(&prefs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prefs = *models.DefaultPreferences(userID)
		} else if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load preferences"})
			return
		}

		c.JSON(200, prefs)
	}
}

// UpdateNotificationPreferences updates the caller's notification settings
func UpdateNotificationPreferences(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			PushEnabled   *bool `json:"pushEnabled"`
			RentalAlerts  *bool `json:"rentalAlerts"`
			CarpoolAlerts *bool `json:"carpoolAlerts"`
			EmailEnabled  *bool `json:"emailEnabled"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var prefs models.NotificationPreference
		err := db.Where("user_id = ?", userID).First(&prefs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prefs = *models.DefaultPreferences(userID)
		} else if err != nil {
			c.JSON(500, gin.H{"error": "Failed to load preferences"})
			return
		}

		if input.PushEnabled != nil {
			prefs.PushEnabled = *input.PushEnabled
		}
		if input.RentalAlerts != nil {
			prefs.RentalAlerts = *input.RentalAlerts
		}
		if input.CarpoolAlerts != nil {
			prefs.CarpoolAlerts = *input.CarpoolAlerts
		}
		if input.EmailEnabled != nil {
			prefs.EmailEnabled = *input.EmailEnabled
		}

		if err := db.Save(&prefs).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save preferences"})
			return
		}

		c.JSON(200, prefs)
	}
}
