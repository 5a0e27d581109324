package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campuslink/resources-backend/internal/booking"
	"github.com/campuslink/resources-backend/internal/models"
	"github.com/campuslink/resources-backend/internal/notify"
	"github.com/campuslink/resources-backend/internal/services"
)

// CreateRoom handles room registration by organizers
func CreateRoom(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		if role != string(models.RoleOrganizer) && role != string(models.RoleAdmin) {
			c.JSON(403, gin.H{"error": "Only organizers can create rooms"})
			return
		}

		var input struct {
			Name              string     `json:"name" binding:"required"`
			Address           string     `json:"address" binding:"required"`
			Capacity          int        `json:"capacity" binding:"required"`
			HourlyRate        *float64   `json:"hourlyRate"`
			AvailabilityStart *time.Time `json:"availabilityStart"`
			AvailabilityEnd   *time.Time `json:"availabilityEnd"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		in := booking.CreateRoomInput{
			Name:       input.Name,
			Address:    input.Address,
			Capacity:   input.Capacity,
			HourlyRate: input.HourlyRate,
		}
		if input.AvailabilityStart != nil && input.AvailabilityEnd != nil {
			in.Availability = &booking.Interval{Start: *input.AvailabilityStart, End: *input.AvailabilityEnd}
		}

		room, err := svc.CreateRoom(c.Request.Context(), userID, in)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(201, room)
	}
}

// GetRoom returns one room
func GetRoom(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid room ID"})
			return
		}

		room, err := svc.GetRoom(c.Request.Context(), uint(roomID))
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(200, room)
	}
}

// GetAvailableRooms returns enabled rooms free over the requested interval.
// Search results are cached briefly in Redis; rental writes invalidate the
// cache, so a hit can only ever over-report by the cache TTL.
func GetAvailableRooms(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		start, err := time.Parse(time.RFC3339, c.Query("start"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid start time"})
			return
		}
		end, err := time.Parse(time.RFC3339, c.Query("end"))
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid end time"})
			return
		}

		minCapacity := 0
		if s := c.Query("minCapacity"); s != "" {
			minCapacity, err = strconv.Atoi(s)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid minimum capacity"})
				return
			}
		}

		ctx := c.Request.Context()
		if rooms, err := notify.GetCachedAvailableRooms(ctx, start, end, minCapacity); err == nil {
			c.JSON(200, gin.H{"rooms": rooms, "cached": true})
			return
		} else if err != redis.Nil {
			log.Printf("Availability cache lookup failed: %v", err)
		}

		rooms, err := svc.AvailableRooms(ctx, booking.Interval{Start: start, End: end}, minCapacity)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		if err := notify.CacheAvailableRooms(ctx, start, end, minCapacity, rooms); err != nil {
			log.Printf("Failed to cache availability result: %v", err)
		}

		c.JSON(200, gin.H{"rooms": rooms})
	}
}

// SetRoomStatus handles the administrative enable/disable/maintenance override
func SetRoomStatus(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid room ID"})
			return
		}

		var input struct {
			Status string `json:"status" binding:"required,oneof=enabled disabled under_maintenance"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		room, err := svc.SetRoomStatus(c.Request.Context(), userID, role, uint(roomID), models.RoomStatus(input.Status))
		if err != nil {
			respondBookingError(c, err)
			return
		}

		notify.InvalidateRoomAvailability(context.Background())

		c.JSON(200, room)
	}
}

// UploadRoomPhoto stores a room photo in S3 (or local fallback)
func UploadRoomPhoto(svc *booking.Service, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid room ID"})
			return
		}

		room, err := svc.GetRoom(c.Request.Context(), uint(roomID))
		if err != nil {
			respondBookingError(c, err)
			return
		}
		if room.OrganizerID != userID && role != string(models.RoleAdmin) {
			c.JSON(403, gin.H{"error": "Only the room organizer or an admin can upload photos"})
			return
		}

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "Photo file is required"})
			return
		}

		path, err := services.UploadImage(file, "rooms")
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to upload photo"})
			return
		}

		url := services.GetImageURL(path)
		if err := db.Model(&models.Room{}).Where("id = ?", roomID).Update("photo_url", url).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to save photo URL"})
			return
		}

		c.JSON(200, gin.H{"photoUrl": url})
	}
}
