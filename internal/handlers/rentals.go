package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/resources-backend/internal/booking"
	"github.com/campuslink/resources-backend/internal/notify"
)

// RequestRental submits a rental request for a room time slot
func RequestRental(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			RoomID            uint      `json:"roomId" binding:"required"`
			StartTime         time.Time `json:"startTime" binding:"required"`
			EndTime           time.Time `json:"endTime" binding:"required"`
			Purpose           string    `json:"purpose"`
			ExpectedAttendees *int      `json:"expectedAttendees"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		rental, err := svc.RequestRental(c.Request.Context(), userID, booking.RentalRequest{
			RoomID:            input.RoomID,
			Interval:          booking.Interval{Start: input.StartTime, End: input.EndTime},
			Purpose:           input.Purpose,
			ExpectedAttendees: input.ExpectedAttendees,
		})
		if err != nil {
			respondBookingError(c, err)
			return
		}

		notify.InvalidateRoomAvailability(context.Background())

		c.JSON(201, rental)
	}
}

// ApproveRental lets the room organizer approve a pending request
func ApproveRental(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		rentalID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid rental ID"})
			return
		}

		var input struct {
			Note string `json:"note"`
		}
		c.ShouldBindJSON(&input)

		rental, err := svc.ApproveRental(c.Request.Context(), userID, role, uint(rentalID), input.Note)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(200, rental)
	}
}

// RejectRental lets the room organizer reject a pending request
func RejectRental(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		rentalID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid rental ID"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		c.ShouldBindJSON(&input)

		rental, err := svc.RejectRental(c.Request.Context(), userID, role, uint(rentalID), input.Reason)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(200, rental)
	}
}

// CancelRental cancels a pending or approved rental before it starts
func CancelRental(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		rentalID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid rental ID"})
			return
		}

		rental, err := svc.CancelRental(c.Request.Context(), userID, role, uint(rentalID))
		if err != nil {
			respondBookingError(c, err)
			return
		}

		notify.InvalidateRoomAvailability(context.Background())

		c.JSON(200, rental)
	}
}

// GetMyRentals lists the caller's rental requests
func GetMyRentals(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		rentals, err := svc.MyRentals(c.Request.Context(), userID)
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(200, gin.H{"rentals": rentals})
	}
}

// GetRoomRentals lists all rentals for a room the caller manages
func GetRoomRentals(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid room ID"})
			return
		}

		rentals, err := svc.RentalsForRoom(c.Request.Context(), userID, role, uint(roomID))
		if err != nil {
			respondBookingError(c, err)
			return
		}

		c.JSON(200, gin.H{"rentals": rentals})
	}
}
