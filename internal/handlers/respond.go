package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/resources-backend/internal/booking"
	"github.com/campuslink/resources-backend/internal/carpool"
)

// HTTP status per error code. Contention codes map to 409: expected under
// load, the client should try another slot or ride.
var statusByCode = map[string]int{
	"INVALID_ARGUMENT":         400,
	"NOT_AUTHORIZED":           403,
	"NOT_FOUND":                404,
	"SLOT_UNAVAILABLE":         409,
	"SEATS_UNAVAILABLE":        409,
	"DUPLICATE_OFFER":          409,
	"ALREADY_JOINED":           409,
	"INVALID_STATE_TRANSITION": 409,
	"TOO_LATE_TO_CANCEL":       409,
	"DRIVER_NOT_ACTIVE":        409,
	"OFFER_NOT_ACTIVE":         409,
	"SELF_JOIN":                400,
	"NOT_A_PASSENGER":          404,
}

func respondBookingError(c *gin.Context, err error) {
	code := string(booking.Code(err))
	if status, ok := statusByCode[code]; ok {
		c.JSON(status, gin.H{"error": err.Error(), "code": code})
		return
	}
	c.JSON(500, gin.H{"error": "Internal server error"})
}

func respondCarpoolError(c *gin.Context, err error) {
	code := string(carpool.Code(err))
	if status, ok := statusByCode[code]; ok {
		c.JSON(status, gin.H{"error": err.Error(), "code": code})
		return
	}
	c.JSON(500, gin.H{"error": "Internal server error"})
}
