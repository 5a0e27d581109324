package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/resources-backend/internal/carpool"
)

// RegisterDriver creates a driver profile for the caller
func RegisterDriver(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		var input struct {
			Capacity          int      `json:"capacity" binding:"required"`
			VehicleType       string   `json:"vehicleType"`
			AccessibilityTags []string `json:"accessibilityTags"`
			LicenseNumber     string   `json:"licenseNumber"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		driver, err := svc.RegisterDriver(c.Request.Context(), userID, role, carpool.RegisterDriverInput{
			Capacity:          input.Capacity,
			VehicleType:       input.VehicleType,
			AccessibilityTags: input.AccessibilityTags,
			LicenseNumber:     input.LicenseNumber,
		})
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(201, driver)
	}
}

// ApproveDriver activates a pending or suspended driver (admin only)
func ApproveDriver(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")

		driverID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver ID"})
			return
		}

		driver, err := svc.ApproveDriver(c.Request.Context(), role, uint(driverID))
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, driver)
	}
}

// SuspendDriver suspends a driver (admin only)
func SuspendDriver(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")

		driverID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver ID"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		c.ShouldBindJSON(&input)

		driver, err := svc.SuspendDriver(c.Request.Context(), role, uint(driverID), input.Reason)
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, driver)
	}
}

// CreateOffer publishes a carpool offer for an event
func CreateOffer(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			DriverID         uint      `json:"driverId" binding:"required"`
			EventID          uint      `json:"eventId" binding:"required"`
			DepartureInfo    string    `json:"departureInfo"`
			DepartureTime    time.Time `json:"departureTime" binding:"required"`
			DepartureAddress string    `json:"departureAddress"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		offer, err := svc.CreateOffer(c.Request.Context(), userID, input.DriverID, carpool.CreateOfferInput{
			EventID:          input.EventID,
			DepartureInfo:    input.DepartureInfo,
			DepartureTime:    input.DepartureTime,
			DepartureAddress: input.DepartureAddress,
		})
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(201, offer)
	}
}

// GetEventOffers lists open offers for an event
func GetEventOffers(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := strconv.ParseUint(c.Param("eventId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid event ID"})
			return
		}

		offers, err := svc.OffersForEvent(c.Request.Context(), uint(eventID))
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"offers": offers})
	}
}

// JoinOffer claims a seat on an offer
func JoinOffer(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		offerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid offer ID"})
			return
		}

		var input struct {
			PickupLocation string `json:"pickupLocation"`
			Notes          string `json:"notes"`
		}
		c.ShouldBindJSON(&input)

		passenger, err := svc.JoinOffer(c.Request.Context(), userID, uint(offerID), carpool.JoinOfferInput{
			PickupLocation: input.PickupLocation,
			Notes:          input.Notes,
		})
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(201, passenger)
	}
}

// LeaveOffer releases the caller's seat on an offer
func LeaveOffer(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		offerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid offer ID"})
			return
		}

		if err := svc.LeaveOffer(c.Request.Context(), userID, uint(offerID)); err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Left the ride"})
	}
}

// CancelOffer cancels an offer and releases its passengers
func CancelOffer(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		offerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid offer ID"})
			return
		}

		if err := svc.CancelOffer(c.Request.Context(), userID, role, uint(offerID)); err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"message": "Offer cancelled"})
	}
}

// GetMyDrivers lists the caller's driver profiles
func GetMyDrivers(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		drivers, err := svc.MyDrivers(c.Request.Context(), userID)
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"drivers": drivers})
	}
}

// GetMyOffers lists the offers published by one of the caller's driver profiles
func GetMyOffers(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		driverID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid driver ID"})
			return
		}

		offers, err := svc.MyOffers(c.Request.Context(), userID, uint(driverID))
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"offers": offers})
	}
}

// GetOfferPassengers lists confirmed passengers on an offer
func GetOfferPassengers(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		offerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid offer ID"})
			return
		}

		passengers, err := svc.OfferPassengers(c.Request.Context(), userID, role, uint(offerID))
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"passengers": passengers})
	}
}

// GetMyRides lists the caller's ride participations
func GetMyRides(svc *carpool.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		rides, err := svc.MyRides(c.Request.Context(), userID)
		if err != nil {
			respondCarpoolError(c, err)
			return
		}

		c.JSON(200, gin.H{"rides": rides})
	}
}
