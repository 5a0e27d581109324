package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DriverStatus string

const (
	DriverStatusPending   DriverStatus = "pending"
	DriverStatusActive    DriverStatus = "active"
	DriverStatusSuspended DriverStatus = "suspended"
)

// Driver is a user's capability to offer rides. A user may hold several
// driver profiles, one per vehicle. Suspension freezes all of the driver's
// offers without touching existing confirmed passengers.
type Driver struct {
	gorm.Model
	UserID            uint                         `json:"userId" gorm:"not null;index"`
	User              *User                        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Capacity          int                          `json:"capacity" gorm:"not null"`
	VehicleType       string                       `json:"vehicleType" gorm:"not null"`
	Status            DriverStatus                 `json:"status" gorm:"not null;default:'pending'"`
	AccessibilityTags datatypes.JSONSlice[string]  `json:"accessibilityTags,omitempty"`
	LicenseNumber     string                       `json:"-" gorm:"column:license_number"` // opaque encrypted value, passed through untouched
	SuspensionReason  string                       `json:"suspensionReason,omitempty"`
}

// TableName specifies the table name
func (Driver) TableName() string {
	return "drivers"
}

type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "active"
	OfferStatusFull      OfferStatus = "full"
	OfferStatusCancelled OfferStatus = "cancelled"
	OfferStatusCompleted OfferStatus = "completed"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusCancelled || s == OfferStatusCompleted
}

// CarpoolOffer is a driver's ride proposal for one event. SeatsAvailable is
// seeded from the driver's capacity and stays within [0, capacity]; the
// active/full split is a pure function of the remaining seats.
type CarpoolOffer struct {
	gorm.Model
	EventID          uint        `json:"eventId" gorm:"not null;index"`
	DriverID         uint        `json:"driverId" gorm:"not null;index"`
	Driver           *Driver     `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	SeatsAvailable   int         `json:"seatsAvailable" gorm:"not null"`
	DepartureInfo    string      `json:"departureInfo" gorm:"not null"`
	DepartureTime    time.Time   `json:"departureTime" gorm:"not null"`
	DepartureAddress string      `json:"departureAddress,omitempty"`
	Status           OfferStatus `json:"status" gorm:"not null;default:'active'"`
}

// TableName specifies the table name
func (CarpoolOffer) TableName() string {
	return "carpool_offers"
}

type PassengerStatus string

const (
	PassengerStatusPending   PassengerStatus = "pending"
	PassengerStatusConfirmed PassengerStatus = "confirmed"
	PassengerStatusCancelled PassengerStatus = "cancelled"
	PassengerStatusCompleted PassengerStatus = "completed"
)

// CarpoolPassenger is a join record for one offer. A passenger holds at most
// one non-cancelled record per offer.
type CarpoolPassenger struct {
	gorm.Model
	OfferID        uint            `json:"offerId" gorm:"not null;index"`
	Offer          *CarpoolOffer   `json:"offer,omitempty" gorm:"foreignKey:OfferID"`
	PassengerID    uint            `json:"passengerId" gorm:"not null;index"`
	Passenger      *User           `json:"passenger,omitempty" gorm:"foreignKey:PassengerID"`
	Status         PassengerStatus `json:"status" gorm:"not null;default:'confirmed'"`
	PickupLocation string          `json:"pickupLocation,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	JoinedAt       time.Time       `json:"joinedAt" gorm:"not null"`
}

// TableName specifies the table name
func (CarpoolPassenger) TableName() string {
	return "carpool_passengers"
}
