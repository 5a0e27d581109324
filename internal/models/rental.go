package models

import (
	"time"

	"gorm.io/gorm"
)

type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "pending"
	RentalStatusApproved  RentalStatus = "approved"
	RentalStatusRejected  RentalStatus = "rejected"
	RentalStatusCancelled RentalStatus = "cancelled"
	RentalStatusCompleted RentalStatus = "completed"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s RentalStatus) IsTerminal() bool {
	return s == RentalStatusRejected || s == RentalStatusCancelled || s == RentalStatusCompleted
}

// RoomRental is a booking request for a room over a half-open interval
// [StartTime, EndTime). For any room, rentals in {pending, approved} must
// have pairwise non-overlapping intervals.
type RoomRental struct {
	gorm.Model
	RoomID            uint         `json:"roomId" gorm:"not null;index"`
	Room              *Room        `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	RenterID          uint         `json:"renterId" gorm:"not null;index"`
	Renter            *User        `json:"renter,omitempty" gorm:"foreignKey:RenterID"`
	StartTime         time.Time    `json:"startTime" gorm:"not null"`
	EndTime           time.Time    `json:"endTime" gorm:"not null"`
	Status            RentalStatus `json:"status" gorm:"not null;default:'pending'"`
	Purpose           string       `json:"purpose,omitempty"`
	ExpectedAttendees *int         `json:"expectedAttendees,omitempty"`
	TotalCost         *float64     `json:"totalCost,omitempty"`
	OrganizerNotes    string       `json:"organizerNotes,omitempty"`
}

// TableName specifies the table name
func (RoomRental) TableName() string {
	return "room_rentals"
}
