package booking

import (
	"context"
	"fmt"
	"log"

	"github.com/campuslink/resources-backend/internal/clock"
	"github.com/campuslink/resources-backend/internal/locks"
	"github.com/campuslink/resources-backend/internal/models"
	"github.com/campuslink/resources-backend/internal/notify"
	"github.com/campuslink/resources-backend/pkg/utils"
)

// Policy holds the configurable business decisions of the booking core.
type Policy struct {
	// CascadeCancelOnDisable cancels all non-terminal rentals when a room
	// is disabled. When false, disabling only blocks new requests.
	CascadeCancelOnDisable bool
}

// Service owns rooms and rentals. Every mutating operation serializes per
// room id, so at most one writer observes and mutates a room's booking
// state at a time.
type Service struct {
	store    Store
	clock    clock.Clock
	notifier notify.Notifier
	locks    *locks.Keyed
	policy   Policy
}

func NewService(store Store, clk clock.Clock, notifier notify.Notifier, policy Policy) *Service {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Service{
		store:    store,
		clock:    clk,
		notifier: notifier,
		locks:    locks.NewKeyed(),
		policy:   policy,
	}
}

// blocking status sets for conflict checks
var (
	requestBlocking  = []models.RentalStatus{models.RentalStatusPending, models.RentalStatusApproved}
	approvalBlocking = []models.RentalStatus{models.RentalStatusApproved}
)

type CreateRoomInput struct {
	Name              string
	Address           string
	Capacity          int
	HourlyRate        *float64
	Availability      *Interval
}

// CreateRoom registers a room owned by the calling organizer.
func (s *Service) CreateRoom(ctx context.Context, organizerID uint, in CreateRoomInput) (*models.Room, error) {
	if in.Name == "" || in.Address == "" {
		return nil, makeErr(ErrInvalidArgument, "name and address are required")
	}
	if in.Capacity <= 0 {
		return nil, makeErr(ErrInvalidArgument, "capacity must be positive")
	}
	if in.HourlyRate != nil && *in.HourlyRate < 0 {
		return nil, makeErr(ErrInvalidArgument, "hourly rate must not be negative")
	}

	room := &models.Room{
		OrganizerID: organizerID,
		Name:        in.Name,
		Address:     in.Address,
		Capacity:    in.Capacity,
		HourlyRate:  in.HourlyRate,
		Status:      models.RoomStatusEnabled,
	}
	if in.Availability != nil {
		if !in.Availability.Valid() {
			return nil, makeErr(ErrInvalidArgument, "availability window must end after it starts")
		}
		start, end := in.Availability.Start, in.Availability.End
		room.AvailabilityStart = &start
		room.AvailabilityEnd = &end
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// SetRoomStatus changes a room's administrative status. Disabling blocks new
// requests immediately; whether live rentals are cascade-cancelled is a
// policy decision, not a hard rule of the core.
func (s *Service) SetRoomStatus(ctx context.Context, callerID uint, role string, roomID uint, status models.RoomStatus) (*models.Room, error) {
	switch status {
	case models.RoomStatusEnabled, models.RoomStatusDisabled, models.RoomStatusUnderMaintenance:
	default:
		return nil, makeErr(ErrInvalidArgument, "unknown room status")
	}

	unlock := s.locks.Lock(locks.ResourceKey("room", roomID))
	defer unlock()

	var room *models.Room
	var cancelled []models.RoomRental
	err := s.store.Txn(ctx, func(tx Store) error {
		var err error
		room, err = tx.GetRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room == nil {
			return makeErr(ErrNotFound, "room not found")
		}
		if room.OrganizerID != callerID && role != string(models.RoleAdmin) {
			log.Printf("room %d: status change denied for user %d", roomID, callerID)
			return makeErr(ErrNotAuthorized, "only the room organizer or an admin can change room status")
		}

		room.Status = status
		if err := tx.UpdateRoom(ctx, room); err != nil {
			return err
		}

		if status == models.RoomStatusDisabled && s.policy.CascadeCancelOnDisable {
			live, err := tx.RentalsForRoom(ctx, roomID, requestBlocking)
			if err != nil {
				return err
			}
			for i := range live {
				live[i].Status = models.RentalStatusCancelled
				live[i].OrganizerNotes = "room disabled"
				if err := tx.UpdateRental(ctx, &live[i]); err != nil {
					return err
				}
			}
			cancelled = live
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, r := range cancelled {
		s.notifier.Notify(r.RenterID, notify.EventRentalCancelled, map[string]interface{}{
			"rentalId": r.ID,
			"roomId":   r.RoomID,
			"reason":   "room disabled",
		})
	}
	return room, nil
}

type RentalRequest struct {
	RoomID            uint
	Interval          Interval
	Purpose           string
	ExpectedAttendees *int
}

// RequestRental admits a rental request against the room's pending and
// approved bookings and creates it in pending state.
func (s *Service) RequestRental(ctx context.Context, renterID uint, in RentalRequest) (*models.RoomRental, error) {
	if !in.Interval.Valid() {
		return nil, makeErr(ErrInvalidArgument, "end time must be after start time")
	}
	if !in.Interval.Start.After(s.clock.Now()) {
		return nil, makeErr(ErrInvalidArgument, "start time must be in the future")
	}

	unlock := s.locks.Lock(locks.ResourceKey("room", in.RoomID))
	defer unlock()

	var rental *models.RoomRental
	err := s.store.Txn(ctx, func(tx Store) error {
		room, err := tx.GetRoom(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return makeErr(ErrNotFound, "room not found")
		}
		if room.Status != models.RoomStatusEnabled {
			log.Printf("room %d: rental request while %s", room.ID, room.Status)
			return makeErr(ErrInvalidTransition, fmt.Sprintf("room is %s", room.Status))
		}
		if in.ExpectedAttendees != nil && *in.ExpectedAttendees > room.Capacity {
			return makeErr(ErrInvalidArgument, "expected attendees exceed room capacity")
		}
		if room.AvailabilityStart != nil && room.AvailabilityEnd != nil {
			window := Interval{Start: *room.AvailabilityStart, End: *room.AvailabilityEnd}
			if !window.Contains(in.Interval) {
				return makeErr(ErrSlotUnavailable, "outside the room's availability window")
			}
		}

		existing, err := tx.RentalsForRoom(ctx, in.RoomID, requestBlocking)
		if err != nil {
			return err
		}
		if conflicts := FindConflicts(existing, in.Interval); len(conflicts) > 0 {
			return makeErr(ErrSlotUnavailable, "an overlapping booking already exists")
		}

		rental = &models.RoomRental{
			RoomID:            in.RoomID,
			RenterID:          renterID,
			StartTime:         in.Interval.Start,
			EndTime:           in.Interval.End,
			Status:            models.RentalStatusPending,
			Purpose:           in.Purpose,
			ExpectedAttendees: in.ExpectedAttendees,
		}
		if room.HourlyRate != nil {
			cost := utils.RentalCost(in.Interval.Start, in.Interval.End, *room.HourlyRate)
			rental.TotalCost = &cost
		}
		return tx.CreateRental(ctx, rental)
	})
	if err != nil {
		return nil, err
	}
	return rental, nil
}

// ApproveRental transitions a pending rental to approved. Conflicts are
// re-checked against approved bookings only: two pending requests for the
// same slot can both have been admitted, and only one may win. The loser
// stays pending so the organizer rejects it explicitly and the audit trail
// survives.
func (s *Service) ApproveRental(ctx context.Context, callerID uint, role string, rentalID uint, note string) (*models.RoomRental, error) {
	probe, err := s.store.GetRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, makeErr(ErrNotFound, "rental not found")
	}

	unlock := s.locks.Lock(locks.ResourceKey("room", probe.RoomID))
	defer unlock()

	var rental *models.RoomRental
	err = s.store.Txn(ctx, func(tx Store) error {
		var err error
		rental, err = tx.GetRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental == nil {
			return makeErr(ErrNotFound, "rental not found")
		}

		room, err := tx.GetRoom(ctx, rental.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return makeErr(ErrNotFound, "room not found")
		}
		if room.OrganizerID != callerID && role != string(models.RoleAdmin) {
			log.Printf("rental %d: approval denied for user %d", rentalID, callerID)
			return makeErr(ErrNotAuthorized, "only the room organizer or an admin can approve")
		}
		if rental.Status != models.RentalStatusPending {
			log.Printf("rental %d: approve in state %s", rentalID, rental.Status)
			return makeErr(ErrInvalidTransition, fmt.Sprintf("rental is %s", rental.Status))
		}

		approved, err := tx.RentalsForRoom(ctx, rental.RoomID, approvalBlocking)
		if err != nil {
			return err
		}
		candidate := Interval{Start: rental.StartTime, End: rental.EndTime}
		for _, c := range FindConflicts(approved, candidate) {
			if c.ID != rental.ID {
				return makeErr(ErrSlotUnavailable, "an approved booking already holds this slot")
			}
		}

		rental.Status = models.RentalStatusApproved
		if note != "" {
			rental.OrganizerNotes = note
		}
		return tx.UpdateRental(ctx, rental)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(rental.RenterID, notify.EventRentalApproved, map[string]interface{}{
		"rentalId":  rental.ID,
		"roomId":    rental.RoomID,
		"startTime": rental.StartTime,
		"endTime":   rental.EndTime,
	})
	return rental, nil
}

// RejectRental transitions a pending rental to rejected.
func (s *Service) RejectRental(ctx context.Context, callerID uint, role string, rentalID uint, reason string) (*models.RoomRental, error) {
	probe, err := s.store.GetRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, makeErr(ErrNotFound, "rental not found")
	}

	unlock := s.locks.Lock(locks.ResourceKey("room", probe.RoomID))
	defer unlock()

	var rental *models.RoomRental
	err = s.store.Txn(ctx, func(tx Store) error {
		var err error
		rental, err = tx.GetRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental == nil {
			return makeErr(ErrNotFound, "rental not found")
		}

		room, err := tx.GetRoom(ctx, rental.RoomID)
		if err != nil {
			return err
		}
		if room == nil {
			return makeErr(ErrNotFound, "room not found")
		}
		if room.OrganizerID != callerID && role != string(models.RoleAdmin) {
			log.Printf("rental %d: rejection denied for user %d", rentalID, callerID)
			return makeErr(ErrNotAuthorized, "only the room organizer or an admin can reject")
		}
		if rental.Status != models.RentalStatusPending {
			log.Printf("rental %d: reject in state %s", rentalID, rental.Status)
			return makeErr(ErrInvalidTransition, fmt.Sprintf("rental is %s", rental.Status))
		}

		rental.Status = models.RentalStatusRejected
		rental.OrganizerNotes = reason
		return tx.UpdateRental(ctx, rental)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(rental.RenterID, notify.EventRentalRejected, map[string]interface{}{
		"rentalId": rental.ID,
		"roomId":   rental.RoomID,
		"reason":   reason,
	})
	return rental, nil
}

// CancelRental cancels a pending or approved rental. Only the renter or an
// admin may cancel, and only before the rental starts.
func (s *Service) CancelRental(ctx context.Context, callerID uint, role string, rentalID uint) (*models.RoomRental, error) {
	probe, err := s.store.GetRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, makeErr(ErrNotFound, "rental not found")
	}

	unlock := s.locks.Lock(locks.ResourceKey("room", probe.RoomID))
	defer unlock()

	var rental *models.RoomRental
	err = s.store.Txn(ctx, func(tx Store) error {
		var err error
		rental, err = tx.GetRental(ctx, rentalID)
		if err != nil {
			return err
		}
		if rental == nil {
			return makeErr(ErrNotFound, "rental not found")
		}
		if rental.RenterID != callerID && role != string(models.RoleAdmin) {
			log.Printf("rental %d: cancellation denied for user %d", rentalID, callerID)
			return makeErr(ErrNotAuthorized, "only the renter or an admin can cancel")
		}
		if rental.Status != models.RentalStatusPending && rental.Status != models.RentalStatusApproved {
			log.Printf("rental %d: cancel in state %s", rentalID, rental.Status)
			return makeErr(ErrInvalidTransition, fmt.Sprintf("rental is %s", rental.Status))
		}
		if !s.clock.Now().Before(rental.StartTime) {
			return makeErr(ErrTooLateToCancel, "rental has already started")
		}

		rental.Status = models.RentalStatusCancelled
		return tx.UpdateRental(ctx, rental)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(rental.RenterID, notify.EventRentalCancelled, map[string]interface{}{
		"rentalId": rental.ID,
		"roomId":   rental.RoomID,
	})
	return rental, nil
}

// AvailableRooms returns enabled rooms with no pending or approved booking
// overlapping the interval and capacity of at least minCapacity.
func (s *Service) AvailableRooms(ctx context.Context, iv Interval, minCapacity int) ([]models.Room, error) {
	if !iv.Valid() {
		return nil, makeErr(ErrInvalidArgument, "end time must be after start time")
	}
	if minCapacity < 0 {
		return nil, makeErr(ErrInvalidArgument, "minimum capacity must not be negative")
	}

	rooms, err := s.store.EnabledRooms(ctx, minCapacity)
	if err != nil {
		return nil, err
	}

	available := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		existing, err := s.store.RentalsForRoom(ctx, room.ID, requestBlocking)
		if err != nil {
			return nil, err
		}
		if len(FindConflicts(existing, iv)) == 0 {
			available = append(available, room)
		}
	}
	return available, nil
}

// GetRoom returns one room.
func (s *Service) GetRoom(ctx context.Context, roomID uint) (*models.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, makeErr(ErrNotFound, "room not found")
	}
	return room, nil
}

// RentalsForRoom lists a room's rentals for its organizer or an admin.
func (s *Service) RentalsForRoom(ctx context.Context, callerID uint, role string, roomID uint) ([]models.RoomRental, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, makeErr(ErrNotFound, "room not found")
	}
	if room.OrganizerID != callerID && role != string(models.RoleAdmin) {
		return nil, makeErr(ErrNotAuthorized, "only the room organizer or an admin can list rentals")
	}
	return s.store.RentalsForRoom(ctx, roomID, nil)
}

// MyRentals lists the caller's rentals.
func (s *Service) MyRentals(ctx context.Context, renterID uint) ([]models.RoomRental, error) {
	return s.store.RentalsByRenter(ctx, renterID)
}
