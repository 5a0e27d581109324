package carpool

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/campuslink/resources-backend/internal/clock"
	"github.com/campuslink/resources-backend/internal/locks"
	"github.com/campuslink/resources-backend/internal/models"
	"github.com/campuslink/resources-backend/internal/notify"
)

const (
	MinSeatCapacity = 1
	MaxSeatCapacity = 50
)

// Policy holds the configurable business decisions of the carpool core.
type Policy struct {
	// AutoApproveRoles lists caller roles whose driver registrations start
	// active instead of pending.
	AutoApproveRoles []string
}

func (p Policy) autoApproved(role string) bool {
	for _, r := range p.AutoApproveRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Service owns drivers, offers and passenger records. Seat mutations
// serialize per offer id: among concurrent joins only the remaining seat
// count succeeds, the rest get ErrSeatsUnavailable.
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

type RegisterDriverInput struct {
	Capacity          int
	VehicleType       string
	AccessibilityTags []string
	LicenseNumber     string // opaque encrypted value, stored untouched
}

// RegisterDriver creates a driver profile for the calling user. The profile
// starts pending unless the caller's role is auto-trusted by policy.
func (s *Service) RegisterDriver(ctx context.Context, userID uint, role string, in RegisterDriverInput) (*models.Driver, error) {
	if in.Capacity < MinSeatCapacity || in.Capacity > MaxSeatCapacity {
		return nil, makeErr(ErrInvalidArgument, fmt.Sprintf("capacity must be between %d and %d", MinSeatCapacity, MaxSeatCapacity))
	}
	if in.VehicleType == "" {
		return nil, makeErr(ErrInvalidArgument, "vehicle type is required")
	}

	status := models.DriverStatusPending
	if s.policy.autoApproved(role) {
		status = models.DriverStatusActive
	}

	driver := &models.Driver{
		UserID:            userID,
		Capacity:          in.Capacity,
		VehicleType:       in.VehicleType,
		Status:            status,
		AccessibilityTags: in.AccessibilityTags,
		LicenseNumber:     in.LicenseNumber,
	}
	if err := s.store.CreateDriver(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// ApproveDriver activates a pending or suspended driver. Admin only.
func (s *Service) ApproveDriver(ctx context.Context, role string, driverID uint) (*models.Driver, error) {
	if role != string(models.RoleAdmin) {
		log.Printf("driver %d: approval denied for role %s", driverID, role)
		return nil, makeErr(ErrNotAuthorized, "only an admin can approve drivers")
	}

	driver, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, makeErr(ErrNotFound, "driver not found")
	}
	if driver.Status == models.DriverStatusActive {
		return nil, makeErr(ErrInvalidTransition, "driver is already active")
	}

	driver.Status = models.DriverStatusActive
	driver.SuspensionReason = ""
	if err := s.store.UpdateDriver(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// SuspendDriver suspends a driver. Admin only. Suspension immediately
// freezes all of the driver's offers: JoinOffer re-reads driver status under
// the offer lock, so no new joins land while suspended. Confirmed
// passengers are left in place.
func (s *Service) SuspendDriver(ctx context.Context, role string, driverID uint, reason string) (*models.Driver, error) {
	if role != string(models.RoleAdmin) {
		log.Printf("driver %d: suspension denied for role %s", driverID, role)
		return nil, makeErr(ErrNotAuthorized, "only an admin can suspend drivers")
	}

	driver, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, makeErr(ErrNotFound, "driver not found")
	}
	if driver.Status == models.DriverStatusSuspended {
		return nil, makeErr(ErrInvalidTransition, "driver is already suspended")
	}

	driver.Status = models.DriverStatusSuspended
	driver.SuspensionReason = reason
	if err := s.store.UpdateDriver(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

type CreateOfferInput struct {
	EventID          uint
	DepartureInfo    string
	DepartureTime    time.Time
	DepartureAddress string
}

// CreateOffer creates a ride offer for one event, seeding the seat counter
// from the driver's vehicle capacity. The caller must own an active driver
// profile and hold no other active offer for the same event.
func (s *Service) CreateOffer(ctx context.Context, callerID uint, driverID uint, in CreateOfferInput) (*models.CarpoolOffer, error) {
	if in.EventID == 0 || in.DepartureInfo == "" {
		return nil, makeErr(ErrInvalidArgument, "event and departure info are required")
	}
	if !in.DepartureTime.After(s.clock.Now()) {
		return nil, makeErr(ErrInvalidArgument, "departure time must be in the future")
	}

	var offer *models.CarpoolOffer
	err := s.store.Txn(ctx, func(tx Store) error {
		driver, err := tx.GetDriver(ctx, driverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return makeErr(ErrNotFound, "driver not found")
		}
		if driver.UserID != callerID {
			log.Printf("driver %d: offer creation denied for user %d", driverID, callerID)
			return makeErr(ErrNotAuthorized, "driver profile belongs to another user")
		}
		if driver.Status != models.DriverStatusActive {
			return makeErr(ErrDriverNotActive, fmt.Sprintf("driver is %s", driver.Status))
		}

		existing, err := tx.ActiveOfferForEvent(ctx, driverID, in.EventID)
		if err != nil {
			return err
		}
		if existing != nil {
			return makeErr(ErrDuplicateOffer, "driver already has an active offer for this event")
		}

		offer = &models.CarpoolOffer{
			EventID:          in.EventID,
			DriverID:         driverID,
			SeatsAvailable:   driver.Capacity,
			DepartureInfo:    in.DepartureInfo,
			DepartureTime:    in.DepartureTime,
			DepartureAddress: in.DepartureAddress,
			Status:           models.OfferStatusActive,
		}
		return tx.CreateOffer(ctx, offer)
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

type JoinOfferInput struct {
	PickupLocation string
	Notes          string
}

// JoinOffer claims one seat on an offer. The seat decrement and the
// possible active-to-full transition commit as one atomic step per offer.
func (s *Service) JoinOffer(ctx context.Context, passengerID uint, offerID uint, in JoinOfferInput) (*models.CarpoolPassenger, error) {
	unlock := s.locks.Lock(locks.ResourceKey("offer", offerID))
	defer unlock()

	var passenger *models.CarpoolPassenger
	var becameFull bool
	var driverUserID uint
	err := s.store.Txn(ctx, func(tx Store) error {
		offer, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return makeErr(ErrNotFound, "offer not found")
		}

		driver, err := tx.GetDriver(ctx, offer.DriverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return makeErr(ErrNotFound, "driver not found")
		}
		driverUserID = driver.UserID

		if passengerID == driver.UserID {
			return makeErr(ErrSelfJoin, "drivers cannot join their own offer")
		}
		switch {
		case offer.Status.IsTerminal():
			return makeErr(ErrOfferNotActive, fmt.Sprintf("offer is %s", offer.Status))
		case driver.Status != models.DriverStatusActive:
			// Suspension freezes the offer without changing its row.
			return makeErr(ErrOfferNotActive, "driver is suspended")
		case offer.SeatsAvailable == 0:
			return makeErr(ErrSeatsUnavailable, "no seats left")
		}

		existing, err := tx.PassengerOnOffer(ctx, offerID, passengerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return makeErr(ErrAlreadyJoined, "passenger already joined this offer")
		}

		offer.SeatsAvailable--
		if offer.SeatsAvailable == 0 {
			offer.Status = models.OfferStatusFull
			becameFull = true
		}
		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return err
		}

		passenger = &models.CarpoolPassenger{
			OfferID:        offerID,
			PassengerID:    passengerID,
			Status:         models.PassengerStatusConfirmed,
			PickupLocation: in.PickupLocation,
			Notes:          in.Notes,
			JoinedAt:       s.clock.Now(),
		}
		return tx.CreatePassenger(ctx, passenger)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(driverUserID, notify.EventPassengerJoined, map[string]interface{}{
		"offerId":     offerID,
		"passengerId": passengerID,
	})
	if becameFull {
		s.notifier.Notify(driverUserID, notify.EventOfferFull, map[string]interface{}{
			"offerId": offerID,
		})
	}
	return passenger, nil
}

// LeaveOffer releases the caller's seat. A full offer reverts to active.
func (s *Service) LeaveOffer(ctx context.Context, passengerID uint, offerID uint) error {
	unlock := s.locks.Lock(locks.ResourceKey("offer", offerID))
	defer unlock()

	var driverUserID uint
	err := s.store.Txn(ctx, func(tx Store) error {
		offer, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return makeErr(ErrNotFound, "offer not found")
		}

		record, err := tx.PassengerOnOffer(ctx, offerID, passengerID)
		if err != nil {
			return err
		}
		if record == nil || record.Status != models.PassengerStatusConfirmed {
			return makeErr(ErrNotAPassenger, "no confirmed seat on this offer")
		}

		record.Status = models.PassengerStatusCancelled
		if err := tx.UpdatePassenger(ctx, record); err != nil {
			return err
		}

		offer.SeatsAvailable++
		if offer.Status == models.OfferStatusFull {
			offer.Status = models.OfferStatusActive
		}
		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return err
		}

		driver, err := tx.GetDriver(ctx, offer.DriverID)
		if err != nil {
			return err
		}
		if driver != nil {
			driverUserID = driver.UserID
		}
		return nil
	})
	if err != nil {
		return err
	}

	if driverUserID != 0 {
		s.notifier.Notify(driverUserID, notify.EventSeatFreed, map[string]interface{}{
			"offerId":     offerID,
			"passengerId": passengerID,
		})
	}
	return nil
}

// CancelOffer cancels an offer and cascades the cancellation to every
// confirmed passenger, notifying each of them. The driver is expected to
// have coordinated with riders beforehand; the core only emits the events.
func (s *Service) CancelOffer(ctx context.Context, callerID uint, role string, offerID uint) error {
	unlock := s.locks.Lock(locks.ResourceKey("offer", offerID))
	defer unlock()

	var affected []uint
	err := s.store.Txn(ctx, func(tx Store) error {
		offer, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if offer == nil {
			return makeErr(ErrNotFound, "offer not found")
		}

		driver, err := tx.GetDriver(ctx, offer.DriverID)
		if err != nil {
			return err
		}
		if driver == nil {
			return makeErr(ErrNotFound, "driver not found")
		}
		if driver.UserID != callerID && role != string(models.RoleAdmin) {
			log.Printf("offer %d: cancellation denied for user %d", offerID, callerID)
			return makeErr(ErrNotAuthorized, "only the offering driver or an admin can cancel")
		}
		if offer.Status.IsTerminal() {
			log.Printf("offer %d: cancel in state %s", offerID, offer.Status)
			return makeErr(ErrInvalidTransition, fmt.Sprintf("offer is %s", offer.Status))
		}

		offer.Status = models.OfferStatusCancelled
		if err := tx.UpdateOffer(ctx, offer); err != nil {
			return err
		}

		confirmed, err := tx.PassengersForOffer(ctx, offerID, []models.PassengerStatus{models.PassengerStatusConfirmed})
		if err != nil {
			return err
		}
		for i := range confirmed {
			confirmed[i].Status = models.PassengerStatusCancelled
			if err := tx.UpdatePassenger(ctx, &confirmed[i]); err != nil {
				return err
			}
			affected = append(affected, confirmed[i].PassengerID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, userID := range affected {
		s.notifier.Notify(userID, notify.EventRideCancelled, map[string]interface{}{
			"offerId": offerID,
		})
	}
	return nil
}

// GetOffer returns one offer.
func (s *Service) GetOffer(ctx context.Context, offerID uint) (*models.CarpoolOffer, error) {
	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, makeErr(ErrNotFound, "offer not found")
	}
	return offer, nil
}

// OffersForEvent lists offers proposed for an event.
func (s *Service) OffersForEvent(ctx context.Context, eventID uint) ([]models.CarpoolOffer, error) {
	return s.store.OffersForEvent(ctx, eventID)
}

// MyDrivers lists the caller's driver profiles.
func (s *Service) MyDrivers(ctx context.Context, userID uint) ([]models.Driver, error) {
	return s.store.DriversByUser(ctx, userID)
}

// MyOffers lists offers for one of the caller's driver profiles.
func (s *Service) MyOffers(ctx context.Context, callerID uint, driverID uint) ([]models.CarpoolOffer, error) {
	driver, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, makeErr(ErrNotFound, "driver not found")
	}
	if driver.UserID != callerID {
		return nil, makeErr(ErrNotAuthorized, "driver profile belongs to another user")
	}
	return s.store.OffersByDriver(ctx, driverID)
}

// OfferPassengers lists an offer's passenger records for its driver or an
// admin.
func (s *Service) OfferPassengers(ctx context.Context, callerID uint, role string, offerID uint) ([]models.CarpoolPassenger, error) {
	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, makeErr(ErrNotFound, "offer not found")
	}
	driver, err := s.store.GetDriver(ctx, offer.DriverID)
	if err != nil {
		return nil, err
	}
	if driver == nil || (driver.UserID != callerID && role != string(models.RoleAdmin)) {
		return nil, makeErr(ErrNotAuthorized, "only the offering driver or an admin can list passengers")
	}
	return s.store.PassengersForOffer(ctx, offerID, nil)
}

// MyRides lists the caller's join records across offers.
func (s *Service) MyRides(ctx context.Context, userID uint) ([]models.CarpoolPassenger, error) {
	return s.store.RidesByPassenger(ctx, userID)
}
