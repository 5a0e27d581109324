package carpool

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuslink/resources-backend/internal/models"
)

// GormStore persists drivers, offers and passenger records with gorm.
// Inside Txn, single-row reads take FOR UPDATE locks so concurrent replicas
// serialize at the database even though each process also holds its
// in-memory resource lock.
type GormStore struct {
	db      *gorm.DB
	locking bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Txn(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, locking: true})
	})
}

func (s *GormStore) query(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx)
	if s.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *GormStore) CreateDriver(ctx context.Context, driver *models.Driver) error {
	return s.db.WithContext(ctx).Create(driver).Error
}

func (s *GormStore) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	var driver models.Driver
	if err := s.query(ctx).First(&driver, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &driver, nil
}

func (s *GormStore) UpdateDriver(ctx context.Context, driver *models.Driver) error {
	return s.db.WithContext(ctx).Save(driver).Error
}

func (s *GormStore) DriversByUser(ctx context.Context, userID uint) ([]models.Driver, error) {
	var drivers []models.Driver
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

func (s *GormStore) CreateOffer(ctx context.Context, offer *models.CarpoolOffer) error {
	return s.db.WithContext(ctx).Create(offer).Error
}

func (s *GormStore) GetOffer(ctx context.Context, id uint) (*models.CarpoolOffer, error) {
	var offer models.CarpoolOffer
	if err := s.query(ctx).First(&offer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (s *GormStore) UpdateOffer(ctx context.Context, offer *models.CarpoolOffer) error {
	return s.db.WithContext(ctx).Save(offer).Error
}

func (s *GormStore) ActiveOfferForEvent(ctx context.Context, driverID, eventID uint) (*models.CarpoolOffer, error) {
	var offer models.CarpoolOffer
	err := s.db.WithContext(ctx).
		Where("driver_id = ? AND event_id = ? AND status IN ?", driverID, eventID,
			[]models.OfferStatus{models.OfferStatusActive, models.OfferStatusFull}).
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (s *GormStore) OffersForEvent(ctx context.Context, eventID uint) ([]models.CarpoolOffer, error) {
	var offers []models.CarpoolOffer
	if err := s.db.WithContext(ctx).
		Preload("Driver").
		Where("event_id = ?", eventID).
		Order("departure_time").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *GormStore) OffersByDriver(ctx context.Context, driverID uint) ([]models.CarpoolOffer, error) {
	var offers []models.CarpoolOffer
	if err := s.db.WithContext(ctx).
		Where("driver_id = ?", driverID).
		Order("departure_time DESC").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *GormStore) OpenOffersDepartedBefore(ctx context.Context, cutoff time.Time) ([]models.CarpoolOffer, error) {
	var offers []models.CarpoolOffer
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND departure_time <= ?",
			[]models.OfferStatus{models.OfferStatusActive, models.OfferStatusFull}, cutoff).
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *GormStore) CreatePassenger(ctx context.Context, passenger *models.CarpoolPassenger) error {
	return s.db.WithContext(ctx).Create(passenger).Error
}

func (s *GormStore) UpdatePassenger(ctx context.Context, passenger *models.CarpoolPassenger) error {
	return s.db.WithContext(ctx).Save(passenger).Error
}

func (s *GormStore) PassengerOnOffer(ctx context.Context, offerID, passengerID uint) (*models.CarpoolPassenger, error) {
	var passenger models.CarpoolPassenger
	err := s.db.WithContext(ctx).
		Where("offer_id = ? AND passenger_id = ? AND status <> ?",
			offerID, passengerID, models.PassengerStatusCancelled).
		First(&passenger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &passenger, nil
}

func (s *GormStore) PassengersForOffer(ctx context.Context, offerID uint, statuses []models.PassengerStatus) ([]models.CarpoolPassenger, error) {
	var passengers []models.CarpoolPassenger
	q := s.db.WithContext(ctx).Where("offer_id = ?", offerID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("joined_at").Find(&passengers).Error; err != nil {
		return nil, err
	}
	return passengers, nil
}

func (s *GormStore) RidesByPassenger(ctx context.Context, passengerID uint) ([]models.CarpoolPassenger, error) {
	var rides []models.CarpoolPassenger
	if err := s.db.WithContext(ctx).
		Preload("Offer").
		Where("passenger_id = ?", passengerID).
		Order("joined_at DESC").
		Find(&rides).Error; err != nil {
		return nil, err
	}
	return rides, nil
}
