package booking

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuslink/resources-backend/internal/models"
)

// GormStore persists rooms and rentals with gorm. Inside Txn, single-row
// reads take FOR UPDATE locks so concurrent replicas serialize at the
// database even though each process also holds its in-memory resource lock.
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

func (s *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	return s.db.WithContext(ctx).Create(room).Error
}

func (s *GormStore) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.query(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (s *GormStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	return s.db.WithContext(ctx).Save(room).Error
}

func (s *GormStore) EnabledRooms(ctx context.Context, minCapacity int) ([]models.Room, error) {
	var rooms []models.Room
	q := s.db.WithContext(ctx).Where("status = ?", models.RoomStatusEnabled)
	if minCapacity > 0 {
		q = q.Where("capacity >= ?", minCapacity)
	}
	if err := q.Order("name").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *GormStore) CreateRental(ctx context.Context, rental *models.RoomRental) error {
	return s.db.WithContext(ctx).Create(rental).Error
}

func (s *GormStore) GetRental(ctx context.Context, id uint) (*models.RoomRental, error) {
	var rental models.RoomRental
	if err := s.query(ctx).First(&rental, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rental, nil
}

func (s *GormStore) UpdateRental(ctx context.Context, rental *models.RoomRental) error {
	return s.db.WithContext(ctx).Save(rental).Error
}

func (s *GormStore) RentalsForRoom(ctx context.Context, roomID uint, statuses []models.RentalStatus) ([]models.RoomRental, error) {
	var rentals []models.RoomRental
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("start_time").Find(&rentals).Error; err != nil {
		return nil, err
	}
	return rentals, nil
}

func (s *GormStore) RentalsByRenter(ctx context.Context, renterID uint) ([]models.RoomRental, error) {
	var rentals []models.RoomRental
	if err := s.db.WithContext(ctx).
		Preload("Room").
		Where("renter_id = ?", renterID).
		Order("start_time DESC").
		Find(&rentals).Error; err != nil {
		return nil, err
	}
	return rentals, nil
}

func (s *GormStore) ApprovedRentalsEndingBefore(ctx context.Context, cutoff time.Time) ([]models.RoomRental, error) {
	var rentals []models.RoomRental
	if err := s.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", models.RentalStatusApproved, cutoff).
		Find(&rentals).Error; err != nil {
		return nil, err
	}
	return rentals, nil
}
