package booking

import (
	"context"
	"time"

	"github.com/campuslink/resources-backend/internal/models"
)

// Store is the persistence seam for the booking core. Implementations must
// return models.RoomRental rows without side effects; all business rules
// live in the Service. Txn runs fn against a store bound to one transaction,
// with any row reads inside it taken under a write lock.
type Store interface {
	Txn(ctx context.Context, fn func(Store) error) error

	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id uint) (*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	EnabledRooms(ctx context.Context, minCapacity int) ([]models.Room, error)

	CreateRental(ctx context.Context, rental *models.RoomRental) error
	GetRental(ctx context.Context, id uint) (*models.RoomRental, error)
	UpdateRental(ctx context.Context, rental *models.RoomRental) error
	RentalsForRoom(ctx context.Context, roomID uint, statuses []models.RentalStatus) ([]models.RoomRental, error)
	RentalsByRenter(ctx context.Context, renterID uint) ([]models.RoomRental, error)
	ApprovedRentalsEndingBefore(ctx context.Context, cutoff time.Time) ([]models.RoomRental, error)
}
