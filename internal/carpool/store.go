package carpool

import (
	"context"
	"time"

	"github.com/campuslink/resources-backend/internal/models"
)

// Store is the persistence seam for the carpool core. Txn runs fn against a
// store bound to one transaction, with single-row reads inside it taken
// under a write lock.
type Store interface {
	Txn(ctx context.Context, fn func(Store) error) error

	CreateDriver(ctx context.Context, driver *models.Driver) error
	GetDriver(ctx context.Context, id uint) (*models.Driver, error)
	UpdateDriver(ctx context.Context, driver *models.Driver) error
	DriversByUser(ctx context.Context, userID uint) ([]models.Driver, error)

	CreateOffer(ctx context.Context, offer *models.CarpoolOffer) error
	GetOffer(ctx context.Context, id uint) (*models.CarpoolOffer, error)
	UpdateOffer(ctx context.Context, offer *models.CarpoolOffer) error
	ActiveOfferForEvent(ctx context.Context, driverID, eventID uint) (*models.CarpoolOffer, error)
	OffersForEvent(ctx context.Context, eventID uint) ([]models.CarpoolOffer, error)
	OffersByDriver(ctx context.Context, driverID uint) ([]models.CarpoolOffer, error)
	OpenOffersDepartedBefore(ctx context.Context, cutoff time.Time) ([]models.CarpoolOffer, error)

	CreatePassenger(ctx context.Context, passenger *models.CarpoolPassenger) error
	UpdatePassenger(ctx context.Context, passenger *models.CarpoolPassenger) error
	PassengerOnOffer(ctx context.Context, offerID, passengerID uint) (*models.CarpoolPassenger, error)
	PassengersForOffer(ctx context.Context, offerID uint, statuses []models.PassengerStatus) ([]models.CarpoolPassenger, error)
	RidesByPassenger(ctx context.Context, passengerID uint) ([]models.CarpoolPassenger, error)
}
