package carpool

import (
	"context"

	"github.com/campuslink/resources-backend/internal/locks"
	"github.com/campuslink/resources-backend/internal/models"
)

// CompleteDeparted marks active and full offers whose departure time has
// passed as completed, along with their confirmed passengers. It serializes
// per offer against concurrent join/leave/cancel calls and returns the
// number of offers completed.
func (s *Service) CompleteDeparted(ctx context.Context) (int, error) {
	departed, err := s.store.OpenOffersDepartedBefore(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, o := range departed {
		err := func() error {
			unlock := s.locks.Lock(locks.ResourceKey("offer", o.ID))
			defer unlock()

			return s.store.Txn(ctx, func(tx Store) error {
				offer, err := tx.GetOffer(ctx, o.ID)
				if err != nil {
					return err
				}
				// A cancel may have won the race since the scan.
				if offer == nil || offer.Status.IsTerminal() {
					return nil
				}
				offer.Status = models.OfferStatusCompleted
				if err := tx.UpdateOffer(ctx, offer); err != nil {
					return err
				}

				confirmed, err := tx.PassengersForOffer(ctx, offer.ID, []models.PassengerStatus{models.PassengerStatusConfirmed})
				if err != nil {
					return err
				}
				for i := range confirmed {
					confirmed[i].Status = models.PassengerStatusCompleted
					if err := tx.UpdatePassenger(ctx, &confirmed[i]); err != nil {
						return err
					}
				}
				completed++
				return nil
			})
		}()
		if err != nil {
			return completed, err
		}
	}
	return completed, nil
}
