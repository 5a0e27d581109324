package booking

import (
	"context"

	"github.com/campuslink/resources-backend/internal/locks"
	"github.com/campuslink/resources-backend/internal/models"
)

// CompleteElapsed marks approved rentals whose end time has passed as
// completed. It serializes per room against concurrent approve/cancel calls
// and returns the number of rentals completed.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	elapsed, err := s.store.ApprovedRentalsEndingBefore(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, r := range elapsed {
		err := func() error {
			unlock := s.locks.Lock(locks.ResourceKey("room", r.RoomID))
			defer unlock()

			return s.store.Txn(ctx, func(tx Store) error {
				rental, err := tx.GetRental(ctx, r.ID)
				if err != nil {
					return err
				}
				// A cancel may have won the race since the scan.
				if rental == nil || rental.Status != models.RentalStatusApproved {
					return nil
				}
				rental.Status = models.RentalStatusCompleted
				if err := tx.UpdateRental(ctx, rental); err != nil {
					return err
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
