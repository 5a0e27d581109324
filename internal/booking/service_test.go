package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campuslink/resources-backend/internal/clock"
	"github.com/campuslink/resources-backend/internal/models"
	"github.com/campuslink/resources-backend/internal/notify"
)

// memStore is an in-memory Store for tests. The service's per-room lock
// serializes mutations, so Txn just runs fn against the same store.
type memStore struct {
	mu           sync.Mutex
	rooms        map[uint]models.Room
	rentals      map[uint]models.RoomRental
	nextRoomID   uint
	nextRentalID uint
}

func newMemStore() *memStore {
	return &memStore{
		rooms:   make(map[uint]models.Room),
		rentals: make(map[uint]models.RoomRental),
	}
}

func (m *memStore) Txn(ctx context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *memStore) CreateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRoomID++
	room.ID = m.nextRoomID
	m.rooms[room.ID] = *room
	return nil
}

func (m *memStore) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[id]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

func (m *memStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ID] = *room
	return nil
}

func (m *memStore) EnabledRooms(ctx context.Context, minCapacity int) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Room
	for _, room := range m.rooms {
		if room.Status == models.RoomStatusEnabled && room.Capacity >= minCapacity {
			out = append(out, room)
		}
	}
	return out, nil
}

func (m *memStore) CreateRental(ctx context.Context, rental *models.RoomRental) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRentalID++
	rental.ID = m.nextRentalID
	m.rentals[rental.ID] = *rental
	return nil
}

func (m *memStore) GetRental(ctx context.Context, id uint) (*models.RoomRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rental, ok := m.rentals[id]
	if !ok {
		return nil, nil
	}
	return &rental, nil
}

func (m *memStore) UpdateRental(ctx context.Context, rental *models.RoomRental) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rentals[rental.ID] = *rental
	return nil
}

func (m *memStore) RentalsForRoom(ctx context.Context, roomID uint, statuses []models.RentalStatus) ([]models.RoomRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoomRental
	for _, r := range m.rentals {
		if r.RoomID != roomID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if r.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) RentalsByRenter(ctx context.Context, renterID uint) ([]models.RoomRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoomRental
	for _, r := range m.rentals {
		if r.RenterID == renterID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ApprovedRentalsEndingBefore(ctx context.Context, cutoff time.Time) ([]models.RoomRental, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoomRental
	for _, r := range m.rentals {
		if r.Status == models.RentalStatusApproved && !r.EndTime.After(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

// recorder captures emitted notifications
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	userID uint
	event  notify.Event
}

func (r *recorder) Notify(userID uint, event notify.Event, payload map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, event: event})
}

func (r *recorder) count(event notify.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.event == event {
			n++
		}
	}
	return n
}

const (
	organizerID = 1
	renterID    = 2
	otherID     = 3
)

var baseTime = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func newTestService(policy Policy) (*Service, *memStore, *clock.Fixed, *recorder) {
	store := newMemStore()
	clk := &clock.Fixed{Instant: baseTime}
	rec := &recorder{}
	return NewService(store, clk, rec, policy), store, clk, rec
}

func mustCreateRoom(t *testing.T, svc *Service, capacity int, rate *float64) *models.Room {
	t.Helper()
	room, err := svc.CreateRoom(context.Background(), organizerID, CreateRoomInput{
		Name:       "Lecture Hall B",
		Address:    "12 College Walk",
		Capacity:   capacity,
		HourlyRate: rate,
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	return room
}

func slot(startHour, endHour int) Interval {
	return Interval{
		Start: baseTime.Add(time.Duration(startHour-8) * time.Hour),
		End:   baseTime.Add(time.Duration(endHour-8) * time.Hour),
	}
}

func TestRequestRentalComputesCostAndStaysPending(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	rate := 25.0
	room := mustCreateRoom(t, svc, 20, &rate)

	rental, err := svc.RequestRental(context.Background(), renterID, RentalRequest{
		RoomID:   room.ID,
		Interval: slot(14, 16),
		Purpose:  "club meeting",
	})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}
	if rental.Status != models.RentalStatusPending {
		t.Errorf("status = %s, want %s", rental.Status, models.RentalStatusPending)
	}
	if rental.TotalCost == nil || *rental.TotalCost != 50.0 {
		t.Errorf("total cost = %v, want 50.00", rental.TotalCost)
	}
}

func TestOverlappingRequestRejected(t *testing.T) {
	svc, _, _, rec := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	first, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}
	if _, err := svc.ApproveRental(ctx, organizerID, string(models.RoleOrganizer), first.ID, ""); err != nil {
		t.Fatalf("ApproveRental: %v", err)
	}
	if rec.count(notify.EventRentalApproved) != 1 {
		t.Error("expected one approval notification")
	}

	_, err = svc.RequestRental(ctx, otherID, RentalRequest{RoomID: room.ID, Interval: slot(15, 17)})
	if Code(err) != ErrSlotUnavailable {
		t.Errorf("overlapping request: code = %q, want %q", Code(err), ErrSlotUnavailable)
	}
}

func TestBackToBackRequestsBothAdmitted(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	first, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(10, 12)})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := svc.ApproveRental(ctx, organizerID, string(models.RoleOrganizer), first.ID, ""); err != nil {
		t.Fatalf("ApproveRental: %v", err)
	}

	if _, err := svc.RequestRental(ctx, otherID, RentalRequest{RoomID: room.ID, Interval: slot(12, 14)}); err != nil {
		t.Errorf("back-to-back request rejected: %v", err)
	}
}

func TestRequestRentalValidation(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	rate := 10.0
	room := mustCreateRoom(t, svc, 5, &rate)
	ctx := context.Background()

	reversed := Interval{Start: slot(14, 16).End, End: slot(14, 16).Start}
	if _, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: reversed}); Code(err) != ErrInvalidArgument {
		t.Errorf("reversed interval: code = %q, want %q", Code(err), ErrInvalidArgument)
	}

	past := Interval{Start: baseTime.Add(-2 * time.Hour), End: baseTime.Add(-time.Hour)}
	if _, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: past}); Code(err) != ErrInvalidArgument {
		t.Errorf("past start: code = %q, want %q", Code(err), ErrInvalidArgument)
	}

	crowd := 6
	if _, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16), ExpectedAttendees: &crowd}); Code(err) != ErrInvalidArgument {
		t.Errorf("attendees over capacity: code = %q, want %q", Code(err), ErrInvalidArgument)
	}

	if _, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: 999, Interval: slot(14, 16)}); Code(err) != ErrNotFound {
		t.Errorf("missing room: code = %q, want %q", Code(err), ErrNotFound)
	}
}

func TestDisabledRoomRejectsRequests(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	if _, err := svc.SetRoomStatus(ctx, organizerID, string(models.RoleOrganizer), room.ID, models.RoomStatusDisabled); err != nil {
		t.Fatalf("SetRoomStatus: %v", err)
	}

	_, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if Code(err) != ErrInvalidTransition {
		t.Errorf("request on disabled room: code = %q, want %q", Code(err), ErrInvalidTransition)
	}
}

func TestAvailabilityWindowEnforced(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	window := slot(9, 17)
	room, err := svc.CreateRoom(context.Background(), organizerID, CreateRoomInput{
		Name:         "Seminar Room",
		Address:      "4 Quad Lane",
		Capacity:     10,
		Availability: &window,
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	if _, err := svc.RequestRental(context.Background(), renterID, RentalRequest{RoomID: room.ID, Interval: slot(10, 12)}); err != nil {
		t.Errorf("request inside window rejected: %v", err)
	}
	_, err = svc.RequestRental(context.Background(), renterID, RentalRequest{RoomID: room.ID, Interval: slot(16, 18)})
	if Code(err) != ErrSlotUnavailable {
		t.Errorf("request outside window: code = %q, want %q", Code(err), ErrSlotUnavailable)
	}
}

func TestApprovalRaceLoserStaysPending(t *testing.T) {
	svc, store, _, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	// Both requests are admitted while nothing is approved yet.
	a, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	b, err := svc.RequestRental(ctx, otherID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if _, err := svc.ApproveRental(ctx, organizerID, string(models.RoleOrganizer), a.ID, ""); err != nil {
		t.Fatalf("approving winner: %v", err)
	}

	_, err = svc.ApproveRental(ctx, organizerID, string(models.RoleOrganizer), b.ID, "")
	if Code(err) != ErrSlotUnavailable {
		t.Errorf("approving loser: code = %q, want %q", Code(err), ErrSlotUnavailable)
	}

	loser, _ := store.GetRental(ctx, b.ID)
	if loser.Status != models.RentalStatusPending {
		t.Errorf("loser status = %s, want %s", loser.Status, models.RentalStatusPending)
	}
}

func TestApproveAuthorizationAndState(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	rental, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}

	if _, err := svc.ApproveRental(ctx, otherID, string(models.RoleStudent), rental.ID, ""); Code(err) != ErrNotAuthorized {
		t.Errorf("stranger approval: code = %q, want %q", Code(err), ErrNotAuthorized)
	}

	if _, err := svc.RejectRental(ctx, organizerID, string(models.RoleOrganizer), rental.ID, "double booked"); err != nil {
		t.Fatalf("RejectRental: %v", err)
	}
	if _, err := svc.ApproveRental(ctx, organizerID, string(models.RoleOrganizer), rental.ID, ""); Code(err) != ErrInvalidTransition {
		t.Errorf("approve after reject: code = %q, want %q", Code(err), ErrInvalidTransition)
	}
}

func TestCancelRental(t *testing.T) {
	svc, _, clk, rec := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	rental, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}

	if _, err := svc.CancelRental(ctx, otherID, string(models.RoleStudent), rental.ID); Code(err) != ErrNotAuthorized {
		t.Errorf("stranger cancel: code = %q, want %q", Code(err), ErrNotAuthorized)
	}

	cancelled, err := svc.CancelRental(ctx, renterID, string(models.RoleStudent), rental.ID)
	if err != nil {
		t.Fatalf("CancelRental: %v", err)
	}
	if cancelled.Status != models.RentalStatusCancelled {
		t.Errorf("status = %s, want %s", cancelled.Status, models.RentalStatusCancelled)
	}
	if rec.count(notify.EventRentalCancelled) != 1 {
		t.Error("expected one cancellation notification")
	}

	if _, err := svc.CancelRental(ctx, renterID, string(models.RoleStudent), rental.ID); Code(err) != ErrInvalidTransition {
		t.Errorf("second cancel: code = %q, want %q", Code(err), ErrInvalidTransition)
	}

	// A slot freed by cancellation is bookable again.
	late, err := svc.RequestRental(ctx, otherID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("request after cancel: %v", err)
	}

	clk.Advance(7 * time.Hour) // past the 14:00 start
	if _, err := svc.CancelRental(ctx, otherID, string(models.RoleStudent), late.ID); Code(err) != ErrTooLateToCancel {
		t.Errorf("cancel after start: code = %q, want %q", Code(err), ErrTooLateToCancel)
	}
}

func TestCascadeCancelOnDisable(t *testing.T) {
	svc, store, _, rec := newTestService(Policy{CascadeCancelOnDisable: true})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	rental, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}

	if _, err := svc.SetRoomStatus(ctx, organizerID, string(models.RoleOrganizer), room.ID, models.RoomStatusDisabled); err != nil {
		t.Fatalf("SetRoomStatus: %v", err)
	}

	got, _ := store.GetRental(ctx, rental.ID)
	if got.Status != models.RentalStatusCancelled {
		t.Errorf("status after disable = %s, want %s", got.Status, models.RentalStatusCancelled)
	}
	if rec.count(notify.EventRentalCancelled) != 1 {
		t.Error("expected one cancellation notification for the cascaded rental")
	}
}

func TestDisableWithoutCascadeKeepsRentals(t *testing.T) {
	svc, store, _, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	rental, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}

	if _, err := svc.SetRoomStatus(ctx, organizerID, string(models.RoleOrganizer), room.ID, models.RoomStatusDisabled); err != nil {
		t.Fatalf("SetRoomStatus: %v", err)
	}

	got, _ := store.GetRental(ctx, rental.ID)
	if got.Status != models.RentalStatusPending {
		t.Errorf("status after disable = %s, want %s", got.Status, models.RentalStatusPending)
	}
}

func TestAvailableRooms(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	ctx := context.Background()

	big := mustCreateRoom(t, svc, 50, nil)
	small := mustCreateRoom(t, svc, 5, nil)

	if _, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: big.ID, Interval: slot(14, 16)}); err != nil {
		t.Fatalf("RequestRental: %v", err)
	}

	rooms, err := svc.AvailableRooms(ctx, slot(15, 17), 0)
	if err != nil {
		t.Fatalf("AvailableRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != small.ID {
		t.Errorf("expected only the unbooked room, got %d rooms", len(rooms))
	}

	rooms, err = svc.AvailableRooms(ctx, slot(15, 17), 10)
	if err != nil {
		t.Fatalf("AvailableRooms: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected no rooms with capacity 10 free, got %d", len(rooms))
	}

	rooms, err = svc.AvailableRooms(ctx, slot(16, 18), 10)
	if err != nil {
		t.Fatalf("AvailableRooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != big.ID {
		t.Errorf("expected the big room free after its booking, got %d rooms", len(rooms))
	}
}

func TestConcurrentRequestsOneWinner(t *testing.T) {
	svc, _, _, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			_, err := svc.RequestRental(ctx, user, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
			results <- err
		}(uint(100 + i))
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case Code(err) == ErrSlotUnavailable:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if conflicts != workers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, workers-1)
	}
}

func TestCompleteElapsed(t *testing.T) {
	svc, store, clk, _ := newTestService(Policy{})
	room := mustCreateRoom(t, svc, 20, nil)
	ctx := context.Background()

	rental, err := svc.RequestRental(ctx, renterID, RentalRequest{RoomID: room.ID, Interval: slot(14, 16)})
	if err != nil {
		t.Fatalf("RequestRental: %v", err)
	}
	if _, err := svc.ApproveRental(ctx, organizerID, string(models.RoleOrganizer), rental.ID, ""); err != nil {
		t.Fatalf("ApproveRental: %v", err)
	}

	if n, err := svc.CompleteElapsed(ctx); err != nil || n != 0 {
		t.Fatalf("sweep before end: n=%d err=%v, want 0, nil", n, err)
	}

	clk.Advance(10 * time.Hour) // past the 16:00 end
	n, err := svc.CompleteElapsed(ctx)
	if err != nil {
		t.Fatalf("CompleteElapsed: %v", err)
	}
	if n != 1 {
		t.Errorf("completed = %d, want 1", n)
	}

	got, _ := store.GetRental(ctx, rental.ID)
	if got.Status != models.RentalStatusCompleted {
		t.Errorf("status = %s, want %s", got.Status, models.RentalStatusCompleted)
	}
}
