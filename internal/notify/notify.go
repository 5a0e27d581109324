// Package notify defines the notification events the booking and carpool
// cores emit. Delivery is fire-and-forget; sinks decide transport.
package notify

type Event string

const (
	EventRentalApproved  Event = "rental_approved"
	EventRentalRejected  Event = "rental_rejected"
	EventRentalCancelled Event = "rental_cancelled"
	EventOfferFull       Event = "offer_full"
	EventSeatFreed       Event = "seat_freed"
	EventRideCancelled   Event = "ride_cancelled"
	EventPassengerJoined Event = "passenger_joined"
	EventPassengerLeft   Event = "passenger_left"
)

// Notifier accepts structured events for asynchronous delivery. Sinks must
// never block the emitting operation; failures are a sink concern.
type Notifier interface {
	Notify(userID uint, event Event, payload map[string]interface{})
}

// Multi fans an event out to several sinks.
type Multi []Notifier

func (m Multi) Notify(userID uint, event Event, payload map[string]interface{}) {
	for _, n := range m {
		n.Notify(userID, event, payload)
	}
}

// Discard drops every event. Useful where no sink is configured.
type Discard struct{}

func (Discard) Notify(uint, Event, map[string]interface{}) {}
