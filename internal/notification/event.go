package notification

import "log"

// EventType identifies a domain event that users are told about.
type EventType string

const (
	EventWelcome          EventType = "user.welcome"
	EventBookingCreated   EventType = "booking.created"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventClaimApproved    EventType = "claim.approved"
	EventClaimRejected    EventType = "claim.rejected"
)

// Event is a fire-and-forget message addressed to one user.
type Event struct {
	Type   EventType         `json:"type"`
	UserID string            `json:"user_id"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
}

// Notifier delivers events without blocking the caller. Delivery failures
// are logged by the implementation and never returned.
type Notifier interface {
	Notify(e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(Event) {}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n == nil {
			continue
		}
		n.Notify(e)
	}
}

// LogNotifier writes events to the standard logger. It is used when no push
// keys are configured.
type LogNotifier struct{}

func (LogNotifier) Notify(e Event) {
	log.Printf("notification %s for user %s: %s", e.Type, e.UserID, e.Title)
}
