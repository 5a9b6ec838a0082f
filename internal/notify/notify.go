// Package notify dispatches reminder events to the outside world. The
// reminder sweep plans who is due; this package only delivers. Delivery goes
// to a RabbitMQ topic exchange when a broker is configured, with a
// log-only fallback so the sweep keeps functioning in development setups
// without a broker.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Routing keys published on the reminder exchange.
const (
	// KeyReminderDue marks a "time to rebook" event for one pair.
	KeyReminderDue = "reminder.due"
)

// ReminderDueEvent is the wire payload for a due reminder. PreferredSlot is
// the pair's last appointment start, the "book the same time again"
// suggestion downstream channels render; it is omitted when history is gone.
type ReminderDueEvent struct {
	PrimaryUserID   string     `json:"primary_user_id"`
	SecondaryUserID string     `json:"secondary_user_id"`
	PreferredSlot   *time.Time `json:"preferred_slot,omitempty"`
	DueAt           time.Time  `json:"due_at"`
}

// Notifier delivers reminder events. Implementations must be safe for
// concurrent use; a nil error means the event was handed to the transport
// (the sweep records the reminder as sent only on success).
type Notifier interface {
	ReminderDue(ctx context.Context, ev ReminderDueEvent) error
	Close() error
}

// ConsoleNotifier is the broker-less fallback: it writes each event to the
// structured log and always succeeds.
type ConsoleNotifier struct{}

// ReminderDue logs the event.
func (ConsoleNotifier) ReminderDue(ctx context.Context, ev ReminderDueEvent) error {
	log.Ctx(ctx).Info().
		Str("primary_user_id", ev.PrimaryUserID).
		Str("secondary_user_id", ev.SecondaryUserID).
		Time("due_at", ev.DueAt).
		Msg("reminder due")
	return nil
}

// Close is a no-op.
func (ConsoleNotifier) Close() error { return nil }
