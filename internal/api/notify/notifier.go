package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nepabhay/account-service/internal/types"
)

// Event identifies which lifecycle transition the account owner is being
// told about.
type Event string

const (
	EventDeactivated       Event = "deactivated"
	EventReactivated       Event = "reactivated"
	EventDeletionScheduled Event = "deletion_scheduled"
	EventDeletionCancelled Event = "deletion_cancelled"
	EventBlocked           Event = "blocked"
	EventUnblocked         Event = "unblocked"
)

// Notification carries everything a delivery channel needs to compose a
// message. PurgeDate is set only for EventDeletionScheduled.
type Notification struct {
	Event     Event
	Reason    string
	PurgeDate time.Time
}

// Notifier delivers a lifecycle notification to the account owner. Delivery
// failure is the notifier's problem to log; it must never surface to the
// caller as a failure of the state transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, acct *types.Account, n Notification)
}

// Dispatch invokes the notifier on its own goroutine with a fresh timeout
// context, detaching delivery from the request that committed the
// transition.
func Dispatch(notifier Notifier, logger *slog.Logger, acct *types.Account, n Notification) {
	if notifier == nil {
		return
	}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Notifier panicked", slog.Any("panic", rec), slog.String("event", string(n.Event)))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		notifier.Notify(ctx, acct, n)
	}()
}

// NoopNotifier drops every notification. Used in tests and when SMTP is
// disabled.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, acct *types.Account, n Notification) {}
