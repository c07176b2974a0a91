// Package notify delivers one-way push notifications for significant
// trading events. Delivery is fire-and-forget: a failed notification is
// logged by the caller and never escalated.
package notify

import "context"

// Notifier sends a (title, message) pair to some external channel.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Nop discards notifications. Used when no channel is configured.
type Nop struct{}

func (Nop) Notify(ctx context.Context, title, message string) error { return nil }

// Multi fans a notification out to several channels and returns the
// first error, after attempting all of them.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, title, message string) error {
	var firstErr error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, title, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
