// Package notify provides a multi-channel notification system. Notifications
// are dispatched to all registered senders (Telegram, Discord, etc.), filtered
// by event type, and throttled so a noisy scan loop cannot flood operators
// with the same alert every cycle.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// defaultThrottle is how long the same (event, title) combination is muted
// after a successful delivery.
const defaultThrottle = 10 * time.Minute

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Notify forwards
// only messages whose event type is in the allowed set and mutes repeats of
// the same alert within the throttle window; NotifyAll bypasses both.
type Notifier struct {
	senders  []Sender
	events   map[string]bool // allowed event types
	throttle time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice are forwarded by Notify; an
// empty slice allows all event types. throttle <= 0 uses the default window.
func NewNotifier(senders []Sender, events []string, throttle time.Duration, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	return &Notifier{
		senders:  senders,
		events:   allowed,
		throttle: throttle,
		logger:   logger.With(slog.String("component", "notifier")),
		lastSent: make(map[string]time.Time),
	}
}

// Notify sends a notification to all senders if the event type is allowed and
// the same alert has not fired within the throttle window. A muted alert is
// not an error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	key := event + "|" + title
	if n.muted(key) {
		n.logger.DebugContext(ctx, "alert throttled",
			slog.String("event", event),
			slog.String("title", title),
		)
		return nil
	}

	if err := n.dispatch(ctx, title, message); err != nil {
		return err
	}

	n.markSent(key)
	return nil
}

// NotifyAll sends a notification to all senders regardless of event type or
// throttle state.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

func (n *Notifier) muted(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.lastSent[key]
	return ok && time.Since(last) < n.throttle
}

func (n *Notifier) markSent(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	n.lastSent[key] = now

	// Expired entries piggyback on writes; the map stays small.
	for k, t := range n.lastSent {
		if now.Sub(t) > 2*n.throttle {
			delete(n.lastSent, k)
		}
	}
}

// dispatch iterates over all senders and sends the notification. A single
// sender failure does not prevent delivery to the remaining senders; failures
// are collected and returned as one combined error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
