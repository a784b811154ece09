// Package events publishes match lifecycle events for downstream consumers
// such as dashboards and audit trails. Publishing is best-effort.
package events

import (
	"context"
	"sync"
	"time"

	id "guidinghand/pkg/domain"
)

// Type names an event on the match events topic.
type Type string

const (
	MatchCreated             Type = "match.created"
	MatchNotified            Type = "match.notified"
	NotificationDeadLettered Type = "notification.dead_lettered"
)

// Event describes something that happened to a match. TrackerEmail is
// masked and only set on delivery events.
type Event struct {
	Type            Type
	MatchID         id.MatchID
	MissingPersonID id.MissingPersonID
	FoundPersonID   id.FoundPersonID
	ConfidenceScore int
	TrackerEmail    string
	Attempts        int
	Reason          string
	OccurredAt      time.Time
}

// Publisher emits events. Implementations log failures instead of
// returning them so callers never fail on publishing.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop discards every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
