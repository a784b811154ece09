// Package tasks defines the background work scheduled after a found-person
// report is persisted.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "guidinghand/pkg/domain"
	dErrors "guidinghand/pkg/domain-errors"
)

// Kind selects the matching entry point a task runs.
type Kind string

const (
	KindReferencedMatch Kind = "referenced_match"
	KindBroadMatch      Kind = "broad_match"
)

func (k Kind) IsValid() bool {
	return k == KindReferencedMatch || k == KindBroadMatch
}

func (k Kind) String() string { return string(k) }

// Task is one unit of matching work. MissingPersonID is set only for
// referenced matches.
type Task struct {
	ID              uuid.UUID
	Kind            Kind
	FoundPersonID   id.FoundPersonID
	MissingPersonID *id.MissingPersonID
	EnqueuedAt      time.Time
}

// Queue carries tasks from intake to the worker pool. Dequeue blocks until a
// task is available or ctx is done.
type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// NewReferencedMatch builds a task that records the finder's explicit link.
func NewReferencedMatch(missingID id.MissingPersonID, foundID id.FoundPersonID, now time.Time) Task {
	return Task{
		ID:              uuid.New(),
		Kind:            KindReferencedMatch,
		FoundPersonID:   foundID,
		MissingPersonID: &missingID,
		EnqueuedAt:      now,
	}
}

// NewBroadMatch builds a task that scores a found report against every open
// missing report.
func NewBroadMatch(foundID id.FoundPersonID, now time.Time) Task {
	return Task{
		ID:            uuid.New(),
		Kind:          KindBroadMatch,
		FoundPersonID: foundID,
		EnqueuedAt:    now,
	}
}

// Validate checks that the task carries the ids its kind needs.
func (t Task) Validate() error {
	if !t.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown task kind %q", t.Kind))
	}
	if t.FoundPersonID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "task is missing the found person id")
	}
	if t.Kind == KindReferencedMatch && (t.MissingPersonID == nil || t.MissingPersonID.IsNil()) {
		return dErrors.New(dErrors.CodeInvalidInput, "referenced match task is missing the missing person id")
	}
	return nil
}

type wireTask struct {
	ID              string    `json:"id"`
	Kind            string    `json:"kind"`
	FoundPersonID   string    `json:"foundPersonId"`
	MissingPersonID string    `json:"missingPersonId,omitempty"`
	EnqueuedAt      time.Time `json:"enqueuedAt"`
}

// Marshal encodes a task for an external queue.
func Marshal(t Task) ([]byte, error) {
	w := wireTask{
		ID:            t.ID.String(),
		Kind:          string(t.Kind),
		FoundPersonID: t.FoundPersonID.String(),
		EnqueuedAt:    t.EnqueuedAt.UTC(),
	}
	if t.MissingPersonID != nil {
		w.MissingPersonID = t.MissingPersonID.String()
	}
	return json.Marshal(w)
}

// Unmarshal decodes and validates a task produced by Marshal.
func Unmarshal(data []byte) (Task, error) {
	var w wireTask
	if err := json.Unmarshal(data, &w); err != nil {
		return Task{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode task")
	}
	taskID, err := uuid.Parse(w.ID)
	if err != nil {
		return Task{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid task id")
	}
	foundID, err := id.ParseFoundPersonID(w.FoundPersonID)
	if err != nil {
		return Task{}, err
	}
	t := Task{ID: taskID, Kind: Kind(w.Kind), FoundPersonID: foundID, EnqueuedAt: w.EnqueuedAt}
	if w.MissingPersonID != "" {
		missingID, err := id.ParseMissingPersonID(w.MissingPersonID)
		if err != nil {
			return Task{}, err
		}
		t.MissingPersonID = &missingID
	}
	return t, t.Validate()
}
