package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidinghand/internal/platform/config"
	"guidinghand/internal/platform/kafka/consumer"
	"guidinghand/internal/tasks"
	"guidinghand/internal/tasks/queue"
	id "guidinghand/pkg/domain"
)

func newTestContext(q *queue.Memory) (*commandContext, *bytes.Buffer) {
	out := &bytes.Buffer{}
	c := newCommandContext(out)
	c.cfg = &config.Config{}
	c.openQueue = func(context.Context, *config.Config) (tasks.Queue, func(), error) {
		return q, func() {}, nil
	}
	return c, out
}

func execute(c *commandContext, args ...string) error {
	cmd := newRootCommand(c)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestRematch(t *testing.T) {
	q := queue.NewMemory(8)
	c, out := newTestContext(q)
	first, second := id.NewFoundPersonID(), id.NewFoundPersonID()

	require.NoError(t, execute(c, "rematch", first.String(), second.String()))

	require.Equal(t, 2, q.Len())
	for _, want := range []id.FoundPersonID{first, second} {
		got, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tasks.KindBroadMatch, got.Kind)
		assert.Equal(t, want, got.FoundPersonID)
		assert.NoError(t, got.Validate())
	}
	assert.Contains(t, out.String(), "enqueued broad_match")
}

func TestRematchRejectsBadIDBeforeEnqueueing(t *testing.T) {
	q := queue.NewMemory(8)
	c, _ := newTestContext(q)

	err := execute(c, "rematch", id.NewFoundPersonID().String(), "not-an-id")
	require.Error(t, err)
	assert.Zero(t, q.Len())
}

func TestRedriveReferenced(t *testing.T) {
	q := queue.NewMemory(8)
	c, _ := newTestContext(q)
	missingID, foundID := id.NewMissingPersonID(), id.NewFoundPersonID()

	require.NoError(t, execute(c, "redrive-referenced", missingID.String(), foundID.String()))

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tasks.KindReferencedMatch, got.Kind)
	require.NotNil(t, got.MissingPersonID)
	assert.Equal(t, missingID, *got.MissingPersonID)
	assert.Equal(t, foundID, got.FoundPersonID)

	assert.Error(t, execute(c, "redrive-referenced", missingID.String()))
}

func TestEventsRequiresBrokers(t *testing.T) {
	c, _ := newTestContext(queue.NewMemory(1))
	assert.ErrorContains(t, execute(c, "events"), "KAFKA_BROKERS")
}

func TestPrintEventFiltersByType(t *testing.T) {
	c, out := newTestContext(queue.NewMemory(1))
	created := &consumer.Message{Value: []byte(`{"type":"match.created"}`), Headers: map[string]string{"event_type": "match.created"}}
	notified := &consumer.Message{Value: []byte(`{"type":"match.notified"}`), Headers: map[string]string{"event_type": "match.notified"}}

	require.NoError(t, printEvent(c, created, "match.notified"))
	require.NoError(t, printEvent(c, notified, "match.notified"))
	assert.Equal(t, "{\"type\":\"match.notified\"}\n", out.String())
}
