package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidinghand/internal/platform/kafka/producer"
	id "guidinghand/pkg/domain"
	"guidinghand/pkg/testutil"
)

type fakeSink struct {
	messages []*producer.Message
	err      error
}

func (f *fakeSink) Produce(_ context.Context, msg *producer.Message) error {
	f.messages = append(f.messages, msg)
	return f.err
}

func TestKafkaPublisher(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("writes a keyed JSON record with the event type header", func(t *testing.T) {
		sink := &fakeSink{}
		pub := NewKafka(sink, "", quiet)
		matchID := id.NewMatchID()

		pub.Publish(context.Background(), Event{
			Type:            MatchCreated,
			MatchID:         matchID,
			MissingPersonID: id.NewMissingPersonID(),
			FoundPersonID:   id.NewFoundPersonID(),
			ConfidenceScore: 90,
			OccurredAt:      testutil.FixedTime,
		})

		require.Len(t, sink.messages, 1)
		msg := sink.messages[0]
		assert.Equal(t, DefaultTopic, msg.Topic)
		assert.Equal(t, matchID.String(), string(msg.Key))
		assert.Equal(t, "match.created", msg.Headers["event_type"])

		var body map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &body))
		assert.Equal(t, "match.created", body["type"])
		assert.Equal(t, float64(90), body["confidenceScore"])
		assert.NotContains(t, body, "trackerEmail")
	})

	t.Run("sink failures are swallowed", func(t *testing.T) {
		sink := &fakeSink{err: errors.New("broker down")}
		pub := NewKafka(sink, "custom.topic", quiet)
		assert.NotPanics(t, func() {
			pub.Publish(context.Background(), Event{Type: NotificationDeadLettered, MatchID: id.NewMatchID()})
		})
		require.Len(t, sink.messages, 1)
		assert.Equal(t, "custom.topic", sink.messages[0].Topic)
	})
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Publish(context.Background(), Event{Type: MatchCreated})
	r.Publish(context.Background(), Event{Type: MatchNotified})
	r.Publish(context.Background(), Event{Type: MatchCreated})

	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.OfType(MatchCreated), 2)
	assert.Empty(t, r.OfType(NotificationDeadLettered))
}
