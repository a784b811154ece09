package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"guidinghand/internal/platform/kafka/producer"
)

// DefaultTopic carries every match event.
const DefaultTopic = "guidinghand.match.events"

var publishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guidinghand_match_events_publish_failures_total",
	Help: "Total number of match events that could not be published, labeled by event type",
}, []string{"event_type"})

// Sink is the producer surface the publisher needs.
type Sink interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaPublisher writes events as JSON records keyed by match id, so all
// events for one match land on the same partition in order.
type KafkaPublisher struct {
	sink    Sink
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewKafka creates a publisher on topic (DefaultTopic when empty).
func NewKafka(sink Sink, topic string, logger *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{sink: sink, topic: topic, timeout: 5 * time.Second, logger: logger}
}

type payload struct {
	Type            string    `json:"type"`
	MatchID         string    `json:"matchId,omitempty"`
	MissingPersonID string    `json:"missingPersonId"`
	FoundPersonID   string    `json:"foundPersonId"`
	ConfidenceScore int       `json:"confidenceScore"`
	TrackerEmail    string    `json:"trackerEmail,omitempty"`
	Attempts        int       `json:"attempts,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	body := payload{
		Type:            string(e.Type),
		MissingPersonID: e.MissingPersonID.String(),
		FoundPersonID:   e.FoundPersonID.String(),
		ConfidenceScore: e.ConfidenceScore,
		TrackerEmail:    e.TrackerEmail,
		Attempts:        e.Attempts,
		Reason:          e.Reason,
		OccurredAt:      e.OccurredAt.UTC(),
	}
	if !e.MatchID.IsNil() {
		body.MatchID = e.MatchID.String()
	}
	value, err := json.Marshal(body)
	if err != nil {
		p.fail(ctx, e, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.sink.Produce(ctx, &producer.Message{
		Topic:   p.topic,
		Key:     []byte(body.MatchID),
		Value:   value,
		Headers: map[string]string{"event_type": string(e.Type)},
	})
	if err != nil {
		p.fail(ctx, e, err)
	}
}

func (p *KafkaPublisher) fail(ctx context.Context, e Event, err error) {
	publishFailures.WithLabelValues(string(e.Type)).Inc()
	p.logger.WarnContext(ctx, "failed to publish match event",
		"event_type", e.Type,
		"match_id", e.MatchID,
		"error", err,
	)
}
