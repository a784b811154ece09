// Package sender delivers match notifications to the email transport.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	id "guidinghand/pkg/domain"
	"guidinghand/pkg/platform/privacy"
)

const defaultTimeout = 10 * time.Second

// Message is the body the email transport expects.
type Message struct {
	To                string     `json:"to"`
	MissingPersonName string     `json:"missingPersonName"`
	FoundPersonName   string     `json:"foundPersonName"`
	ConfidenceScore   int        `json:"confidenceScore"`
	MatchID           id.MatchID `json:"-"`
}

// MarshalJSON renders the match id as a string under matchId.
func (m Message) MarshalJSON() ([]byte, error) {
	type wire Message
	return json.Marshal(struct {
		wire
		MatchID string `json:"matchId"`
	}{wire: wire(m), MatchID: m.MatchID.String()})
}

// Sender delivers one message. A nil error means the transport accepted it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPSender POSTs messages as JSON. Any 2xx response is success.
type HTTPSender struct {
	url    string
	client *http.Client
}

// NewHTTP creates a sender for url. A non-positive timeout falls back to 10s.
func NewHTTP(url string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSender{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // body is diagnostic only
		return fmt.Errorf("email transport returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return nil
}

// LogSender logs messages instead of sending them. Used when no transport
// URL is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification not sent: email transport not configured",
		"to", privacy.MaskEmail(msg.To),
		"match_id", msg.MatchID,
		"confidence_score", msg.ConfidenceScore,
	)
	return nil
}
