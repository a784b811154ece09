package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"guidinghand/internal/notifications/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
)

const deliveryColumns = `id, match_id, tracker_email, missing_person_id, found_person_id,
	confidence_score, attempts, next_attempt_at, last_error, state, created_at, updated_at`

// maxClaim caps one poll so a backlog cannot pin a worker.
const maxClaim = 1000

// PostgresStore persists deliveries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) Schedule(ctx context.Context, d *models.Delivery) (*models.Delivery, bool, error) {
	query := `INSERT INTO notification_deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (match_id, tracker_email) DO UPDATE SET
			confidence_score = EXCLUDED.confidence_score,
			attempts = EXCLUDED.attempts,
			next_attempt_at = EXCLUDED.next_attempt_at,
			last_error = EXCLUDED.last_error,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
		WHERE notification_deliveries.state <> 'pending'
		RETURNING ` + deliveryColumns
	row := s.db.QueryRowContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.MatchID), d.TrackerEmail,
		uuid.UUID(d.MissingPersonID), uuid.UUID(d.FoundPersonID),
		d.ConfidenceScore, d.Attempts, d.NextAttemptAt, d.LastError, string(d.State),
		d.CreatedAt, d.UpdatedAt,
	)
	stored, err := scanDelivery(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("schedule delivery: %w", err)
	}

	// The conflict guard skipped a pending entry; hand that one back.
	row = s.db.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM notification_deliveries WHERE match_id = $1 AND tracker_email = $2`,
		uuid.UUID(d.MatchID), d.TrackerEmail)
	existing, err := scanDelivery(row)
	if err != nil {
		return nil, false, fmt.Errorf("load pending delivery: %w", err)
	}
	return existing, false, nil
}

// ClaimDue leases due deliveries with FOR UPDATE SKIP LOCKED so several
// replicas can poll the same table.
func (s *PostgresStore) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*models.Delivery, error) {
	if limit <= 0 {
		return nil, nil
	}
	limit = min(limit, maxClaim)

	query := `UPDATE notification_deliveries SET next_attempt_at = $2
		WHERE id IN (
			SELECT id FROM notification_deliveries
			WHERE state = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + deliveryColumns
	return s.query(ctx, query, now, now.Add(lease), limit)
}

func (s *PostgresStore) MarkDelivered(ctx context.Context, deliveryID id.DeliveryID, now time.Time) error {
	return s.updatePending(ctx, deliveryID,
		`UPDATE notification_deliveries SET state = 'delivered', last_error = '', updated_at = $2
		WHERE id = $1 AND state = 'pending'`, now)
}

func (s *PostgresStore) MarkFailed(ctx context.Context, deliveryID id.DeliveryID, attempts int, next time.Time, lastErr string, now time.Time) error {
	return s.updatePending(ctx, deliveryID,
		`UPDATE notification_deliveries SET attempts = $2, next_attempt_at = $3, last_error = $4, updated_at = $5
		WHERE id = $1 AND state = 'pending'`, attempts, next, lastErr, now)
}

func (s *PostgresStore) MarkDead(ctx context.Context, deliveryID id.DeliveryID, attempts int, lastErr string, now time.Time) error {
	return s.updatePending(ctx, deliveryID,
		`UPDATE notification_deliveries SET state = 'dead', attempts = $2, last_error = $3, updated_at = $4
		WHERE id = $1 AND state = 'pending'`, attempts, lastErr, now)
}

func (s *PostgresStore) updatePending(ctx context.Context, deliveryID id.DeliveryID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, append([]any{uuid.UUID(deliveryID)}, args...)...)
	if err != nil {
		return fmt.Errorf("update delivery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM notification_deliveries WHERE id = $1)`,
		uuid.UUID(deliveryID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check delivery: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_deliveries WHERE state = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending deliveries: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByMatch(ctx context.Context, matchID id.MatchID) ([]*models.Delivery, error) {
	return s.query(ctx,
		`SELECT `+deliveryColumns+` FROM notification_deliveries WHERE match_id = $1 ORDER BY tracker_email`,
		uuid.UUID(matchID))
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []*models.Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

func scanDelivery(row rowScanner) (*models.Delivery, error) {
	var (
		d          models.Delivery
		deliveryID uuid.UUID
		matchID    uuid.UUID
		missing    uuid.UUID
		found      uuid.UUID
		state      string
	)
	err := row.Scan(&deliveryID, &matchID, &d.TrackerEmail, &missing, &found,
		&d.ConfidenceScore, &d.Attempts, &d.NextAttemptAt, &d.LastError, &state,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DeliveryID(deliveryID)
	d.MatchID = id.MatchID(matchID)
	d.MissingPersonID = id.MissingPersonID(missing)
	d.FoundPersonID = id.FoundPersonID(found)
	d.State = models.DeliveryState(state)
	return &d, nil
}
