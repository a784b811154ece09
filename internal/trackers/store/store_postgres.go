package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"guidinghand/internal/sentinel"
	"guidinghand/internal/trackers/models"
	id "guidinghand/pkg/domain"
)

const trackerColumns = `id, email, missing_person_id, verified, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateOrGet relies on the (email, missing_person_id) constraint. When the
// insert is skipped the existing row is read back; it cannot disappear in
// between because trackers are never deleted.
func (s *PostgresStore) CreateOrGet(ctx context.Context, t *models.Tracker) (*models.Tracker, bool, error) {
	insert := `INSERT INTO trackers (` + trackerColumns + `) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email, missing_person_id) DO NOTHING
		RETURNING ` + trackerColumns
	stored, err := scanTracker(s.db.QueryRowContext(ctx, insert,
		uuid.UUID(t.ID), t.Email, uuid.UUID(t.MissingPersonID), t.Verified, t.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert tracker: %w", err)
	}

	existing, err := scanTracker(s.db.QueryRowContext(ctx,
		`SELECT `+trackerColumns+` FROM trackers WHERE email = $1 AND missing_person_id = $2`,
		t.Email, uuid.UUID(t.MissingPersonID),
	))
	if err != nil {
		return nil, false, fmt.Errorf("load existing tracker: %w", err)
	}
	return existing, false, nil
}

func (s *PostgresStore) ListByMissingPerson(ctx context.Context, missingID id.MissingPersonID) ([]*models.Tracker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackerColumns+` FROM trackers WHERE missing_person_id = $1 ORDER BY created_at, email`,
		uuid.UUID(missingID),
	)
	if err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}
	defer rows.Close()

	var out []*models.Tracker
	for rows.Next() {
		t, err := scanTracker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trackers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetVerified(ctx context.Context, trackerID id.TrackerID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE trackers SET verified = TRUE WHERE id = $1`, uuid.UUID(trackerID))
	if err != nil {
		return fmt.Errorf("verify tracker: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify tracker: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanTracker(row rowScanner) (*models.Tracker, error) {
	var (
		t                  models.Tracker
		trackerID, missing uuid.UUID
	)
	if err := row.Scan(&trackerID, &t.Email, &missing, &t.Verified, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = id.TrackerID(trackerID)
	t.MissingPersonID = id.MissingPersonID(missing)
	return &t, nil
}
