package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"guidinghand/internal/matches/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
)

const matchColumns = `id, missing_person_id, found_person_id, confidence_score, verification_status, notified, created_at`

// PostgresStore persists matches in PostgreSQL. The unique pair constraint
// makes Create an atomic upsert.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts m or, when the pair exists, raises its confidence to the
// larger value. xmax is zero only for a freshly inserted row.
func (s *PostgresStore) Create(ctx context.Context, m *models.Match) (*models.Match, bool, error) {
	query := `INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (missing_person_id, found_person_id) DO UPDATE
		SET confidence_score = GREATEST(matches.confidence_score, EXCLUDED.confidence_score)
		RETURNING ` + matchColumns + `, (xmax = 0) AS inserted`
	row := s.db.QueryRowContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.MissingPersonID), uuid.UUID(m.FoundPersonID),
		m.ConfidenceScore, string(m.VerificationStatus), m.Notified, m.CreatedAt,
	)
	var inserted bool
	stored, err := scanMatch(row, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("upsert match: %w", err)
	}
	return stored, inserted, nil
}

func (s *PostgresStore) FindByPair(ctx context.Context, missingID id.MissingPersonID, foundID id.FoundPersonID) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE missing_person_id = $1 AND found_person_id = $2`
	return s.findOne(ctx, query, uuid.UUID(missingID), uuid.UUID(foundID))
}

func (s *PostgresStore) FindByID(ctx context.Context, matchID id.MatchID) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(matchID))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.Match, error) {
	m, err := scanMatch(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find match: %w", err)
	}
	return m, nil
}

// MarkNotified sets notified and reports whether this call changed it.
func (s *PostgresStore) MarkNotified(ctx context.Context, matchID id.MatchID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE matches SET notified = TRUE WHERE id = $1 AND NOT notified`, uuid.UUID(matchID))
	if err != nil {
		return false, fmt.Errorf("mark match notified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark match notified: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) UpdateVerificationStatus(ctx context.Context, matchID id.MatchID, status models.VerificationStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE matches SET verification_status = $2 WHERE id = $1`, uuid.UUID(matchID), string(status))
	if err != nil {
		return fmt.Errorf("update match verification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match verification: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// List returns matches newest first.
func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Match, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case filter.MissingPersonID != nil:
		args = append(args, uuid.UUID(*filter.MissingPersonID))
		where = append(where, fmt.Sprintf("missing_person_id = $%d", len(args)))
	case filter.VerificationStatus != nil:
		args = append(args, string(*filter.VerificationStatus))
		where = append(where, fmt.Sprintf("verification_status = $%d", len(args)))
	}
	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

// scanMatch reads matchColumns followed by any extra destinations.
func scanMatch(row rowScanner, extra ...any) (*models.Match, error) {
	var (
		m                         models.Match
		matchID, missingID, found uuid.UUID
		status                    string
	)
	dest := append([]any{&matchID, &missingID, &found, &m.ConfidenceScore, &status, &m.Notified, &m.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.ID = id.MatchID(matchID)
	m.MissingPersonID = id.MissingPersonID(missingID)
	m.FoundPersonID = id.FoundPersonID(found)
	m.VerificationStatus = models.VerificationStatus(status)
	return &m, nil
}
