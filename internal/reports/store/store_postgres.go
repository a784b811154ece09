package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"guidinghand/internal/reports/models"
	"guidinghand/internal/sentinel"
	id "guidinghand/pkg/domain"
)

const pgUniqueViolation = "23505"

// arrays scans TEXT[] columns through pgx's type map, which database/sql
// cannot do on its own.
var arrays = pgtype.NewMap()

const missingColumns = `id, name, date_of_birth, trn, nin, passport, driver_license,
	height, weight, skin_tone, hair_color, distinctive_features,
	last_known_location_parish, last_known_location_city, photo_ids,
	reporter_email, reporter_phone, status, created_at, updated_at`

const foundColumns = `id, name, date_of_birth, trn, nin, passport, driver_license,
	height, weight, skin_tone, hair_color, distinctive_features,
	found_location_parish, found_location_city, photo_ids,
	reporter_email, reporter_phone, referenced_missing_person_id, status, created_at, updated_at`

// PostgresStore persists reports in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed report store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a report store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) CreateMissing(ctx context.Context, r *models.MissingPerson) error {
	query := `INSERT INTO missing_persons (` + missingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(r.ID), r.Name, r.DateOfBirth, r.TRN, r.NIN, r.Passport, r.DriverLicense,
		r.Height, r.Weight, r.SkinTone, r.HairColor, r.DistinctiveFeatures,
		string(r.LastKnownLocation.Parish), r.LastKnownLocation.City, photoIDs(r.PhotoIDs),
		r.Reporter.Email, r.Reporter.Phone, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert missing person: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMissing(ctx context.Context, reportID id.MissingPersonID) (*models.MissingPerson, error) {
	row := s.execer().QueryRowContext(ctx, `SELECT `+missingColumns+` FROM missing_persons WHERE id = $1`, uuid.UUID(reportID))
	r, err := scanMissing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get missing person: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListMissing(ctx context.Context, filter models.MissingFilter) ([]*models.MissingPerson, error) {
	var (
		where []string
		args  []any
	)
	if filter.Parish != nil {
		args = append(args, string(*filter.Parish))
		where = append(where, fmt.Sprintf("last_known_location_parish = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + missingColumns + ` FROM missing_persons`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	return s.queryMissing(ctx, query, args...)
}

func (s *PostgresStore) ListMissingByReporterSince(ctx context.Context, email string, since time.Time) ([]*models.MissingPerson, error) {
	query := `SELECT ` + missingColumns + ` FROM missing_persons
		WHERE reporter_email = $1 AND created_at > $2
		ORDER BY created_at DESC`
	return s.queryMissing(ctx, query, email, since)
}

func (s *PostgresStore) queryMissing(ctx context.Context, query string, args ...any) ([]*models.MissingPerson, error) {
	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list missing persons: %w", err)
	}
	defer rows.Close()

	var out []*models.MissingPerson
	for rows.Next() {
		r, err := scanMissing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan missing person: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate missing persons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateMissingStatus(ctx context.Context, reportID id.MissingPersonID, status models.MissingStatus, now time.Time) error {
	res, err := s.execer().ExecContext(ctx,
		`UPDATE missing_persons SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(reportID), string(status), now)
	if err != nil {
		return fmt.Errorf("update missing person status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CreateFound(ctx context.Context, r *models.FoundPerson) error {
	var ref *uuid.UUID
	if r.ReferencedMissingPersonID != nil {
		u := uuid.UUID(*r.ReferencedMissingPersonID)
		ref = &u
	}
	query := `INSERT INTO found_persons (` + foundColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(r.ID), r.Name, r.DateOfBirth, r.TRN, r.NIN, r.Passport, r.DriverLicense,
		r.Height, r.Weight, r.SkinTone, r.HairColor, r.DistinctiveFeatures,
		string(r.FoundLocation.Parish), r.FoundLocation.City, photoIDs(r.PhotoIDs),
		r.Reporter.Email, r.Reporter.Phone, ref, string(r.Status), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert found person: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetFound(ctx context.Context, reportID id.FoundPersonID) (*models.FoundPerson, error) {
	row := s.execer().QueryRowContext(ctx, `SELECT `+foundColumns+` FROM found_persons WHERE id = $1`, uuid.UUID(reportID))
	r, err := scanFound(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get found person: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListFound(ctx context.Context, filter models.FoundFilter) ([]*models.FoundPerson, error) {
	query := `SELECT ` + foundColumns + ` FROM found_persons`
	var args []any
	if filter.Status != nil {
		query += " WHERE status = $1"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list found persons: %w", err)
	}
	defer rows.Close()

	var out []*models.FoundPerson
	for rows.Next() {
		r, err := scanFound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan found person: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate found persons: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateFoundStatus(ctx context.Context, reportID id.FoundPersonID, status models.FoundStatus, now time.Time) error {
	res, err := s.execer().ExecContext(ctx,
		`UPDATE found_persons SET status = $2, updated_at = $3 WHERE id = $1`,
		uuid.UUID(reportID), string(status), now)
	if err != nil {
		return fmt.Errorf("update found person status: %w", err)
	}
	return requireRow(res)
}

func scanMissing(row rowScanner) (*models.MissingPerson, error) {
	var (
		r        models.MissingPerson
		reportID uuid.UUID
		parish   string
		status   string
		photos   []string
	)
	err := row.Scan(&reportID, &r.Name, &r.DateOfBirth, &r.TRN, &r.NIN, &r.Passport, &r.DriverLicense,
		&r.Height, &r.Weight, &r.SkinTone, &r.HairColor, &r.DistinctiveFeatures,
		&parish, &r.LastKnownLocation.City, arrays.SQLScanner(&photos),
		&r.Reporter.Email, &r.Reporter.Phone, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.MissingPersonID(reportID)
	r.LastKnownLocation.Parish = id.Parish(parish)
	r.Status = models.MissingStatus(status)
	r.PhotoIDs = photos
	return &r, nil
}

func scanFound(row rowScanner) (*models.FoundPerson, error) {
	var (
		r        models.FoundPerson
		reportID uuid.UUID
		ref      uuid.NullUUID
		parish   string
		status   string
		photos   []string
	)
	err := row.Scan(&reportID, &r.Name, &r.DateOfBirth, &r.TRN, &r.NIN, &r.Passport, &r.DriverLicense,
		&r.Height, &r.Weight, &r.SkinTone, &r.HairColor, &r.DistinctiveFeatures,
		&parish, &r.FoundLocation.City, arrays.SQLScanner(&photos),
		&r.Reporter.Email, &r.Reporter.Phone, &ref, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.ID = id.FoundPersonID(reportID)
	r.FoundLocation.Parish = id.Parish(parish)
	r.Status = models.FoundStatus(status)
	r.PhotoIDs = photos
	if ref.Valid {
		m := id.MissingPersonID(ref.UUID)
		r.ReferencedMissingPersonID = &m
	}
	return &r, nil
}

func photoIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
