package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/slicerbridge/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.BridgeError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// Batch is one recorded conversion run.
type Batch struct {
	ID            string
	Origin        string // cli, mcp, web
	NozzleSize    string
	Policy        string
	PlasticType   string
	Summary       string
	ReportMD      string
	ResultsJSON   string
	FailuresJSON  string
	DecisionsJSON string
	ProfileCount  int
	FailureCount  int
	CreatedAt     int64
	DeletedAt     *int64

	// Profiles is populated by InsertBatch callers and by GetBatch.
	Profiles []Profile
}

// Profile is one output profile of a recorded batch.
type Profile struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	JSON     string `json:"json"`
}

// BatchSummary is the list view of a batch.
type BatchSummary struct {
	ID           string `json:"id"`
	Origin       string `json:"origin"`
	NozzleSize   string `json:"nozzle_size"`
	Policy       string `json:"policy"`
	PlasticType  string `json:"plastic_type,omitempty"`
	Summary      string `json:"summary"`
	ProfileCount int    `json:"profile_count"`
	FailureCount int    `json:"failure_count"`
	CreatedAt    int64  `json:"created_at"`
	DeletedAt    *int64 `json:"deleted_at,omitempty"`
}

// ListFilters narrows ListBatches.
type ListFilters struct {
	Origin         *string
	IncludeDeleted bool
}

const batchColumns = `
	id, origin, nozzle_size, policy, plastic_type, summary, report_md,
	results_json, failures_json, decisions_json, profile_count, failure_count,
	created_at, deleted_at`

// InsertBatch stores a batch and its profiles in one transaction.
func InsertBatch(ctx context.Context, db *sql.DB, b *Batch) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertBatchTx(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertBatches stores all batches in one transaction; a collision on any
// of them stores none.
func InsertBatches(ctx context.Context, db *sql.DB, batches []*Batch) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, b := range batches {
		if err := insertBatchTx(ctx, tx, b); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// BatchExists reports whether a batch with id exists, deleted or not.
func BatchExists(ctx context.Context, db *sql.DB, id string) (bool, error) {
	var exists int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM batches WHERE id = ? LIMIT 1", id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// ReplaceBatch stores b, first removing any batch with the same ID.
func ReplaceBatch(ctx context.Context, db *sql.DB, b *Batch) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := deleteBatchesTx(ctx, tx, []string{b.ID}); err != nil {
		return err
	}
	if err := insertBatchTx(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func insertBatchTx(ctx context.Context, tx *sql.Tx, b *Batch) error {
	query := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		b.ID, b.Origin, b.NozzleSize, b.Policy, toNullString(b.PlasticType),
		b.Summary, b.ReportMD, b.ResultsJSON,
		toNullString(b.FailuresJSON), toNullString(b.DecisionsJSON),
		b.ProfileCount, b.FailureCount, b.CreatedAt, b.DeletedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	for i, p := range b.Profiles {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batch_profiles (batch_id, position, name, profile_type, profile_json)
			VALUES (?, ?, ?, ?, ?)
		`, b.ID, i, p.Name, p.Type, p.JSON)
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetBatch retrieves a batch and its profiles by ID.
// If includeDeleted is false, soft-deleted batches are excluded.
func GetBatch(ctx context.Context, db *sql.DB, id string, includeDeleted bool) (*Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = ?`
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}

	b, err := scanBatch(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	b.Profiles, err = batchProfiles(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func batchProfiles(ctx context.Context, db *sql.DB, id string) ([]Profile, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT position, name, profile_type, profile_json
		FROM batch_profiles
		WHERE batch_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.Position, &p.Name, &p.Type, &p.JSON); err != nil {
			return nil, errors.NewInternal(err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return profiles, nil
}

// ListBatches returns batch summaries, newest first, and the total count
// matching filters.
func ListBatches(ctx context.Context, db *sql.DB, filters ListFilters, limit, offset int) ([]BatchSummary, int, error) {
	where, args := filterClause(filters)

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM batches"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, origin, nozzle_size, policy, plastic_type, summary,
			profile_count, failure_count, created_at, deleted_at
		FROM batches` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var summaries []BatchSummary
	for rows.Next() {
		var s BatchSummary
		var plastic sql.NullString
		var deletedAt sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Origin, &s.NozzleSize, &s.Policy, &plastic, &s.Summary,
			&s.ProfileCount, &s.FailureCount, &s.CreatedAt, &deletedAt); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		s.PlasticType = plastic.String
		s.DeletedAt = fromNullInt64(deletedAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return summaries, total, nil
}

func filterClause(filters ListFilters) (string, []any) {
	var conds []string
	var args []any
	if !filters.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if filters.Origin != nil {
		conds = append(conds, "origin = ?")
		args = append(args, *filters.Origin)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// AllBatches returns every batch matching filters, with its profiles, in
// creation order.
func AllBatches(ctx context.Context, db *sql.DB, filters ListFilters) ([]*Batch, error) {
	where, args := filterClause(filters)
	query := `SELECT ` + batchColumns + ` FROM batches` + where + " ORDER BY created_at, id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, errors.NewInternal(err)
		}
		batches = append(batches, b)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	for _, b := range batches {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		if b.Profiles, err = batchProfiles(ctx, db, b.ID); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

// SoftDeleteBatch marks a batch as deleted by setting deleted_at.
func SoftDeleteBatch(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx,
		"UPDATE batches SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL",
		time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// PurgeDeleted permanently removes soft-deleted batches. When olderThanDays
// is set, only batches deleted more than that many days ago are removed.
func PurgeDeleted(ctx context.Context, db *sql.DB, olderThanDays *int) (int, error) {
	query := "SELECT id FROM batches WHERE deleted_at IS NOT NULL"
	var args []any
	if olderThanDays != nil {
		cutoff := time.Now().Add(-time.Duration(*olderThanDays) * 24 * time.Hour).Unix()
		query += " AND deleted_at < ?"
		args = append(args, cutoff)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return 0, errors.NewInternal(err)
	}

	n, err := deleteBatchesTx(ctx, tx, ids)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

func deleteBatchesTx(ctx context.Context, tx *sql.Tx, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "DELETE FROM batch_profiles WHERE batch_id = ?", id); err != nil {
			return 0, errors.NewInternal(err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM batches WHERE id = ?", id)
		if err != nil {
			return 0, errors.NewInternal(err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, errors.NewInternal(err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*Batch, error) {
	var b Batch
	var plastic, failures, decisions sql.NullString
	var deletedAt sql.NullInt64
	err := row.Scan(
		&b.ID, &b.Origin, &b.NozzleSize, &b.Policy, &plastic, &b.Summary, &b.ReportMD,
		&b.ResultsJSON, &failures, &decisions, &b.ProfileCount, &b.FailureCount,
		&b.CreatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	b.PlasticType = plastic.String
	b.FailuresJSON = failures.String
	b.DecisionsJSON = decisions.String
	b.DeletedAt = fromNullInt64(deletedAt)
	return &b, nil
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
