// Package report persists per-customer provisioning outcomes to a
// PostgreSQL database so operators can audit past batch runs.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/medienwerk/credsheet/internal/models"
)

// PostgresAuditRepository implements audit persistence against a
// PostgreSQL database.
type PostgresAuditRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuditRepository creates the repository using the provided
// *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{DB: db}
}

// SaveResult inserts one customer outcome under the given run id.
//
//	ctx:    context for cancellation and deadlines
//	runID:  identifier of the batch run
//	result: the customer's terminal outcome
func (r *PostgresAuditRepository) SaveResult(ctx context.Context, runID string, result models.CustomerResult) error {
	message := ""
	if result.Err != nil {
		message = result.Err.Error()
	}
	var shareExpires sql.NullTime
	if result.Share != nil {
		shareExpires = sql.NullTime{Time: result.Share.ExpiresAt, Valid: true}
	}

	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO provisioning_results (run_id, customer, category, state, error_kind, error_message, share_expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, result.Customer.Name, string(result.Customer.Category), string(result.State), result.ErrKind, message, shareExpires)
	if err != nil {
		return fmt.Errorf("SaveResult failed: %w", err)
	}
	return nil
}

// AuditRow is one persisted customer outcome.
type AuditRow struct {
	RunID        string
	Customer     string
	Category     string
	State        string
	ErrorKind    string
	ErrorMessage string
	CreatedAt    time.Time
}

// RecentResults returns the most recent outcomes, newest first.
func (r *PostgresAuditRepository) RecentResults(ctx context.Context, limit int) ([]AuditRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT run_id, customer, category, state, error_kind, error_message, created_at FROM provisioning_results ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("RecentResults: %w", err)
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var row AuditRow
		if err := rows.Scan(&row.RunID, &row.Customer, &row.Category, &row.State, &row.ErrorKind, &row.ErrorMessage, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RunResults returns every outcome of one batch run in insertion order.
func (r *PostgresAuditRepository) RunResults(ctx context.Context, runID string) ([]AuditRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT run_id, customer, category, state, error_kind, error_message, created_at FROM provisioning_results WHERE run_id = $1 ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("RunResults: %w", err)
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var row AuditRow
		if err := rows.Scan(&row.RunID, &row.Customer, &row.Category, &row.State, &row.ErrorKind, &row.ErrorMessage, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
