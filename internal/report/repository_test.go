package report

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/medienwerk/credsheet/internal/models"
)

func setupAuditMock(t *testing.T) (*PostgresAuditRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuditRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

const insertQuery = `INSERT INTO provisioning_results (run_id, customer, category, state, error_kind, error_message, share_expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`

func TestSaveResult_Committed(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	expires := time.Date(2026, 9, 5, 12, 0, 0, 0, time.UTC)
	result := models.CustomerResult{
		Customer: models.CustomerSpec{Name: "Acme GmbH", Category: models.CategoryExternal},
		State:    models.StateCommitted,
		Share:    &models.ShareLink{Token: "tok", RecordUID: "rec-1", ExpiresAt: expires},
	}

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("run-1", "Acme GmbH", "external", "committed", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveResult(context.Background(), "run-1", result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSaveResult_RolledBack(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	result := models.CustomerResult{
		Customer: models.CustomerSpec{Name: "Beta AG", Category: models.CategoryInternal},
		State:    models.StateRolledBack,
		Err:      errors.New("record creation failed"),
		ErrKind:  "VaultError",
	}

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("run-2", "Beta AG", "internal", "rolled_back", "VaultError", "record creation failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	if err := repo.SaveResult(context.Background(), "run-2", result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSaveResult_Error(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	result := models.CustomerResult{
		Customer: models.CustomerSpec{Name: "Acme GmbH", Category: models.CategoryExternal},
		State:    models.StateCommitted,
	}

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("run-3", "Acme GmbH", "external", "committed", "", "", sqlmock.AnyArg()).
		WillReturnError(errors.New("insert failed"))

	if err := repo.SaveResult(context.Background(), "run-3", result); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRecentResults(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	created := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"run_id", "customer", "category", "state", "error_kind", "error_message", "created_at"}).
		AddRow("run-2", "Beta AG", "internal", "rolled_back", "VaultError", "record creation failed", created).
		AddRow("run-1", "Acme GmbH", "external", "committed", "", "", created.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT run_id, customer, category, state, error_kind, error_message, created_at FROM provisioning_results ORDER BY created_at DESC LIMIT $1`)).
		WithArgs(20).
		WillReturnRows(rows)

	got, err := repo.RecentResults(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Customer != "Beta AG" || got[0].State != "rolled_back" {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[1].Customer != "Acme GmbH" || got[1].ErrorKind != "" {
		t.Errorf("unexpected second row: %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunResults(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	created := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"run_id", "customer", "category", "state", "error_kind", "error_message", "created_at"}).
		AddRow("run-1", "Acme GmbH", "external", "committed", "", "", created)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT run_id, customer, category, state, error_kind, error_message, created_at FROM provisioning_results WHERE run_id = $1 ORDER BY id`)).
		WithArgs("run-1").
		WillReturnRows(rows)

	got, err := repo.RunResults(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].RunID != "run-1" || got[0].Customer != "Acme GmbH" {
		t.Errorf("unexpected row: %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestRunResults_QueryError(t *testing.T) {
	repo, mock, cleanup := setupAuditMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT run_id, customer, category, state, error_kind, error_message, created_at FROM provisioning_results WHERE run_id = $1 ORDER BY id`)).
		WithArgs("run-x").
		WillReturnError(errors.New("query failed"))

	if _, err := repo.RunResults(context.Background(), "run-x"); err == nil {
		t.Errorf("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
