package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seacliff-digital/reportpilot/internal/models"
	apperrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func approvalRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"entry_id", "client_id", "business_name", "period", "report_kind", "contact_email",
		"email_subject", "html_body", "text_body", "pdf_path", "status", "notes",
		"extraction_errors", "created_at", "updated_at",
	})
}

func TestCreateApprovalEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectExec("INSERT INTO approval_entries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.ApprovalEntry{
		EntryID:      "c-1:2025-08",
		ClientID:     "c-1",
		BusinessName: "Brightside Dental",
		Period:       "2025-08",
		ReportKind:   models.ReportKindSEO,
		ContactEmail: "owner@brightsidedental.com",
		Status:       models.StatusPending,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateApprovalEntryDuplicateConflicts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectExec("INSERT INTO approval_entries").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.ApprovalEntry{
		EntryID: "c-1:2025-08",
		Status:  models.StatusPending,
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApprovalEntryByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	now := time.Now()
	rows := approvalRows().AddRow(
		"c-1:2025-08", "c-1", "Brightside Dental", "2025-08", string(models.ReportKindSEO),
		"owner@brightsidedental.com", "Your August 2025 SEO Report", "<p>hi</p>", "hi",
		"/reports/brightside.pdf", string(models.StatusPending), "",
		pq.StringArray{`metric "New users": value unavailable`}, now, now)
	mock.ExpectQuery("SELECT (.+) FROM approval_entries WHERE entry_id").
		WithArgs("c-1:2025-08").
		WillReturnRows(rows)

	entry, err := repo.GetByID(context.Background(), "c-1:2025-08")
	require.NoError(t, err)
	assert.Equal(t, "Brightside Dental", entry.BusinessName)
	assert.Equal(t, models.StatusPending, entry.Status)
	assert.Len(t, entry.ExtractionErrors, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetApprovalEntryNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM approval_entries WHERE entry_id").
		WithArgs("missing:2025-08").
		WillReturnRows(approvalRows())

	_, err := repo.GetByID(context.Background(), "missing:2025-08")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestExistsApprovalEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM approval_entries WHERE entry_id = $1)")).
		WithArgs("c-1:2025-08").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "c-1:2025-08")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApprovalEntriesByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	now := time.Now()
	rows := approvalRows().AddRow(
		"c-1:2025-08", "c-1", "Brightside Dental", "2025-08", string(models.ReportKindSEO),
		"owner@brightsidedental.com", "Your August 2025 SEO Report", "", "", "",
		string(models.StatusApproved), "", pq.StringArray{}, now, now)
	mock.ExpectQuery("SELECT (.+) FROM approval_entries WHERE status = (.+) ORDER BY created_at DESC").
		WithArgs(models.StatusApproved).
		WillReturnRows(rows)

	entries, err := repo.List(context.Background(), models.StatusApproved)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusApproved, entries[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApprovalStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectExec("UPDATE approval_entries SET status").
		WithArgs(models.StatusApproved, "looks good", "c-1:2025-08").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "c-1:2025-08", models.StatusApproved, "looks good")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApprovalStatusEmptyNotesKeepStoredNotes(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectExec(`UPDATE approval_entries SET status = \$1, notes = COALESCE\(NULLIF\(\$2, ''\), notes\)`).
		WithArgs(models.StatusSent, "", "c-1:2025-08").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "c-1:2025-08", models.StatusSent, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateApprovalStatusMissingEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectExec("UPDATE approval_entries SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing:2025-08", models.StatusApproved, "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestStatusCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow(string(models.StatusPending), 3).
		AddRow(string(models.StatusSent), 7)
	mock.ExpectQuery("SELECT status, COUNT\\(\\*\\) AS count FROM approval_entries GROUP BY status").
		WillReturnRows(rows)

	counts, err := repo.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[models.StatusPending])
	assert.Equal(t, 7, counts[models.StatusSent])
	assert.NoError(t, mock.ExpectationsWereMet())
}
