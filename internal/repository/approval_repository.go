package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/seacliff-digital/reportpilot/internal/models"
	apperrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

const approvalColumns = `entry_id, client_id, business_name, period, report_kind, contact_email,
	email_subject, html_body, text_body, pdf_path, status, notes, extraction_errors, created_at, updated_at`

// ApprovalRepository manages persistence for the approval ledger.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs an ApprovalRepository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a new ledger entry. A duplicate entry_id surfaces as a
// conflict so ingestion can skip re-processed reports loudly.
func (r *ApprovalRepository) Create(ctx context.Context, entry *models.ApprovalEntry) error {
	query := `INSERT INTO approval_entries (entry_id, client_id, business_name, period, report_kind, contact_email,
        email_subject, html_body, text_body, pdf_path, status, notes, extraction_errors, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())`
	_, err := r.db.ExecContext(ctx, query,
		entry.EntryID, entry.ClientID, entry.BusinessName, entry.Period, entry.ReportKind,
		entry.ContactEmail, entry.EmailSubject, entry.HTMLBody, entry.TextBody, entry.PDFPath,
		entry.Status, entry.Notes, pq.Array(entry.ExtractionErrors))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apperrors.Clone(apperrors.ErrConflict,
				fmt.Sprintf("ledger entry %s already exists", entry.EntryID))
		}
		return fmt.Errorf("create approval entry: %w", err)
	}
	return nil
}

// GetByID fetches one ledger entry.
func (r *ApprovalRepository) GetByID(ctx context.Context, entryID string) (*models.ApprovalEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM approval_entries WHERE entry_id = $1", approvalColumns)
	var entry models.ApprovalEntry
	if err := r.db.GetContext(ctx, &entry, query, entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound,
				fmt.Sprintf("ledger entry %s not found", entryID))
		}
		return nil, fmt.Errorf("get approval entry: %w", err)
	}
	return &entry, nil
}

// Exists reports whether a ledger entry with the given ID is present.
func (r *ApprovalRepository) Exists(ctx context.Context, entryID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM approval_entries WHERE entry_id = $1)"
	if err := r.db.GetContext(ctx, &exists, query, entryID); err != nil {
		return false, fmt.Errorf("check approval entry: %w", err)
	}
	return exists, nil
}

// List returns ledger entries, optionally filtered by status, newest first.
func (r *ApprovalRepository) List(ctx context.Context, status models.ApprovalStatus) ([]models.ApprovalEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM approval_entries", approvalColumns)
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	entries := []models.ApprovalEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list approval entries: %w", err)
	}
	return entries, nil
}

// UpdateStatus persists a status transition with optional reviewer notes.
// Empty notes leave the stored notes untouched so a dispatch-time move to
// Sent never erases the reviewer's audit trail.
func (r *ApprovalRepository) UpdateStatus(ctx context.Context, entryID string, status models.ApprovalStatus, notes string) error {
	query := `UPDATE approval_entries SET status = $1, notes = COALESCE(NULLIF($2, ''), notes), updated_at = NOW() WHERE entry_id = $3`
	result, err := r.db.ExecContext(ctx, query, status, notes, entryID)
	if err != nil {
		return fmt.Errorf("update approval status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update approval status: %w", err)
	}
	if affected == 0 {
		return apperrors.Clone(apperrors.ErrNotFound,
			fmt.Sprintf("ledger entry %s not found", entryID))
	}
	return nil
}

// StatusCounts tallies entries per status for run summaries.
func (r *ApprovalRepository) StatusCounts(ctx context.Context) (map[models.ApprovalStatus]int, error) {
	rows := []struct {
		Status models.ApprovalStatus `db:"status"`
		Count  int                   `db:"count"`
	}{}
	query := "SELECT status, COUNT(*) AS count FROM approval_entries GROUP BY status"
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count approval entries: %w", err)
	}

	counts := make(map[models.ApprovalStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
