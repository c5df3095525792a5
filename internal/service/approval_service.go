package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/models"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

type approvalRepository interface {
	Create(ctx context.Context, entry *models.ApprovalEntry) error
	GetByID(ctx context.Context, entryID string) (*models.ApprovalEntry, error)
	Exists(ctx context.Context, entryID string) (bool, error)
	List(ctx context.Context, status models.ApprovalStatus) ([]models.ApprovalEntry, error)
	UpdateStatus(ctx context.Context, entryID string, status models.ApprovalStatus, notes string) error
	StatusCounts(ctx context.Context) (map[models.ApprovalStatus]int, error)
}

// ApprovalService owns the ledger state machine: entry creation during
// ingestion and reviewer-driven status transitions.
type ApprovalService struct {
	repo   approvalRepository
	logger *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(repo approvalRepository, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{repo: repo, logger: logger}
}

// Record inserts a freshly ingested entry. Entries whose extraction was
// partial start in Needs Revision so a reviewer sees them first; clean
// entries start Pending. An existing entry for the same client and period
// is a conflict, never an overwrite.
func (s *ApprovalService) Record(ctx context.Context, entry *models.ApprovalEntry) error {
	if entry.EntryID == "" {
		entry.EntryID = models.EntryID(entry.ClientID, entry.Period)
	}
	if len(entry.ExtractionErrors) > 0 {
		entry.Status = models.StatusNeedsRevision
	} else {
		entry.Status = models.StatusPending
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return err
	}
	s.logger.Info("recorded ledger entry",
		zap.String("entry_id", entry.EntryID),
		zap.String("status", string(entry.Status)))
	return nil
}

// Exists reports whether a ledger entry already covers this client+period.
func (s *ApprovalService) Exists(ctx context.Context, clientID, period string) (bool, error) {
	return s.repo.Exists(ctx, models.EntryID(clientID, period))
}

// Get fetches one ledger entry.
func (s *ApprovalService) Get(ctx context.Context, entryID string) (*models.ApprovalEntry, error) {
	return s.repo.GetByID(ctx, entryID)
}

// List returns entries, optionally filtered by status.
func (s *ApprovalService) List(ctx context.Context, status models.ApprovalStatus) ([]models.ApprovalEntry, error) {
	return s.repo.List(ctx, status)
}

// Transition applies a reviewer decision, enforcing the state machine. An
// illegal move is rejected without touching the row.
func (s *ApprovalService) Transition(ctx context.Context, entryID string, to models.ApprovalStatus, notes string) (*models.ApprovalEntry, error) {
	entry, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(entry.Status, to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move entry %s from %s to %s", entryID, entry.Status, to))
	}

	if err := s.repo.UpdateStatus(ctx, entryID, to, notes); err != nil {
		return nil, err
	}
	s.logger.Info("transitioned ledger entry",
		zap.String("entry_id", entryID),
		zap.String("from", string(entry.Status)),
		zap.String("to", string(to)))

	entry.Status = to
	if notes != "" {
		entry.Notes = notes
	}
	return entry, nil
}

// MarkSent moves an approved entry to Sent after successful dispatch.
func (s *ApprovalService) MarkSent(ctx context.Context, entryID string) error {
	_, err := s.Transition(ctx, entryID, models.StatusSent, "")
	return err
}

// Summary tallies the ledger by status.
func (s *ApprovalService) Summary(ctx context.Context) (map[models.ApprovalStatus]int, error) {
	counts, err := s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	// Zero-fill so callers always see every status.
	for _, status := range models.AllStatuses {
		if _, ok := counts[status]; !ok {
			counts[status] = 0
		}
	}
	return counts, nil
}
