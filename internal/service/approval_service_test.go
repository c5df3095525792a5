package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/models"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

type fakeApprovalRepo struct {
	entries map[string]*models.ApprovalEntry
	created []string
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{entries: map[string]*models.ApprovalEntry{}}
}

func (r *fakeApprovalRepo) Create(_ context.Context, entry *models.ApprovalEntry) error {
	if _, ok := r.entries[entry.EntryID]; ok {
		return appErrors.Clone(appErrors.ErrConflict, "duplicate entry")
	}
	clone := *entry
	r.entries[entry.EntryID] = &clone
	r.created = append(r.created, entry.EntryID)
	return nil
}

func (r *fakeApprovalRepo) GetByID(_ context.Context, entryID string) (*models.ApprovalEntry, error) {
	entry, ok := r.entries[entryID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "missing entry")
	}
	clone := *entry
	return &clone, nil
}

func (r *fakeApprovalRepo) Exists(_ context.Context, entryID string) (bool, error) {
	_, ok := r.entries[entryID]
	return ok, nil
}

func (r *fakeApprovalRepo) List(_ context.Context, status models.ApprovalStatus) ([]models.ApprovalEntry, error) {
	var out []models.ApprovalEntry
	for _, entry := range r.entries {
		if status == "" || entry.Status == status {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) UpdateStatus(_ context.Context, entryID string, status models.ApprovalStatus, notes string) error {
	entry, ok := r.entries[entryID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "missing entry")
	}
	entry.Status = status
	if notes != "" {
		entry.Notes = notes
	}
	return nil
}

func (r *fakeApprovalRepo) StatusCounts(_ context.Context) (map[models.ApprovalStatus]int, error) {
	counts := map[models.ApprovalStatus]int{}
	for _, entry := range r.entries {
		counts[entry.Status]++
	}
	return counts, nil
}

func TestRecordCleanEntryStartsPending(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := NewApprovalService(repo, zap.NewNop())

	entry := &models.ApprovalEntry{ClientID: "c-1", Period: "2025-08"}
	require.NoError(t, svc.Record(context.Background(), entry))

	assert.Equal(t, "c-1:2025-08", entry.EntryID)
	assert.Equal(t, models.StatusPending, repo.entries["c-1:2025-08"].Status)
}

func TestRecordPartialEntryStartsNeedsRevision(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := NewApprovalService(repo, zap.NewNop())

	entry := &models.ApprovalEntry{
		ClientID:         "c-1",
		Period:           "2025-08",
		ExtractionErrors: []string{`metric "New users": value unavailable`},
	}
	require.NoError(t, svc.Record(context.Background(), entry))
	assert.Equal(t, models.StatusNeedsRevision, repo.entries["c-1:2025-08"].Status)
}

func TestRecordDuplicateFailsLoudly(t *testing.T) {
	repo := newFakeApprovalRepo()
	svc := NewApprovalService(repo, zap.NewNop())

	first := &models.ApprovalEntry{ClientID: "c-1", Period: "2025-08", BusinessName: "Original"}
	require.NoError(t, svc.Record(context.Background(), first))

	second := &models.ApprovalEntry{ClientID: "c-1", Period: "2025-08", BusinessName: "Updated"}
	err := svc.Record(context.Background(), second)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Equal(t, "Original", repo.entries["c-1:2025-08"].BusinessName, "existing entry stays untouched")
}

func TestTransitionLegalMoves(t *testing.T) {
	tests := []struct {
		from models.ApprovalStatus
		to   models.ApprovalStatus
	}{
		{models.StatusPending, models.StatusApproved},
		{models.StatusPending, models.StatusNeedsRevision},
		{models.StatusNeedsRevision, models.StatusPending},
		{models.StatusNeedsRevision, models.StatusApproved},
		{models.StatusApproved, models.StatusSent},
	}
	for _, tt := range tests {
		repo := newFakeApprovalRepo()
		repo.entries["c-1:2025-08"] = &models.ApprovalEntry{EntryID: "c-1:2025-08", Status: tt.from}
		svc := NewApprovalService(repo, zap.NewNop())

		entry, err := svc.Transition(context.Background(), "c-1:2025-08", tt.to, "note")
		require.NoError(t, err, "%s -> %s", tt.from, tt.to)
		assert.Equal(t, tt.to, entry.Status)
		assert.Equal(t, tt.to, repo.entries["c-1:2025-08"].Status)
	}
}

func TestTransitionIllegalMovesRejected(t *testing.T) {
	tests := []struct {
		from models.ApprovalStatus
		to   models.ApprovalStatus
	}{
		{models.StatusPending, models.StatusSent},
		{models.StatusNeedsRevision, models.StatusSent},
		{models.StatusSent, models.StatusPending},
		{models.StatusSent, models.StatusApproved},
		{models.StatusApproved, models.StatusPending},
	}
	for _, tt := range tests {
		repo := newFakeApprovalRepo()
		repo.entries["c-1:2025-08"] = &models.ApprovalEntry{EntryID: "c-1:2025-08", Status: tt.from}
		svc := NewApprovalService(repo, zap.NewNop())

		_, err := svc.Transition(context.Background(), "c-1:2025-08", tt.to, "")
		require.Error(t, err, "%s -> %s must be rejected", tt.from, tt.to)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidTransition))
		assert.Equal(t, tt.from, repo.entries["c-1:2025-08"].Status, "row must stay untouched")
	}
}

func TestMarkSentKeepsReviewerNotes(t *testing.T) {
	repo := newFakeApprovalRepo()
	repo.entries["c-1:2025-08"] = &models.ApprovalEntry{EntryID: "c-1:2025-08", Status: models.StatusPending}
	svc := NewApprovalService(repo, zap.NewNop())

	entry, err := svc.Transition(context.Background(), "c-1:2025-08", models.StatusApproved, "numbers verified")
	require.NoError(t, err)
	assert.Equal(t, "numbers verified", entry.Notes)

	require.NoError(t, svc.MarkSent(context.Background(), "c-1:2025-08"))

	stored := repo.entries["c-1:2025-08"]
	assert.Equal(t, models.StatusSent, stored.Status)
	assert.Equal(t, "numbers verified", stored.Notes, "dispatch must not erase reviewer notes")
}

func TestTransitionMissingEntry(t *testing.T) {
	svc := NewApprovalService(newFakeApprovalRepo(), zap.NewNop())

	_, err := svc.Transition(context.Background(), "missing:2025-08", models.StatusApproved, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestSummaryZeroFills(t *testing.T) {
	repo := newFakeApprovalRepo()
	repo.entries["a"] = &models.ApprovalEntry{EntryID: "a", Status: models.StatusPending}
	svc := NewApprovalService(repo, zap.NewNop())

	counts, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusPending])
	assert.Equal(t, 0, counts[models.StatusSent])
	assert.Len(t, counts, len(models.AllStatuses))
}
