package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/pkg/config"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

type fakeSender struct {
	sent   [][]byte
	drafts [][]byte
	failOn map[int]error
	calls  int
}

func (f *fakeSender) SendNow(_ context.Context, raw []byte) (string, error) {
	f.calls++
	if err := f.failOn[f.calls]; err != nil {
		return "", err
	}
	f.sent = append(f.sent, raw)
	return fmt.Sprintf("sent-%d", len(f.sent)), nil
}

func (f *fakeSender) CreateDraft(_ context.Context, raw []byte) (string, error) {
	f.calls++
	if err := f.failOn[f.calls]; err != nil {
		return "", err
	}
	f.drafts = append(f.drafts, raw)
	return fmt.Sprintf("draft-%d", len(f.drafts)), nil
}

type fakeReader struct{}

func (fakeReader) Read(string) ([]byte, error) { return []byte("%PDF-1.7 stub"), nil }

func approvedEntry(id string) *models.ApprovalEntry {
	return &models.ApprovalEntry{
		EntryID:      id,
		ClientID:     "c-" + id,
		Period:       "2025-08",
		ContactEmail: id + "@example.com",
		EmailSubject: "Your August 2025 SEO Report",
		HTMLBody:     "<p>hi</p>",
		TextBody:     "hi",
		PDFPath:      "/reports/" + id + ".pdf",
		Status:       models.StatusApproved,
	}
}

func newDispatchFixture(repo *fakeApprovalRepo, sender *fakeSender, cfg config.DispatchConfig) (*DispatchService, *[]time.Duration) {
	slept := &[]time.Duration{}
	svc := NewDispatchService(
		NewApprovalService(repo, zap.NewNop()),
		sender,
		fakeReader{},
		nil,
		"reports@seacliffdigital.com",
		cfg,
		zap.NewNop(),
	).WithSleep(func(d time.Duration) { *slept = append(*slept, d) })
	return svc, slept
}

func TestDispatchSendsApprovedEntries(t *testing.T) {
	repo := newFakeApprovalRepo()
	repo.entries["a"] = approvedEntry("a")
	repo.entries["b"] = approvedEntry("b")
	repo.entries["p"] = &models.ApprovalEntry{EntryID: "p", Status: models.StatusPending}

	sender := &fakeSender{}
	svc, slept := newDispatchFixture(repo, sender, config.DispatchConfig{InterMessageDelay: 30 * time.Second})

	summary, err := svc.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, sender.sent, 2)

	// Spacing happens between messages, not after the last one.
	assert.Equal(t, []time.Duration{30 * time.Second}, *slept)

	assert.Equal(t, models.StatusSent, repo.entries["a"].Status)
	assert.Equal(t, models.StatusSent, repo.entries["b"].Status)
	assert.Equal(t, models.StatusPending, repo.entries["p"].Status)
}

func TestDispatchDraftOnlyLeavesEntriesApproved(t *testing.T) {
	repo := newFakeApprovalRepo()
	repo.entries["a"] = approvedEntry("a")

	sender := &fakeSender{}
	svc, _ := newDispatchFixture(repo, sender, config.DispatchConfig{DraftOnly: true})

	summary, err := svc.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Drafted)
	assert.Equal(t, 0, summary.Sent)
	assert.Len(t, sender.drafts, 1)
	assert.Equal(t, models.StatusApproved, repo.entries["a"].Status)
}

func TestDispatchCollectsPartialFailures(t *testing.T) {
	repo := newFakeApprovalRepo()
	repo.entries["a"] = approvedEntry("a")
	repo.entries["b"] = approvedEntry("b")
	repo.entries["c"] = approvedEntry("c")

	sender := &fakeSender{failOn: map[int]error{
		2: appErrors.Clone(appErrors.ErrRateLimited, "quota exceeded"),
	}}
	svc, _ := newDispatchFixture(repo, sender, config.DispatchConfig{})

	summary, err := svc.Dispatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)

	sent := 0
	for _, entry := range repo.entries {
		if entry.Status == models.StatusSent {
			sent++
		}
	}
	assert.Equal(t, 2, sent, "the failed entry stays Approved for the next pass")
}

func TestDispatchAbortsOnAuthFailure(t *testing.T) {
	repo := newFakeApprovalRepo()
	repo.entries["a"] = approvedEntry("a")
	repo.entries["b"] = approvedEntry("b")

	sender := &fakeSender{failOn: map[int]error{
		1: appErrors.Clone(appErrors.ErrUnauthorized, "token revoked"),
	}}
	svc, _ := newDispatchFixture(repo, sender, config.DispatchConfig{})

	summary, err := svc.Dispatch(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, sender.calls, "no further sends after an auth failure")
}

func TestDispatchSkipsEntryWithoutContact(t *testing.T) {
	repo := newFakeApprovalRepo()
	broken := approvedEntry("a")
	broken.ContactEmail = ""
	repo.entries["a"] = broken

	sender := &fakeSender{}
	svc, _ := newDispatchFixture(repo, sender, config.DispatchConfig{})

	summary, err := svc.Dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, sender.sent)
	assert.Equal(t, models.StatusApproved, repo.entries["a"].Status)
}
