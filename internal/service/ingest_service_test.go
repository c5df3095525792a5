package service

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/seacliff-digital/reportpilot/internal/gmail"
	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/internal/parser"
	"github.com/seacliff-digital/reportpilot/internal/pdfpage"
	"github.com/seacliff-digital/reportpilot/internal/template"
	"github.com/seacliff-digital/reportpilot/pkg/config"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

const seoPageText = `SEO Report for Brightside Dental Aug 1, 2025 - Aug 31, 2025
Sessions Active users New users Key events Engagement rate Bounce rate Average session duration
22,837 18,204 16,911 1,432 63.31% 36.69% 00:03:29
+12.4% +9.1% +8.2% +4.2% -1.3% +1.3% +0.8%`

type fakeMail struct {
	messages    map[string][]gmail.Attachment
	order       []string
	processed   map[string]bool
	searchErr   error
	metadataErr map[string]error
	fetchErr    map[string]error
}

func newFakeMail() *fakeMail {
	return &fakeMail{
		messages:    map[string][]gmail.Attachment{},
		processed:   map[string]bool{},
		metadataErr: map[string]error{},
		fetchErr:    map[string]error{},
	}
}

func (f *fakeMail) add(id string, atts ...gmail.Attachment) {
	f.messages[id] = atts
	f.order = append(f.order, id)
}

func (f *fakeMail) Search(context.Context, string, int64) ([]string, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]string{}, f.order...), nil
}

func (f *fakeMail) Metadata(_ context.Context, id string) (gmail.MessageMeta, error) {
	if err := f.metadataErr[id]; err != nil {
		return gmail.MessageMeta{}, err
	}
	return gmail.MessageMeta{ID: id, From: "looker@google.com", Subject: "Report"}, nil
}

func (f *fakeMail) FetchAttachments(_ context.Context, id string) ([]gmail.Attachment, error) {
	if err := f.fetchErr[id]; err != nil {
		return nil, err
	}
	return f.messages[id], nil
}

func (f *fakeMail) EnsureProcessedLabel(context.Context, string) (string, error) {
	return "label-1", nil
}

func (f *fakeMail) MarkProcessed(_ context.Context, id, _ string) error {
	f.processed[id] = true
	return nil
}

type fakeClients struct {
	records []models.ClientRecord
}

func (f *fakeClients) ListActive(context.Context) ([]models.ClientRecord, error) {
	return f.records, nil
}

type fakeSeen struct {
	seen map[string]bool
}

func (f *fakeSeen) Seen(_ context.Context, id string) (bool, error) { return f.seen[id], nil }
func (f *fakeSeen) Mark(_ context.Context, id string) error {
	f.seen[id] = true
	return nil
}

// fakeDecode treats the attachment bytes as already-decoded page text.
func fakeDecode(data []byte) (pdfpage.Page, error) {
	return pdfpage.Page{Text: string(data)}, nil
}

func newIngestFixture(t *testing.T, mail *fakeMail, clients []models.ClientRecord, seen SeenStore) (*IngestService, *fakeApprovalRepo) {
	t.Helper()

	renderer, err := template.NewRenderer(config.AgencyConfig{Name: "Seacliff Digital"})
	require.NoError(t, err)

	store, err := newTestStorage(t)
	require.NoError(t, err)

	repo := newFakeApprovalRepo()
	svc := NewIngestService(
		mail,
		&fakeClients{records: clients},
		NewApprovalService(repo, zap.NewNop()),
		parser.New(parser.Options{PreferLaterLine: true}),
		renderer,
		store,
		seen,
		nil,
		config.GmailConfig{ProcessedLabel: "Reports/Processed", MaxResults: 50},
		config.MatcherConfig{Threshold: 85, AmbiguityMargin: 3},
		zap.NewNop(),
	).WithDecoder(fakeDecode)
	return svc, repo
}

type testStorage struct {
	dir string
}

func newTestStorage(t *testing.T) (*testStorage, error) {
	return &testStorage{dir: t.TempDir()}, nil
}

func (s *testStorage) Save(filename string, data []byte) (string, error) {
	path := filepath.Join(s.dir, filename)
	return path, os.WriteFile(path, data, 0o644)
}

func brightside() models.ClientRecord {
	return models.ClientRecord{
		ClientID:     "c-1",
		BusinessName: "Brightside Dental",
		ContactName:  "Dana Reed",
		ContactEmail: "owner@brightsidedental.com",
		ServiceType:  models.ReportKindSEO,
		Active:       true,
	}
}

func TestIngestRunCreatesLedgerEntry(t *testing.T) {
	mail := newFakeMail()
	mail.add("m-1", gmail.Attachment{Filename: "brightside-aug.pdf", Data: []byte(seoPageText)})

	svc, repo := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, nil)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MessagesFound)
	assert.Equal(t, 1, summary.ReportsParsed)
	assert.Equal(t, 1, summary.EntriesCreated)
	assert.Empty(t, summary.Failures)
	assert.True(t, mail.processed["m-1"], "message must be labeled processed")

	entry := repo.entries["c-1:2025-08"]
	require.NotNil(t, entry)
	assert.Equal(t, models.StatusPending, entry.Status)
	assert.Equal(t, "Your August 2025 SEO Report", entry.EmailSubject)
	assert.Equal(t, "owner@brightsidedental.com", entry.ContactEmail)
	assert.Contains(t, entry.HTMLBody, "22,837")
	assert.NotEmpty(t, entry.PDFPath)
}

func TestIngestPartialReportStartsNeedsRevision(t *testing.T) {
	partial := `SEO Report for Brightside Dental Aug 1, 2025 - Aug 31, 2025
Sessions Active users New users Key events Engagement rate Bounce rate Average session duration
22,837 18,204 N/A 1,432 63.31% 36.69% 00:03:29`
	mail := newFakeMail()
	mail.add("m-1", gmail.Attachment{Filename: "brightside-aug.pdf", Data: []byte(partial)})

	svc, repo := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	entry := repo.entries["c-1:2025-08"]
	require.NotNil(t, entry)
	assert.Equal(t, models.StatusNeedsRevision, entry.Status)
	assert.NotEmpty(t, entry.ExtractionErrors)
}

func TestIngestSkipsExistingEntry(t *testing.T) {
	mail := newFakeMail()
	mail.add("m-1", gmail.Attachment{Filename: "brightside-aug.pdf", Data: []byte(seoPageText)})

	svc, repo := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, nil)
	repo.entries["c-1:2025-08"] = &models.ApprovalEntry{
		EntryID: "c-1:2025-08", Status: models.StatusApproved, BusinessName: "Brightside Dental",
	}

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedExists)
	assert.Equal(t, 0, summary.EntriesCreated)
	assert.Equal(t, models.StatusApproved, repo.entries["c-1:2025-08"].Status, "existing entry untouched")
	assert.True(t, mail.processed["m-1"])
}

func TestIngestAmbiguousAndUnmatchedAreSkipped(t *testing.T) {
	ambiguousPage := `SEO Report for Lakeside Clinic Aug 1, 2025 - Aug 31, 2025
Sessions Active users New users Key events Engagement rate Bounce rate Average session duration
1 2 3 4 5% 6% 00:00:07`
	unknownPage := `SEO Report for Quantum Plumbing Aug 1, 2025 - Aug 31, 2025
Sessions Active users New users Key events Engagement rate Bounce rate Average session duration
1 2 3 4 5% 6% 00:00:07`
	mail := newFakeMail()
	mail.add("m-1", gmail.Attachment{Filename: "a.pdf", Data: []byte(ambiguousPage)})
	mail.add("m-2", gmail.Attachment{Filename: "b.pdf", Data: []byte(unknownPage)})

	svc, repo := newIngestFixture(t, mail, []models.ClientRecord{
		{ClientID: "c-east", BusinessName: "Lakeside Clinic East", ContactEmail: "e@x.com"},
		{ClientID: "c-west", BusinessName: "Lakeside Clinic West", ContactEmail: "w@x.com"},
	}, nil)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Ambiguous)
	assert.Equal(t, 1, summary.NotFound)
	assert.Empty(t, repo.created)
	assert.True(t, mail.processed["m-1"])
	assert.True(t, mail.processed["m-2"])
}

func TestIngestSeenCacheSkipsMessage(t *testing.T) {
	mail := newFakeMail()
	mail.add("m-1", gmail.Attachment{Filename: "a.pdf", Data: []byte(seoPageText)})

	seen := &fakeSeen{seen: map[string]bool{"m-1": true}}
	svc, repo := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, seen)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SkippedSeen)
	assert.Empty(t, repo.created)
	assert.False(t, mail.processed["m-1"])
}

func TestIngestContinuesPastFailedMessage(t *testing.T) {
	mail := newFakeMail()
	mail.add("m-bad", gmail.Attachment{Filename: "bad.pdf"})
	mail.add("m-good", gmail.Attachment{Filename: "good.pdf", Data: []byte(seoPageText)})
	mail.fetchErr["m-bad"] = appErrors.Wrap(
		&googleapi.Error{Code: http.StatusInternalServerError},
		appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "fetch message")

	svc, repo := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, nil)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Failures, 1)
	assert.Contains(t, summary.Failures[0], "m-bad")
	assert.Equal(t, 1, summary.EntriesCreated)
	assert.True(t, mail.processed["m-good"])
	assert.False(t, mail.processed["m-bad"], "failed message must stay unprocessed for retry next run")
	require.NotNil(t, repo.entries["c-1:2025-08"])
}

func TestIngestAbortsOnAuthFailure(t *testing.T) {
	mail := newFakeMail()
	mail.add("m-1", gmail.Attachment{Filename: "a.pdf", Data: []byte(seoPageText)})
	mail.add("m-2", gmail.Attachment{Filename: "b.pdf", Data: []byte(seoPageText)})
	mail.metadataErr["m-1"] = appErrors.Clone(appErrors.ErrUnauthorized, "token revoked")

	svc, _ := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
	assert.False(t, mail.processed["m-2"], "run must stop at the auth failure")
}

func TestIngestVanishedMessageIsSkippedQuietly(t *testing.T) {
	mail := newFakeMail()
	mail.add("m-1")
	mail.fetchErr["m-1"] = appErrors.Clone(appErrors.ErrNotFound, "message gone")

	svc, _ := newIngestFixture(t, mail, []models.ClientRecord{brightside()}, nil)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.False(t, mail.processed["m-1"])
}
