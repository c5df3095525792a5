package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/gmail"
	"github.com/seacliff-digital/reportpilot/internal/matcher"
	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/internal/parser"
	"github.com/seacliff-digital/reportpilot/internal/pdfpage"
	"github.com/seacliff-digital/reportpilot/internal/template"
	"github.com/seacliff-digital/reportpilot/pkg/config"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

type mailSource interface {
	Search(ctx context.Context, query string, maxResults int64) ([]string, error)
	Metadata(ctx context.Context, messageID string) (gmail.MessageMeta, error)
	FetchAttachments(ctx context.Context, messageID string) ([]gmail.Attachment, error)
	EnsureProcessedLabel(ctx context.Context, name string) (string, error)
	MarkProcessed(ctx context.Context, messageID, labelID string) error
}

type clientSource interface {
	ListActive(ctx context.Context) ([]models.ClientRecord, error)
}

type reportStore interface {
	Save(filename string, data []byte) (string, error)
}

// SeenStore is the crash-recovery dedup cache. A nil store disables it and
// ingestion relies on the processed label plus the ledger existence check.
type SeenStore interface {
	Seen(ctx context.Context, messageID string) (bool, error)
	Mark(ctx context.Context, messageID string) error
}

// RunSummary tallies one ingestion run for logging and exit reporting.
type RunSummary struct {
	MessagesFound  int
	ReportsParsed  int
	EntriesCreated int
	SkippedSeen    int
	SkippedExists  int
	Ambiguous      int
	NotFound       int
	Failures       []string
	Elapsed        time.Duration
}

// IngestService runs the full ingestion pass: search the mailbox, download
// report PDFs, parse and match them, and record ledger entries. Messages
// are handled strictly one at a time so a single malformed report cannot
// take down the batch and ledger writes stay ordered.
type IngestService struct {
	mail       mailSource
	clients    clientSource
	approvals  *ApprovalService
	parser     *parser.Parser
	renderer   *template.Renderer
	store      reportStore
	seen       SeenStore
	metrics    *MetricsService
	cfg        config.GmailConfig
	matcherCfg config.MatcherConfig
	logger     *zap.Logger

	decode func([]byte) (pdfpage.Page, error)
}

// NewIngestService wires the ingestion pipeline.
func NewIngestService(
	mail mailSource,
	clients clientSource,
	approvals *ApprovalService,
	kpiParser *parser.Parser,
	renderer *template.Renderer,
	store reportStore,
	seen SeenStore,
	metrics *MetricsService,
	cfg config.GmailConfig,
	matcherCfg config.MatcherConfig,
	logger *zap.Logger,
) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		mail:       mail,
		clients:    clients,
		approvals:  approvals,
		parser:     kpiParser,
		renderer:   renderer,
		store:      store,
		seen:       seen,
		metrics:    metrics,
		cfg:        cfg,
		matcherCfg: matcherCfg,
		logger:     logger,
		decode:     pdfpage.Decode,
	}
}

// WithDecoder swaps the PDF decoder, for tests.
func (s *IngestService) WithDecoder(decode func([]byte) (pdfpage.Page, error)) *IngestService {
	s.decode = decode
	return s
}

// Run executes one ingestion pass and returns its summary. Per-message
// failures are collected, not fatal; only mailbox-wide failures (search,
// registry load, label bootstrap) abort the run.
func (s *IngestService) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{}
	defer func() {
		summary.Elapsed = time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveRunDuration(summary.Elapsed)
		}
	}()

	registry, err := s.clients.ListActive(ctx)
	if err != nil {
		return summary, err
	}
	m := matcher.New(matcher.Config{
		Threshold:       s.matcherCfg.Threshold,
		AmbiguityMargin: s.matcherCfg.AmbiguityMargin,
	}, registry)
	if dups := m.DuplicateNames(); len(dups) > 0 {
		s.logger.Warn("registry contains duplicate business names",
			zap.Strings("names", dups))
	}
	clientsByID := make(map[string]models.ClientRecord, len(registry))
	for _, c := range registry {
		clientsByID[c.ClientID] = c
	}

	labelID, err := s.mail.EnsureProcessedLabel(ctx, s.cfg.ProcessedLabel)
	if err != nil {
		return summary, err
	}

	query := gmail.BuildQuery(s.cfg.SenderAddresses, s.cfg.UnreadOnly, s.cfg.ProcessedLabel)
	messageIDs, err := s.mail.Search(ctx, query, int64(s.cfg.MaxResults))
	if err != nil {
		return summary, err
	}
	summary.MessagesFound = len(messageIDs)
	s.logger.Info("ingestion run started",
		zap.Int("messages", len(messageIDs)),
		zap.String("query", query))

	for _, messageID := range messageIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := s.processMessage(ctx, messageID, m, clientsByID, labelID, summary); err != nil {
			// Auth failures poison every later call; stop instead of
			// burning the rest of the batch.
			if appErrors.HasCode(err, appErrors.ErrUnauthorized) {
				return summary, err
			}
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("message %s: %v", messageID, err))
			s.logger.Error("message processing failed",
				zap.String("message_id", messageID), zap.Error(err))
		}
	}

	s.logger.Info("ingestion run finished",
		zap.Int("parsed", summary.ReportsParsed),
		zap.Int("created", summary.EntriesCreated),
		zap.Int("ambiguous", summary.Ambiguous),
		zap.Int("not_found", summary.NotFound),
		zap.Int("failures", len(summary.Failures)))
	return summary, nil
}

func (s *IngestService) processMessage(
	ctx context.Context,
	messageID string,
	m *matcher.Matcher,
	clientsByID map[string]models.ClientRecord,
	labelID string,
	summary *RunSummary,
) error {
	if s.seen != nil {
		seen, err := s.seen.Seen(ctx, messageID)
		if err != nil {
			s.logger.Warn("seen cache unavailable", zap.Error(err))
		} else if seen {
			summary.SkippedSeen++
			return nil
		}
	}

	meta, err := s.mail.Metadata(ctx, messageID)
	if err != nil {
		return err
	}

	attachments, err := s.mail.FetchAttachments(ctx, messageID)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			// Message deleted between search and fetch; nothing to do.
			s.logger.Warn("message disappeared before fetch",
				zap.String("message_id", messageID))
			return nil
		}
		return err
	}
	if len(attachments) == 0 {
		s.logger.Warn("message matched search but carries no pdf",
			zap.String("message_id", messageID),
			zap.String("subject", meta.Subject))
		return s.finishMessage(ctx, messageID, labelID)
	}

	for _, att := range attachments {
		if err := s.processAttachment(ctx, att, m, clientsByID, summary); err != nil {
			summary.Failures = append(summary.Failures,
				fmt.Sprintf("attachment %s: %v", att.Filename, err))
			if s.metrics != nil {
				s.metrics.ObserveReport("failed")
			}
			s.logger.Error("attachment processing failed",
				zap.String("message_id", messageID),
				zap.String("filename", att.Filename),
				zap.Error(err))
		}
	}

	return s.finishMessage(ctx, messageID, labelID)
}

func (s *IngestService) finishMessage(ctx context.Context, messageID, labelID string) error {
	if err := s.mail.MarkProcessed(ctx, messageID, labelID); err != nil {
		return err
	}
	if s.seen != nil {
		if err := s.seen.Mark(ctx, messageID); err != nil {
			s.logger.Warn("seen cache write failed", zap.Error(err))
		}
	}
	return nil
}

func (s *IngestService) processAttachment(
	ctx context.Context,
	att gmail.Attachment,
	m *matcher.Matcher,
	clientsByID map[string]models.ClientRecord,
	summary *RunSummary,
) error {
	path, err := s.store.Save(att.Filename, att.Data)
	if err != nil {
		return fmt.Errorf("persist attachment: %w", err)
	}

	page, err := s.decode(att.Data)
	if err != nil {
		return fmt.Errorf("decode pdf: %w", err)
	}

	report := s.parser.Parse(page.Text, page.Rows)
	report.SourceFile = path
	summary.ReportsParsed++

	if report.BusinessName == "" {
		if s.metrics != nil {
			s.metrics.ObserveReport("unparseable")
		}
		return fmt.Errorf("no business name extracted (errors: %s)",
			strings.Join(report.ExtractionErrors, "; "))
	}

	match := m.Match(report.BusinessName)
	if s.metrics != nil {
		s.metrics.ObserveMatch(string(match.Outcome))
	}
	switch match.Outcome {
	case models.MatchAmbiguous:
		summary.Ambiguous++
		s.logger.Warn("ambiguous client match, skipping report",
			zap.String("business_name", report.BusinessName),
			zap.Int("candidates", len(match.Candidates)))
		return nil
	case models.MatchNotFound:
		summary.NotFound++
		s.logger.Warn("no client matched report",
			zap.String("business_name", report.BusinessName))
		return nil
	}

	client := clientsByID[match.ClientID]
	period := report.Period()
	if period == "" {
		if s.metrics != nil {
			s.metrics.ObserveReport("unparseable")
		}
		return fmt.Errorf("no reporting period extracted for %q", report.BusinessName)
	}

	exists, err := s.approvals.Exists(ctx, client.ClientID, period)
	if err != nil {
		return err
	}
	if exists {
		summary.SkippedExists++
		s.logger.Info("ledger entry already present, skipping",
			zap.String("client_id", client.ClientID),
			zap.String("period", period))
		return nil
	}

	rendered, err := s.renderer.Render(report, client)
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	entry := &models.ApprovalEntry{
		ClientID:         client.ClientID,
		BusinessName:     client.BusinessName,
		Period:           period,
		ReportKind:       report.Kind,
		ContactEmail:     client.ContactEmail,
		EmailSubject:     rendered.Subject,
		HTMLBody:         rendered.HTMLBody,
		TextBody:         rendered.TextBody,
		PDFPath:          path,
		ExtractionErrors: report.ExtractionErrors,
	}
	if err := s.approvals.Record(ctx, entry); err != nil {
		return err
	}
	summary.EntriesCreated++
	if s.metrics != nil {
		if report.Partial() {
			s.metrics.ObserveReport("partial")
		} else {
			s.metrics.ObserveReport("clean")
		}
	}
	return nil
}
