package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/pkg/export"
)

// ExportService renders ledger snapshots for reviewers: a CSV dump, a
// standalone HTML review page, and a PDF batch summary.
type ExportService struct {
	approvals *ApprovalService
	csv       *export.CSVExporter
	html      *export.HTMLExporter
	pdf       *export.PDFExporter
	store     reportStore
	logger    *zap.Logger
}

// NewExportService constructs an ExportService writing into the export store.
func NewExportService(approvals *ApprovalService, store reportStore, logger *zap.Logger) (*ExportService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	html, err := export.NewHTMLExporter()
	if err != nil {
		return nil, err
	}
	return &ExportService{
		approvals: approvals,
		csv:       export.NewCSVExporter(),
		html:      html,
		pdf:       export.NewPDFExporter(),
		store:     store,
		logger:    logger,
	}, nil
}

var ledgerHeaders = []string{
	"Entry ID", "Business", "Period", "Kind", "Contact", "Status", "Notes", "Extraction Errors",
}

func ledgerDataset(title string, entries []models.ApprovalEntry) export.Dataset {
	data := export.Dataset{Title: title, Headers: ledgerHeaders}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			e.EntryID,
			e.BusinessName,
			e.Period,
			string(e.ReportKind),
			e.ContactEmail,
			string(e.Status),
			e.Notes,
			strings.Join(e.ExtractionErrors, "; "),
		})
		data.RowClasses = append(data.RowClasses, statusClass(e.Status))
	}
	return data
}

// statusClass maps a ledger status to the review page's row CSS class,
// e.g. "Needs Revision" -> "status-needs-revision".
func statusClass(status models.ApprovalStatus) string {
	return "status-" + strings.ReplaceAll(strings.ToLower(string(status)), " ", "-")
}

// LedgerCSV renders the ledger, optionally filtered by status, as CSV.
func (s *ExportService) LedgerCSV(ctx context.Context, status models.ApprovalStatus) ([]byte, error) {
	entries, err := s.approvals.List(ctx, status)
	if err != nil {
		return nil, err
	}
	return s.csv.Render(ledgerDataset("Approval Ledger", entries))
}

// ReviewPageHTML renders the entries awaiting a reviewer decision as a
// standalone page.
func (s *ExportService) ReviewPageHTML(ctx context.Context) ([]byte, error) {
	pending, err := s.approvals.List(ctx, models.StatusPending)
	if err != nil {
		return nil, err
	}
	revision, err := s.approvals.List(ctx, models.StatusNeedsRevision)
	if err != nil {
		return nil, err
	}
	return s.html.Render(ledgerDataset("Entries Awaiting Review", append(pending, revision...)))
}

// BatchSummaryPDF renders status totals plus the full ledger as a PDF.
func (s *ExportService) BatchSummaryPDF(ctx context.Context, generatedAt time.Time) ([]byte, error) {
	counts, err := s.approvals.Summary(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.approvals.List(ctx, "")
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Report Batch Summary",
		Headers: []string{"Entry ID", "Business", "Period", "Status"},
	}
	for _, status := range models.AllStatuses {
		data.Rows = append(data.Rows, []string{
			"", fmt.Sprintf("Total %s", status), "", strconv.Itoa(counts[status]),
		})
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			e.EntryID, e.BusinessName, e.Period, string(e.Status),
		})
	}
	return s.pdf.Render(data, generatedAt)
}

// WriteAll renders every export format into the export store and returns
// the written paths.
func (s *ExportService) WriteAll(ctx context.Context, now time.Time) ([]string, error) {
	stamp := now.Format("2006-01-02")

	csvBytes, err := s.LedgerCSV(ctx, "")
	if err != nil {
		return nil, err
	}
	htmlBytes, err := s.ReviewPageHTML(ctx)
	if err != nil {
		return nil, err
	}
	pdfBytes, err := s.BatchSummaryPDF(ctx, now)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, file := range []struct {
		name string
		data []byte
	}{
		{fmt.Sprintf("ledger-%s.csv", stamp), csvBytes},
		{fmt.Sprintf("review-%s.html", stamp), htmlBytes},
		{fmt.Sprintf("summary-%s.pdf", stamp), pdfBytes},
	} {
		path, err := s.store.Save(file.name, file.data)
		if err != nil {
			return paths, fmt.Errorf("write export %s: %w", file.name, err)
		}
		paths = append(paths, path)
	}
	s.logger.Info("wrote ledger exports", zap.Strings("paths", paths))
	return paths, nil
}
