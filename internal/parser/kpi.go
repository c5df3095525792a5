// Package parser extracts structured KPI records from already-decoded report
// pages. It is deliberately total: malformed input produces a best-effort
// ExtractedReport with per-field extraction errors, never a panic or error
// return, because flagged entries are reviewed by a human downstream.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/seacliff-digital/reportpilot/internal/models"
)

// Vocabularies list metric names in the exact order they appear in the
// report layout for each kind.
var (
	seoVocabulary = []string{
		"Sessions",
		"Active users",
		"New users",
		"Key events",
		"Engagement rate",
		"Bounce rate",
		"Average session duration",
	}

	paidSearchVocabulary = []string{
		"Clicks",
		"Impressions",
		"CTR",
		"Conversions",
		"Conv. rate",
		"Avg. CPC",
		"Cost",
	}
)

// Vocabulary returns the ordered metric names for a report kind.
func Vocabulary(kind models.ReportKind) []string {
	if kind == models.ReportKindPaidSearch {
		return paidSearchVocabulary
	}
	return seoVocabulary
}

const headerRegionLines = 10

var (
	dateToken     = `[A-Z][a-z]{2} \d{1,2}, \d{4}`
	dateRangeRe   = regexp.MustCompile(`(` + dateToken + `)\s*-\s*(` + dateToken + `)`)
	singleDateRe  = regexp.MustCompile(dateToken)
	deltaTokenRe  = regexp.MustCompile(`[+-][\d,]+(?:\.\d+)?%|(?i:N/A)`)
	leadKeywords  = []string{"SEO Report for", "Google Ads Report for"}
	nameAfterLead = regexp.MustCompile(`^\s*(.+?)(?:\s+` + dateToken + `.*)?$`)
)

// Options tunes extraction policy knobs that were inferred from observed
// report behaviour rather than a documented contract.
type Options struct {
	// PreferLaterLine breaks metric-line score ties in favour of the line
	// appearing later in the document.
	PreferLaterLine bool
}

// Parser turns decoded page content into ExtractedReports.
type Parser struct {
	preferLaterLine bool
}

// New builds a Parser.
func New(opts Options) *Parser {
	return &Parser{preferLaterLine: opts.PreferLaterLine}
}

// Parse extracts a report from one page of text plus any decoded table rows.
// It never returns an error; all failure is carried in ExtractionErrors.
func (p *Parser) Parse(pageText string, pageTables [][]string) models.ExtractedReport {
	report := models.ExtractedReport{}

	lines := splitLines(pageText)
	header := lines
	if len(header) > headerRegionLines {
		header = header[:headerRegionLines]
	}

	name, ok := extractBusinessName(header)
	if ok {
		report.BusinessName = name
	} else {
		report.ExtractionErrors = append(report.ExtractionErrors, "could not extract business name")
	}

	if end, ok := extractPeriodEnd(header); ok {
		report.PeriodEnd = end
	} else {
		report.ExtractionErrors = append(report.ExtractionErrors, "could not extract reporting period")
	}

	kind, kindErr := p.detectKind(pageText, lines)
	report.Kind = kind
	if kindErr != "" {
		report.ExtractionErrors = append(report.ExtractionErrors, kindErr)
	}

	vocab := Vocabulary(kind)
	values := p.extractMetrics(lines, pageTables, vocab)

	for _, metricName := range vocab {
		value, ok := values[metricName]
		if !ok {
			value = models.Unavailable()
		}
		if value.Kind == models.MetricUnavailable {
			report.ExtractionErrors = append(report.ExtractionErrors,
				fmt.Sprintf("metric %q: value unavailable", metricName))
		}
		report.Metrics = append(report.Metrics, models.Metric{Name: metricName, Value: value})
	}

	return report
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// extractBusinessName scans the header for "<kind keyword> Report for <NAME>
// <date-range>" and returns the substring between the keyword and the first
// date token. Both lead keywords are tried; the first confident hit wins.
func extractBusinessName(header []string) (string, bool) {
	for _, line := range header {
		for _, keyword := range leadKeywords {
			idx := indexFold(line, keyword)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(keyword):]
			m := nameAfterLead.FindStringSubmatch(rest)
			if m == nil {
				continue
			}
			name := strings.Join(strings.Fields(m[1]), " ")
			if len(name) >= 2 {
				return name, true
			}
		}
	}
	return "", false
}

// extractPeriodEnd locates a "<start> - <end>" date range and returns the end
// date, the canonical reporting month. A single-date header uses that date.
func extractPeriodEnd(header []string) (time.Time, bool) {
	region := strings.Join(header, "\n")
	if m := dateRangeRe.FindStringSubmatch(region); m != nil {
		if end, err := time.Parse("Jan 2, 2006", m[2]); err == nil {
			return end, true
		}
	}
	if m := singleDateRe.FindString(region); m != "" {
		if end, err := time.Parse("Jan 2, 2006", m); err == nil {
			return end, true
		}
	}
	return time.Time{}, false
}

// detectKind picks the vocabulary that best matches the page content.
// Filenames and subject lines are not trusted; only the page decides.
func (p *Parser) detectKind(pageText string, lines []string) (models.ReportKind, string) {
	_, seoScore := p.bestLine(lines, seoVocabulary)
	_, paidScore := p.bestLine(lines, paidSearchVocabulary)

	switch {
	case paidScore > seoScore:
		return models.ReportKindPaidSearch, ""
	case seoScore > paidScore:
		return models.ReportKindSEO, ""
	}

	// Vocabulary scores tied; fall back to the header keyword.
	lower := strings.ToLower(pageText)
	if strings.Contains(lower, "google ads") {
		return models.ReportKindPaidSearch, ""
	}
	if strings.Contains(lower, "seo report") {
		return models.ReportKindSEO, ""
	}
	return models.ReportKindSEO, "could not detect report kind"
}

// lineScore counts how many vocabulary names the line contains in the
// correct relative order. Walking the vocabulary and only searching forward
// of the previous hit keeps section headers with out-of-order or subset
// name mentions from outscoring the true data row.
func lineScore(line string, vocab []string) int {
	lower := strings.ToLower(line)
	pos := 0
	score := 0
	for _, name := range vocab {
		idx := strings.Index(lower[pos:], strings.ToLower(name))
		if idx < 0 {
			continue
		}
		score++
		pos += idx + len(name)
	}
	return score
}

// bestLine returns the index and score of the highest-scoring line, or
// (-1, 0) when no line contains any vocabulary name.
func (p *Parser) bestLine(lines []string, vocab []string) (int, int) {
	best := -1
	bestScore := 0
	for i, line := range lines {
		score := lineScore(line, vocab)
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && p.preferLaterLine) {
			best = i
			bestScore = score
		}
	}
	return best, bestScore
}

// extractMetrics resolves a value (and optional delta) per vocabulary name.
// The primary layout is three stacked lines: metric names, values, changes.
// Table rows act as a fallback for names the line layout did not yield.
func (p *Parser) extractMetrics(lines []string, tables [][]string, vocab []string) map[string]models.MetricValue {
	out := make(map[string]models.MetricValue, len(vocab))

	headerIdx, score := p.bestLine(lines, vocab)
	if headerIdx >= 0 && score > 0 {
		p.parseMetricLines(lines, headerIdx, vocab, out)
	}

	for _, row := range tables {
		if len(row) < 2 {
			continue
		}
		for _, name := range vocab {
			if _, done := out[name]; done {
				continue
			}
			if !strings.Contains(strings.ToLower(row[0]), strings.ToLower(name)) {
				continue
			}
			value, err := ParseValue(row[1])
			if err != nil {
				continue
			}
			if len(row) > 2 {
				if delta, err := ParseDelta(row[2]); err == nil {
					value.Delta = &delta
				}
			}
			out[name] = value
		}
	}

	return out
}

func (p *Parser) parseMetricLines(lines []string, headerIdx int, vocab []string, out map[string]models.MetricValue) {
	header := lines[headerIdx]

	// Fields may render in a different order than the canonical vocabulary;
	// assignment follows their position in the header line.
	type placed struct {
		pos  int
		name string
	}
	lower := strings.ToLower(header)
	fields := make([]placed, 0, len(vocab))
	for _, name := range vocab {
		if pos := strings.Index(lower, strings.ToLower(name)); pos >= 0 {
			fields = append(fields, placed{pos: pos, name: name})
		}
	}
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j-1].pos > fields[j].pos; j-- {
			fields[j-1], fields[j] = fields[j], fields[j-1]
		}
	}

	if headerIdx+1 >= len(lines) {
		return
	}
	figures := tokenizeFigures(lines[headerIdx+1])

	var changes []string
	if headerIdx+2 < len(lines) {
		changes = deltaTokenRe.FindAllString(lines[headerIdx+2], -1)
	}

	for i, field := range fields {
		if i >= len(figures) {
			break
		}
		value, err := ParseValue(figures[i].raw)
		if err != nil {
			continue
		}
		if figures[i].delta != "" {
			if delta, err := ParseDelta(figures[i].delta); err == nil {
				value.Delta = &delta
			}
		} else if i < len(changes) {
			if delta, err := ParseDelta(changes[i]); err == nil {
				value.Delta = &delta
			}
		}
		out[field.name] = value
	}
}

type figure struct {
	raw   string
	delta string
}

// tokenizeFigures splits a values line into figures, folding an explicitly
// signed percentage that trails a value into that value's delta.
func tokenizeFigures(line string) []figure {
	tokens := valueToken.FindAllString(line, -1)
	figures := make([]figure, 0, len(tokens))
	for _, token := range tokens {
		signed := token[0] == '+' || token[0] == '-'
		if signed && len(figures) > 0 && figures[len(figures)-1].delta == "" {
			figures[len(figures)-1].delta = token
			continue
		}
		figures = append(figures, figure{raw: token})
	}
	return figures
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
