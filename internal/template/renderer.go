// Package template renders client notification emails from extracted
// reports: subject line, HTML body with a metric table, and a plain-text
// alternative for mail clients that want one.
package template

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/internal/parser"
	"github.com/seacliff-digital/reportpilot/pkg/config"
)

const htmlBody = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, Helvetica, sans-serif; color: #222; max-width: 640px;">
  <p>Hi {{.Greeting}},</p>
  <p>{{.Intro}}</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr style="background: #f4f4f4;">
      <th style="text-align: left; padding: 8px; border-bottom: 2px solid #ddd;">Metric</th>
      <th style="text-align: right; padding: 8px; border-bottom: 2px solid #ddd;">Value</th>
      <th style="text-align: right; padding: 8px; border-bottom: 2px solid #ddd;">Change</th>
    </tr>
    {{- range .Metrics}}
    <tr>
      <td style="padding: 8px; border-bottom: 1px solid #eee;">{{.Name}}</td>
      <td style="text-align: right; padding: 8px; border-bottom: 1px solid #eee;">{{.Value}}</td>
      <td style="text-align: right; padding: 8px; border-bottom: 1px solid #eee;">{{.Delta}}</td>
    </tr>
    {{- end}}
  </table>
  <p>{{.Closing}}</p>
  <p>
    {{.Agency.Name}}<br>
    {{if .Agency.Email}}{{.Agency.Email}}<br>{{end}}
    {{- if .Agency.Phone}}{{.Agency.Phone}}<br>{{end}}
    {{- if .Agency.Website}}{{.Agency.Website}}{{end}}
  </p>
</body>
</html>
`

const textBody = `Hi {{.Greeting}},

{{.Intro}}

{{range .Metrics}}{{.Name}}: {{.Value}}{{if .Delta}} ({{.Delta}}){{end}}
{{end}}
{{.Closing}}

{{.Agency.Name}}
{{if .Agency.Email}}{{.Agency.Email}}
{{end}}{{if .Agency.Phone}}{{.Agency.Phone}}
{{end}}{{if .Agency.Website}}{{.Agency.Website}}
{{end}}`

// Rendered is a ready-to-store notification.
type Rendered struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Renderer builds notifications with the agency's configured copy.
type Renderer struct {
	agency config.AgencyConfig
	html   *htmltemplate.Template
	text   *texttemplate.Template
}

// NewRenderer parses the notification templates once.
func NewRenderer(agency config.AgencyConfig) (*Renderer, error) {
	html, err := htmltemplate.New("html").Parse(htmlBody)
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	text, err := texttemplate.New("text").Parse(textBody)
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &Renderer{agency: agency, html: html, text: text}, nil
}

type metricRow struct {
	Name  string
	Value string
	Delta string
}

type bodyData struct {
	Greeting string
	Intro    string
	Closing  string
	Metrics  []metricRow
	Agency   config.AgencyConfig
}

// KindLabel is the reader-facing name of a report kind.
func KindLabel(kind models.ReportKind) string {
	if kind == models.ReportKindPaidSearch {
		return "Google Ads"
	}
	return "SEO"
}

// Subject builds the notification subject for a report and period.
func (r *Renderer) Subject(report models.ExtractedReport) string {
	return fmt.Sprintf("Your %s %s Report",
		report.PeriodEnd.Format("January 2006"), KindLabel(report.Kind))
}

// Render builds the full notification for a matched client. Unavailable
// metrics render as N/A rather than being dropped, so the reader sees the
// same table shape every month.
func (r *Renderer) Render(report models.ExtractedReport, client models.ClientRecord) (Rendered, error) {
	data := bodyData{
		Greeting: greeting(client),
		Intro:    r.intro(report.Kind),
		Closing:  r.agency.ClosingParagraph,
		Agency:   r.agency,
	}
	for _, m := range report.Metrics {
		row := metricRow{Name: m.Name, Value: parser.FormatValue(m.Value)}
		if m.Value.Delta != nil {
			row.Delta = formatDelta(*m.Value.Delta)
		}
		data.Metrics = append(data.Metrics, row)
	}

	var html bytes.Buffer
	if err := r.html.Execute(&html, data); err != nil {
		return Rendered{}, fmt.Errorf("render html body: %w", err)
	}
	var text bytes.Buffer
	if err := r.text.Execute(&text, data); err != nil {
		return Rendered{}, fmt.Errorf("render text body: %w", err)
	}

	return Rendered{
		Subject:  r.Subject(report),
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}

func (r *Renderer) intro(kind models.ReportKind) string {
	if kind == models.ReportKindPaidSearch && r.agency.PaidParagraph != "" {
		return r.agency.PaidParagraph
	}
	if kind == models.ReportKindSEO && r.agency.SEOParagraph != "" {
		return r.agency.SEOParagraph
	}
	return fmt.Sprintf("Here is your monthly %s performance summary.", KindLabel(kind))
}

func greeting(client models.ClientRecord) string {
	name := strings.TrimSpace(client.ContactName)
	if name == "" {
		return "there"
	}
	return strings.Fields(name)[0]
}

// formatDelta renders a change value with its explicit sign.
func formatDelta(delta models.MetricValue) string {
	if delta.Kind != models.MetricPercentage {
		return parser.FormatValue(delta)
	}
	formatted := parser.FormatValue(delta)
	if !strings.HasPrefix(formatted, "-") {
		return "+" + formatted
	}
	return formatted
}
