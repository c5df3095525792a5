package export

import (
	"bytes"
	"fmt"
	"html/template"
)

const htmlPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, Helvetica, sans-serif; margin: 24px; color: #222; }
    h1 { font-size: 20px; }
    table { border-collapse: collapse; width: 100%; }
    th, td { padding: 8px 10px; border-bottom: 1px solid #ddd; text-align: left; }
    th { background: #f4f4f4; }
    tr:hover td { background: #fafafa; }
    tr.status-pending td { background: #fff8e1; }
    tr.status-approved td { background: #e8f5e9; }
    tr.status-needs-revision td { background: #ffebee; }
    tr.status-sent td { background: #eceff1; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <table>
    <tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
    {{- range .Rows}}
    <tr{{if .Class}} class="{{.Class}}"{{end}}>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
    {{- end}}
  </table>
</body>
</html>
`

type htmlRow struct {
	Class string
	Cells []string
}

type htmlView struct {
	Title   string
	Headers []string
	Rows    []htmlRow
}

// HTMLExporter renders datasets into a standalone review page with
// per-status row colouring when the dataset carries row classes.
type HTMLExporter struct {
	tmpl *template.Template
}

// NewHTMLExporter parses the page template once.
func NewHTMLExporter() (*HTMLExporter, error) {
	tmpl, err := template.New("page").Parse(htmlPage)
	if err != nil {
		return nil, fmt.Errorf("parse html export template: %w", err)
	}
	return &HTMLExporter{tmpl: tmpl}, nil
}

// Render produces the HTML page bytes for the dataset.
func (e *HTMLExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("html requires at least one header")
	}
	if len(data.RowClasses) > 0 && len(data.RowClasses) != len(data.Rows) {
		return nil, fmt.Errorf("html has %d row classes for %d rows", len(data.RowClasses), len(data.Rows))
	}

	view := htmlView{Title: data.Title, Headers: data.Headers}
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return nil, fmt.Errorf("html row width %d does not match %d headers", len(row), len(data.Headers))
		}
		class := ""
		if len(data.RowClasses) > 0 {
			class = data.RowClasses[i]
		}
		view.Rows = append(view.Rows, htmlRow{Class: class, Cells: row})
	}

	buf := &bytes.Buffer{}
	if err := e.tmpl.Execute(buf, view); err != nil {
		return nil, fmt.Errorf("render html export: %w", err)
	}
	return buf.Bytes(), nil
}
