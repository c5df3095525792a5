// Package pdfpage decodes the first page of a report PDF into the line text
// and row cells the KPI parser consumes.
package pdfpage

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the decoded content of a report's first page. Text carries one
// rendered row per line; Rows carries the same rows as word cells for
// table-style fallback extraction.
type Page struct {
	Text string
	Rows [][]string
}

// Decode reads a PDF from raw bytes and decodes its first page. Reports are
// single-page exports; later pages are ignored.
func Decode(data []byte) (Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Page{}, err
	}
	if reader.NumPage() == 0 {
		return Page{}, nil
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return Page{}, nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return Page{}, err
	}

	var text strings.Builder
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		words := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if w := strings.TrimSpace(word.S); w != "" {
				words = append(words, w)
			}
		}
		if len(words) == 0 {
			continue
		}
		cells = append(cells, words)
		text.WriteString(strings.Join(words, " "))
		text.WriteByte('\n')
	}

	return Page{Text: text.String(), Rows: cells}, nil
}
