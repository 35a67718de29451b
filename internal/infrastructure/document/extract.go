// Package document extracts text from uploads and renders summaries as PDF.
// Spreadsheets are read as a table from their first sheet.
package document

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	pdf "rsc.io/pdf"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
)

const defaultMaxChars = 12000

// Extractor pulls plain text out of uploaded documents.
type Extractor struct {
	maxChars int
}

// NewExtractor creates an extractor that truncates text to maxChars.
func NewExtractor(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = defaultMaxChars
	}
	return &Extractor{maxChars: maxChars}
}

// Extract returns the text of a .pdf, .docx, .txt or .md upload. Spreadsheets
// (.csv, .xlsx) are returned as a table summary.
func (e *Extractor) Extract(filename string, content []byte) (text string, err error) {
	if len(content) == 0 {
		return "", billingerrors.MalformedInput("uploaded file is empty")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = e.extractPDF(content)
	case ".docx":
		text, err = e.extractDOCX(content)
	case ".csv", ".xlsx", ".xls":
		var table *Table
		if table, err = ParseTable(filename, content, 0); err == nil {
			text = table.Summary(summarySampleRows)
		}
	case ".txt", ".md":
		if !utf8.Valid(content) {
			return "", billingerrors.MalformedInput("text file is not valid UTF-8")
		}
		text = string(content)
	default:
		return "", billingerrors.MalformedInput("unsupported file type; upload a .pdf, .docx, .txt, .md, .csv or .xlsx file")
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", billingerrors.MalformedInput("no text could be extracted from the document")
	}
	return truncate(text, e.maxChars), nil
}

// Preview returns the header and the first rows of a spreadsheet upload.
func (e *Extractor) Preview(filename string, content []byte, rows int) ([]string, []map[string]string, error) {
	table, err := ParseTable(filename, content, rows)
	if err != nil {
		return nil, nil, err
	}
	return table.Columns, table.Records(rows), nil
}

// Sample summarizes the first sampleSize rows of a spreadsheet upload.
func (e *Extractor) Sample(filename string, content []byte, sampleSize int) (string, error) {
	table, err := ParseTable(filename, content, sampleSize)
	if err != nil {
		return "", err
	}
	if len(table.Rows) == 0 {
		return "", billingerrors.MalformedInput("spreadsheet has no data rows")
	}
	return truncate(table.Summary(sampleSize), e.maxChars), nil
}

func (e *Extractor) extractPDF(content []byte) (text string, err error) {
	// rsc.io/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = billingerrors.MalformedInput(fmt.Sprintf("unreadable PDF: %v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", billingerrors.MalformedInput("unreadable PDF: " + err.Error())
	}

	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, t := range page.Content().Text {
			buf.WriteString(t.S)
		}
		buf.WriteString("\n\n")
		if buf.Len() >= e.maxChars {
			break
		}
	}
	return buf.String(), nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
