package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// SummaryTitle heads every rendered summary.
const SummaryTitle = "Summary of the document"

// Renderer lays out summaries on US Letter pages.
type Renderer struct{}

// NewRenderer creates a PDF renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render returns a PDF with the title followed by the summary paragraphs.
func (r *Renderer) Render(summary string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(20, 20, 20)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()

	// Core fonts are cp1252; translate so accented text survives.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 20)
	doc.CellFormat(0, 12, SummaryTitle, "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "", 11)
	for _, para := range strings.Split(strings.ReplaceAll(summary, "\r\n", "\n"), "\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			doc.Ln(3)
			continue
		}
		doc.MultiCell(0, 6, tr(para), "", "L", false)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render summary pdf: %w", err)
	}
	return buf.Bytes(), nil
}
