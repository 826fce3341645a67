package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"smart-health-server/internal/analytics"
)

// Template names, also used for the attachment file name.
const (
	TemplateSummary   = "report_summary"
	TemplateFinancial = "financial_report"
	TemplateActivity  = "user_activity_report"
)

var templateTitles = map[string]string{
	TemplateSummary:   "Appointment Summary Report",
	TemplateFinancial: "Financial Report",
	TemplateActivity:  "User Activity Report",
}

// Document is the context rendered into a report template.
type Document struct {
	DateFrom    string
	DateTo      string
	Figures     []analytics.Figure
	GeneratedAt time.Time
}

// Renderer turns a template and its context into a binary document.
type Renderer interface {
	Render(template string, doc Document) ([]byte, error)
}

// PDFRenderer lays reports out as single page A4 PDFs.
type PDFRenderer struct{}

func (PDFRenderer) Render(template string, doc Document) ([]byte, error) {
	title, ok := templateTitles[template]
	if !ok {
		return nil, fmt.Errorf("reports: unknown template %q", template)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetCreator("smart-health-server", false)
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
	}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Period: %s to %s", doc.DateFrom, doc.DateTo), "", 1, "L", false, 0, "")
	if !doc.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 8, "Generated: "+doc.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(110, 9, "Metric", "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 9, "Value", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	for _, f := range doc.Figures {
		pdf.CellFormat(110, 9, f.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 9, f.Value, "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("reports: render %s: %w", template, err)
	}
	return buf.Bytes(), nil
}
