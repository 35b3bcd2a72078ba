package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Section groups free-form lines and an optional table under a heading.
type Section struct {
	Heading string
	Lines   []string
	Table   *Dataset
}

// Document describes a sectioned export such as a proposal dossier.
type Document struct {
	Title    string
	Sections []Section
}

// PDFExporter renders documents into a simple A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF with the document title, section headings, body lines
// and tables.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "L", false, 0, "")
		}

		pdf.SetFont("Arial", "", 10)
		for _, line := range section.Lines {
			pdf.MultiCell(0, 6, line, "", "L", false)
		}

		if section.Table != nil && len(section.Table.Headers) > 0 {
			pdf.Ln(1)
			e.renderTable(pdf, *section.Table)
		}
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderTable(pdf *gofpdf.Fpdf, data Dataset) {
	colWidth := 190.0 / float64(len(data.Headers))

	pdf.SetFont("Arial", "B", 9)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 6, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
