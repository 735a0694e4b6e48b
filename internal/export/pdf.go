// Package export projects an assembled report onto portable document
// formats. Export failure never invalidates the report itself; callers
// keep the content and may retry elsewhere.
package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/wharfside/deepresearch/internal/report"
)

type ExportError struct {
	Format string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s export failed: %v", e.Format, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

type headingStyle struct {
	size    float64
	spacing float64
}

var headingStyles = map[int]headingStyle{
	1: {size: 18, spacing: 8},
	2: {size: 15, spacing: 6},
	3: {size: 12, spacing: 5},
}

// PDFExporter writes report blocks as a single-column PDF document.
type PDFExporter struct {
	Title string
}

func (e PDFExporter) Export(w io.Writer, blocks []report.Block) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	if e.Title != "" {
		pdf.SetFont("Helvetica", "B", 20)
		pdf.MultiCell(0, 10, e.Title, "", "C", false)
		pdf.Ln(6)
	}

	for _, block := range blocks {
		if style, ok := headingStyles[block.Heading]; ok {
			pdf.Ln(style.spacing)
			pdf.SetFont("Helvetica", "B", style.size)
			pdf.MultiCell(0, style.size/2, block.Text, "", "L", false)
			continue
		}
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, block.Text, "", "L", false)
		pdf.Ln(2)
	}

	if err := pdf.Output(w); err != nil {
		return &ExportError{Format: "pdf", Err: err}
	}
	return nil
}
