package infra

// pdf.go renders the CRM entry listing as a landscape A4 table using
// go-pdf/fpdf. Columns mirror the JSON entry object minus the id.

import (
	"bytes"
	"fmt"
	"time"

	"salescrm/internal/model"

	"github.com/go-pdf/fpdf"
)

type reportColumn struct {
	title string
	width float64 // mm
	value func(e model.CRMEntry) string
}

var reportColumns = []reportColumn{
	{"Submitted", 30, func(e model.CRMEntry) string { return e.SubmissionTime.UTC().Format("2006-01-02 15:04") }},
	{"Person", 32, func(e model.CRMEntry) string { return e.PersonName }},
	{"Company", 32, func(e model.CRMEntry) string { return e.CompanyName }},
	{"Department", 26, func(e model.CRMEntry) string { return e.Department }},
	{"Case", 40, func(e model.CRMEntry) string { return e.Case }},
	{"Status", 22, func(e model.CRMEntry) string { return e.Status }},
	{"Next steps", 50, func(e model.CRMEntry) string { return e.NextSteps }},
	{"Sales person", 25, func(e model.CRMEntry) string { return e.SalePerson }},
}

// RenderEntriesPDF returns a PDF document listing entries in the given order.
// subtitle describes the active filters and may be empty.
func RenderEntriesPDF(entries []model.CRMEntry, subtitle string, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range reportColumns {
			pdf.CellFormat(col.width, 6, col.title, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 7)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "CRM entries", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	line := fmt.Sprintf("Generated %s UTC, %d entries", generatedAt.UTC().Format("2006-01-02 15:04"), len(entries))
	if subtitle != "" {
		line += " | " + subtitle
	}
	pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	header()

	_, pageH := pdf.GetPageSize()
	for _, e := range entries {
		if pdf.GetY() > pageH-20 {
			pdf.AddPage()
			header()
		}
		for _, col := range reportColumns {
			pdf.CellFormat(col.width, 5, tr(truncate(col.value(e), col.width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(entries) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, "No entries found.", "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render report: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate keeps a cell on one line, about 1.1 characters per mm at 7pt.
func truncate(s string, width float64) string {
	limit := int(width * 1.1)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
