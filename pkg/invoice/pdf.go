package invoice

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"
)

// RenderPDF produces a simple one-page PDF rendering of an invoice and its
// line items, for the public `.pdf` link variant.
func RenderPDF(inv Invoice, items []Item, payments []Payment) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Invoice "+inv.Number, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, "Status: "+inv.Status, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 7, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Unit", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Line total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	var total int64
	for _, it := range items {
		lineTotal := it.LineTotal()
		total += lineTotal
		pdf.CellFormat(90, 7, it.Description, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, formatCents(it.UnitCents), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, formatCents(lineTotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 7, "Total", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, formatCents(total), "T", 1, "R", false, 0, "")

	var paid int64
	for _, p := range payments {
		paid += p.AmountCents
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(150, 7, "Paid", "", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, formatCents(paid), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatCents(c int64) string {
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}
