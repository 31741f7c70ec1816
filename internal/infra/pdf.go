package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"minimalgym/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateReceiptPDF renders a narrow thermal-style receipt for sale into
// storagePath/receipt_<number>.pdf and returns the file path. The sale must be
// loaded with Items.Product and Payments.PaymentMethod.
func GenerateReceiptPDF(sale *model.Sale, businessName, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, "receipt_"+safeFileName(sale.ReceiptNumber)+".pdf")

	// 80mm roll width; height grows with the number of lines.
	height := 70.0 + 5*float64(len(sale.Items)+len(sale.Payments))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tr(businessName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Receipt "+sale.ReceiptNumber, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, sale.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	if sale.Member != nil {
		pdf.CellFormat(contentW, 4, tr(sale.Member.FullName), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Lines ─────────────────────────────────────────────────────────────────
	colName := contentW * 0.52
	colQty := contentW * 0.16
	colAmt := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(colName, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colAmt, 5, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range sale.Items {
		name := item.ProductID.String()[:8]
		if item.Product != nil {
			name = item.Product.Name
		}
		if len(name) > 24 {
			name = name[:23] + "."
		}
		pdf.CellFormat(colName, 5, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, 5, fmt.Sprintf("x%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(colAmt, 5, item.LineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ────────────────────────────────────────────────────────────────
	row := func(label, value string) {
		pdf.CellFormat(colName+colQty, 4, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(colAmt, 4, value, "", 1, "R", false, 0, "")
	}
	row("Subtotal", sale.Subtotal.StringFixed(2))
	if !sale.Discount.IsZero() {
		row("Discount", "-"+sale.Discount.StringFixed(2))
	}
	if !sale.Tax.IsZero() {
		row("Tax", sale.Tax.StringFixed(2))
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colName+colQty, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(colAmt, 6, sale.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Payments ──────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	for _, p := range sale.Payments {
		method := "Payment"
		if p.PaymentMethod != nil {
			method = p.PaymentMethod.Name
		}
		row(tr(method), p.Amount.StringFixed(2))
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func safeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
