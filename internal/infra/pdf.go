package infra

// pdf.go: invoice rendering with go-pdf/fpdf.
// Receipt-sized page (74mm wide) with:
//   - Company header from the tenant settings
//   - Invoice number, order id and timestamp
//   - Line table (product, quantity, line total)
//   - Subtotal / tax / discount / total, formatted in the tenant currency
//   - Payment method and customer name
//
// The output file is saved to storagePath/<tenant>/invoice_<number>.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"akppos/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// InvoiceDocument is everything printed on one invoice.
type InvoiceDocument struct {
	Number   string
	Order    *model.Order
	Settings *model.Settings
}

// GenerateInvoicePDF renders doc into storagePath (created if needed) and
// returns the path of the written file.
func GenerateInvoicePDF(doc InvoiceDocument, storagePath string) (string, error) {
	if doc.Order == nil || doc.Settings == nil {
		return "", fmt.Errorf("pdf: order and settings are required")
	}
	dir := filepath.Join(storagePath, doc.Order.TenantID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(dir, fmt.Sprintf("invoice_%s.pdf", doc.Number))

	// Height grows with the number of lines so long carts stay on one page.
	height := 120 + float64(len(doc.Order.Items))*5
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	money := moneyFormatter(doc.Settings.Currency)

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Header ───────────────────────────────────────────────────────────────
	st := doc.Settings
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, tr(st.CompanyName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	for _, line := range []string{st.CompanyAddress, st.CompanyPhone} {
		if line != "" {
			pdf.CellFormat(contentW, 4, tr(line), "", 1, "C", false, 0, "")
		}
	}
	if st.CompanyEmail != nil && *st.CompanyEmail != "" {
		pdf.CellFormat(contentW, 4, tr(*st.CompanyEmail), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	// ── Invoice info ─────────────────────────────────────────────────────────
	o := doc.Order
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Invoice "+doc.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Order "+o.ID.String()[:8], "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, o.CreatedAt.Format("2006-01-02  15:04"), "", 1, "L", false, 0, "")
	if o.CustomerName != nil && *o.CustomerName != "" {
		pdf.CellFormat(contentW, 4, tr("Customer: "+*o.CustomerName), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Lines ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Product", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range o.Items {
		name := item.ProductID.String()[:8]
		if item.Product != nil {
			name = item.Product.Name
		}
		if len(name) > 22 {
			name = name[:21] + "."
		}
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		pdf.CellFormat(col1, 5, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, tr(money(line)), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	row := func(label, value string) {
		pdf.CellFormat(col1+col2, 5, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, tr(value), "", 1, "R", false, 0, "")
	}
	row("Subtotal:", money(o.SubTotal))
	row("Tax:", money(o.Tax))
	if !o.Discount.IsZero() {
		row("Discount:", "-"+money(o.Discount))
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, tr(money(o.TotalAmount)), "", 1, "R", false, 0, "")

	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, "Paid by "+o.PaymentMethod, "", 1, "L", false, 0, "")

	// ── Footer ───────────────────────────────────────────────────────────────
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// moneyFormatter returns a formatter for amounts in the ISO 4217 code.
// Unknown codes print as "<code> 0.00".
func moneyFormatter(code string) func(decimal.Decimal) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return func(d decimal.Decimal) string { return code + " " + d.StringFixed(2) }
	}
	p := message.NewPrinter(language.English)
	return func(d decimal.Decimal) string {
		f, _ := d.Round(2).Float64()
		return p.Sprint(currency.Symbol(unit.Amount(f)))
	}
}
