package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/models"
)

// Renderer draws invoices as A4 PDF documents.
type Renderer struct {
	companyName string
}

// NewRenderer initializes a renderer. companyName appears in the header
// of every document.
func NewRenderer(companyName string) *Renderer {
	return &Renderer{companyName: companyName}
}

// Render produces the PDF for an invoice and the payments recorded
// against it.
func (r *Renderer) Render(inv *models.Invoice, payments []models.Payment) ([]byte, error) {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(fmt.Sprintf("Invoice %s", inv.Number), true)
	doc.AddPage()

	doc.SetFont("Arial", "B", 20)
	doc.Cell(110, 12, "INVOICE")
	doc.SetFont("Arial", "B", 12)
	doc.CellFormat(80, 12, inv.Number, "", 1, "R", false, 0, "")

	doc.SetFont("Arial", "", 10)
	doc.Cell(110, 5, r.companyName)
	doc.CellFormat(80, 5, fmt.Sprintf("Status: %s", strings.ToUpper(string(inv.Status))), "", 1, "R", false, 0, "")
	doc.Cell(110, 5, "")
	doc.CellFormat(80, 5, fmt.Sprintf("Issued: %s", inv.IssueDate.Format("2006-01-02")), "", 1, "R", false, 0, "")
	doc.Cell(110, 5, "")
	doc.CellFormat(80, 5, fmt.Sprintf("Due: %s", inv.DueDate.Format("2006-01-02")), "", 1, "R", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(0, 5, "Bill To", "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 10)
	doc.CellFormat(0, 5, inv.CustomerName, "", 1, "L", false, 0, "")
	if inv.CustomerEmail != "" {
		doc.CellFormat(0, 5, inv.CustomerEmail, "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	r.itemsTable(doc, inv)
	r.totalsBlock(doc, inv)

	if len(payments) > 0 {
		r.paymentsBlock(doc, inv, payments)
	}

	if inv.Notes != "" {
		doc.Ln(6)
		doc.SetFont("Arial", "B", 10)
		doc.CellFormat(0, 5, "Notes", "", 1, "L", false, 0, "")
		doc.SetFont("Arial", "", 9)
		doc.MultiCell(0, 4.5, inv.Notes, "", "L", false)
	}

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", inv.Number, err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", inv.Number, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) itemsTable(doc *gofpdf.Fpdf, inv *models.Invoice) {
	doc.SetFont("Arial", "B", 9)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(95, 7, "Description", "1", 0, "L", true, 0, "")
	doc.CellFormat(25, 7, "Qty", "1", 0, "R", true, 0, "")
	doc.CellFormat(35, 7, "Unit Price", "1", 0, "R", true, 0, "")
	doc.CellFormat(35, 7, "Amount", "1", 1, "R", true, 0, "")

	doc.SetFont("Arial", "", 9)
	for _, item := range inv.Items {
		doc.CellFormat(95, 6, item.Description, "1", 0, "L", false, 0, "")
		doc.CellFormat(25, 6, item.Quantity.String(), "1", 0, "R", false, 0, "")
		doc.CellFormat(35, 6, money(item.UnitPrice, inv.Currency), "1", 0, "R", false, 0, "")
		doc.CellFormat(35, 6, money(item.Amount, inv.Currency), "1", 1, "R", false, 0, "")
	}
	doc.Ln(4)
}

func (r *Renderer) totalsBlock(doc *gofpdf.Fpdf, inv *models.Invoice) {
	rows := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", inv.Subtotal},
		{fmt.Sprintf("Tax (%s%%)", inv.TaxPercent.String()), inv.Tax},
	}
	if inv.LateFee.IsPositive() {
		label := "Late fee"
		if inv.LateFeeCapped {
			label = "Late fee (capped)"
		}
		rows = append(rows, struct {
			label string
			value decimal.Decimal
		}{label, inv.LateFee})
	}

	doc.SetFont("Arial", "", 9)
	for _, row := range rows {
		doc.CellFormat(120, 5, "", "", 0, "L", false, 0, "")
		doc.CellFormat(35, 5, row.label, "", 0, "R", false, 0, "")
		doc.CellFormat(35, 5, money(row.value, inv.Currency), "", 1, "R", false, 0, "")
	}

	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	doc.CellFormat(35, 6, "Total", "T", 0, "R", false, 0, "")
	doc.CellFormat(35, 6, money(inv.Total, inv.Currency), "T", 1, "R", false, 0, "")

	doc.SetFont("Arial", "", 9)
	doc.CellFormat(120, 5, "", "", 0, "L", false, 0, "")
	doc.CellFormat(35, 5, "Amount paid", "", 0, "R", false, 0, "")
	doc.CellFormat(35, 5, money(inv.AmountPaid, inv.Currency), "", 1, "R", false, 0, "")

	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	doc.CellFormat(35, 6, "Balance due", "", 0, "R", false, 0, "")
	doc.CellFormat(35, 6, money(inv.BalanceDue, inv.Currency), "", 1, "R", false, 0, "")
}

func (r *Renderer) paymentsBlock(doc *gofpdf.Fpdf, inv *models.Invoice, payments []models.Payment) {
	doc.Ln(6)
	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(0, 5, "Payments", "", 1, "L", false, 0, "")
	doc.SetFont("Arial", "", 9)
	for _, p := range payments {
		line := fmt.Sprintf("%s  %s  %s  %s",
			p.PaidAt.Format("2006-01-02"), p.Method, p.Reference, money(p.Amount, inv.Currency))
		doc.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}
}

// money formats an amount at its currency's precision. Unknown codes fall
// back to two decimal places rather than failing a render.
func money(v decimal.Decimal, currency string) string {
	precision, err := billing.CurrencyPrecision(currency)
	if err != nil {
		precision = 2
	}
	return fmt.Sprintf("%s %s", v.StringFixed(precision), currency)
}
