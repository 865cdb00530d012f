// Package pdf renders invoices as A4 PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/diewo77/faktura/i18n"
)

const dateFormat = "02.01.2006"

// InvoiceData is everything printed on one invoice.
type InvoiceData struct {
	Lang          string
	Currency      string
	Number        string
	IssueDate     time.Time
	DueDate       time.Time
	DeliveryTime  *time.Time
	DeliveryPlace string
	Notes         string
	// CreatedAt is stamped into the document info so output is reproducible.
	CreatedAt time.Time
	Client    ClientData
	Company   CompanyData
	Items     []InvoiceItem
}

type ClientData struct {
	Name    string
	Address []string
	Email   string
}

type CompanyData struct {
	Name               string
	Address            []string
	OrganizationNumber string
	VATNumber          string
	Registered         bool
	Email              string
	Phone              string
	Website            string
	BankAccount        string
}

// InvoiceItem is one printed line. Amount and VAT are the stored line
// amounts; they are printed and summed as given.
type InvoiceItem struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	VATRate     decimal.Decimal
	Amount      decimal.Decimal
	VAT         decimal.Decimal
}

type Totals struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// Summarize adds up the line amounts of items.
func Summarize(items []InvoiceItem) Totals {
	t := Totals{Subtotal: decimal.Zero, VAT: decimal.Zero}
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.Amount)
		t.VAT = t.VAT.Add(it.VAT)
	}
	t.Total = t.Subtotal.Add(t.VAT)
	return t
}

// column widths in mm; they add up to the 180mm content width
var colWidths = []float64{16, 64, 18, 16, 24, 26, 16}

// InvoicePDF renders data into a PDF document.
func InvoicePDF(data InvoiceData) ([]byte, error) {
	lang := data.Lang
	if !i18n.Supported(lang) {
		lang = i18n.Default
	}
	currency := data.Currency
	if currency == "" {
		currency = "NOK"
	}
	t := func(code string) string { return i18n.T(lang, code) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 25)
	pdf.SetCatalogSort(true)
	created := data.CreatedAt
	if created.IsZero() {
		created = data.IssueDate
	}
	pdf.SetCreationDate(created)
	pdf.SetTitle(fmt.Sprintf("%s %s", t("invoice"), data.Number), true)
	pdf.SetCreator("faktura", true)
	pdf.AliasNbPages("{nb}")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	footer := footerLine(data.Company, t)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 4, tr(footer), "T", 1, "C", false, 0, "")
		pdf.CellFormat(0, 4, tr(fmt.Sprintf("%s %d/{nb}", t("page"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(90, 8, tr(data.Company.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(90, 8, tr(t("invoice")), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	meta := []string{
		fmt.Sprintf("%s: %s", t("invoice_number"), data.Number),
		fmt.Sprintf("%s: %s", t("date"), data.IssueDate.Format(dateFormat)),
		fmt.Sprintf("%s: %s", t("due_date"), data.DueDate.Format(dateFormat)),
	}
	if data.DeliveryTime != nil {
		meta = append(meta, fmt.Sprintf("%s: %s", t("delivery_time"), data.DeliveryTime.Format(dateFormat)))
	}
	for _, line := range meta {
		pdf.SetX(105)
		pdf.CellFormat(90, 5, tr(line), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// Address blocks
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 5, tr(t("delivery_address")+":"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	clientLines := append([]string{data.Client.Name}, data.Client.Address...)
	if data.DeliveryPlace != "" {
		clientLines = append(clientLines, data.DeliveryPlace)
	}
	if data.Client.Email != "" {
		clientLines = append(clientLines, data.Client.Email)
	}
	for _, line := range clientLines {
		pdf.CellFormat(90, 5, tr(line), "", 1, "L", false, 0, "")
	}
	left := pdf.GetY()

	pdf.SetXY(105, top)
	for _, line := range companyLines(data.Company, t) {
		pdf.SetX(105)
		pdf.CellFormat(90, 5, tr(line), "", 1, "R", false, 0, "")
	}
	if left > pdf.GetY() {
		pdf.SetY(left)
	}
	pdf.Ln(8)

	// Items
	headers := []string{"col_number", "col_description", "col_quantity", "col_unit", "col_unit_price", "col_amount", "col_vat"}
	aligns := []string{"L", "L", "R", "L", "R", "R", "R"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for i, h := range headers {
		pdf.CellFormat(colWidths[i], 7, tr(t(h)), "B", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for i, it := range data.Items {
		unit := it.Unit
		if unit == "" {
			unit = "stk"
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			truncate(it.Description, 40),
			it.Quantity.String(),
			unit,
			it.UnitPrice.StringFixed(2),
			it.Amount.StringFixed(2),
			it.VATRate.String() + "%",
		}
		for j, c := range cells {
			pdf.CellFormat(colWidths[j], 6, tr(c), "B", 0, aligns[j], false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	if data.Notes != "" {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, tr(t("notes")+":"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 4.5, tr(data.Notes), "", "L", false)
		pdf.Ln(3)
	}

	// Totals
	totals := Summarize(data.Items)
	args := map[string]string{"currency": currency}
	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{i18n.Tf(lang, "subtotal", args), totals.Subtotal, false},
		{t("vat"), totals.VAT, false},
		{i18n.Tf(lang, "total", args), totals.Total, true},
	}
	for _, r := range rows {
		style := ""
		if r.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.SetX(95)
		pdf.CellFormat(60, 6, tr(r.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, r.value.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	// Payment terms
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 5, tr(t("payment_terms")+":"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	terms := i18n.Tf(lang, "payment_terms_text", map[string]string{
		"due":     data.DueDate.Format(dateFormat),
		"account": data.Company.BankAccount,
	})
	pdf.MultiCell(0, 5, tr(terms), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", data.Number, err)
	}
	return buf.Bytes(), nil
}

func companyLines(c CompanyData, t func(string) string) []string {
	lines := append([]string{c.Name}, c.Address...)
	if c.OrganizationNumber != "" {
		org := fmt.Sprintf("%s: %s", t("org_number"), c.OrganizationNumber)
		if c.Registered {
			org += " " + t("foretaksregisteret")
		}
		lines = append(lines, org)
	}
	if c.VATNumber != "" {
		lines = append(lines, fmt.Sprintf("%s: %s", t("vat_number"), c.VATNumber))
	}
	for _, s := range []string{c.Email, c.Phone, c.Website} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

func footerLine(c CompanyData, t func(string) string) string {
	parts := []string{c.Name}
	if len(c.Address) > 0 {
		parts = append(parts, strings.Join(c.Address, ", "))
	}
	if c.OrganizationNumber != "" {
		parts = append(parts, t("org_number")+": "+c.OrganizationNumber)
	}
	for _, s := range []string{c.Email, c.Website} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "  -  ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
