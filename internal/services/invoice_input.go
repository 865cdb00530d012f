package services

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/validation"
)

const dateLayout = "2006-01-02"

// DefaultVATRate is the Norwegian standard rate applied when none is given.
var DefaultVATRate = decimal.NewFromInt(25)

var maxVATRate = decimal.NewFromInt(100)

// DefaultPaymentDays is the due date offset used when none is given.
const DefaultPaymentDays = 30

// FlexDecimal accepts a JSON number or string. Anything unparsable reads as
// zero.
type FlexDecimal decimal.Decimal

func (f *FlexDecimal) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	d, err := decimal.NewFromString(s)
	if err != nil {
		d = decimal.Zero
	}
	*f = FlexDecimal(d)
	return nil
}

func (f *FlexDecimal) Decimal() decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return decimal.Decimal(*f)
}

// CreateItemInput is one line of a new invoice.
type CreateItemInput struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit" validate:"max=20"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     *FlexDecimal    `json:"vat_rate"`
}

// CreateInvoiceInput is the body of POST /api/invoices.
type CreateInvoiceInput struct {
	ClientID      uuid.UUID         `json:"client_id"`
	IssueDate     string            `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string            `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Status        string            `json:"status" validate:"omitempty,oneof=draft sent"`
	VATRate       *FlexDecimal      `json:"vat_rate"`
	Notes         *string           `json:"notes"`
	DeliveryTime  *string           `json:"delivery_time"`
	DeliveryPlace *string           `json:"delivery_place" validate:"omitempty,max=255"`
	Items         []CreateItemInput `json:"items" validate:"required,min=1,dive"`
}

// Validate checks the input and returns the violations.
func (in *CreateInvoiceInput) Validate() validation.Violations {
	v := validation.Struct(in)
	if in.ClientID == uuid.Nil {
		v.Add("client_id", "required")
	}
	if in.VATRate != nil {
		validation.Range("vat_rate", in.VATRate.Decimal(), decimal.Zero, maxVATRate, v)
	}
	for i, it := range in.Items {
		prefix := "items[" + strconv.Itoa(i) + "]."
		// amounts are computed from the values as stored
		validation.Positive(prefix+"quantity", it.Quantity.Round(3), v)
		validation.NonNegative(prefix+"unit_price", it.UnitPrice.Round(2), v)
		validation.Required(prefix+"description", strings.TrimSpace(it.Description), v)
		if it.VATRate != nil {
			validation.Range(prefix+"vat_rate", it.VATRate.Decimal(), decimal.Zero, maxVATRate, v)
		}
	}
	if in.DeliveryTime != nil && *in.DeliveryTime != "" {
		if _, err := parseDeliveryTime(*in.DeliveryTime); err != nil {
			v.Add("delivery_time", "invalid_date")
		}
	}
	return v
}

// build turns the validated input into an invoice with computed items and
// totals. The number is assigned later.
func (in *CreateInvoiceInput) build(today time.Time) (*models.Invoice, []string) {
	var warnings []string
	issue := today
	if in.IssueDate != "" {
		issue, _ = time.Parse(dateLayout, in.IssueDate)
	}
	due := issue.AddDate(0, 0, DefaultPaymentDays)
	if in.DueDate != "" {
		due, _ = time.Parse(dateLayout, in.DueDate)
	}
	if issue.After(due) {
		warnings = append(warnings, "issue date is after due date")
	}
	status := models.InvoiceStatusDraft
	if in.Status != "" {
		status = models.InvoiceStatus(in.Status)
	}
	rate := DefaultVATRate
	if in.VATRate != nil {
		rate = in.VATRate.Decimal()
	}

	inv := &models.Invoice{
		ClientID:      in.ClientID,
		IssueDate:     datatypes.Date(issue),
		DueDate:       datatypes.Date(due),
		Status:        status,
		VATRate:       rate,
		Notes:         nullIfBlank(in.Notes),
		DeliveryPlace: nullIfBlank(in.DeliveryPlace),
	}
	if in.DeliveryTime != nil && *in.DeliveryTime != "" {
		t, _ := parseDeliveryTime(*in.DeliveryTime)
		inv.DeliveryTime = &t
	}
	for i, it := range in.Items {
		item := models.InvoiceItem{
			Position:    i + 1,
			Description: strings.TrimSpace(it.Description),
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
			VATRate:     rate,
		}
		if item.Unit == "" {
			item.Unit = "stk"
		}
		if it.VATRate != nil {
			item.VATRate = it.VATRate.Decimal()
		}
		item.Compute()
		inv.Items = append(inv.Items, item)
	}
	inv.ApplyTotals()
	return inv, warnings
}

// InvoicePatch is the body of PUT /api/invoices/{id}. Absent fields are
// left alone; empty strings clear nullable columns.
type InvoicePatch struct {
	IssueDate     *string      `json:"issue_date"`
	DueDate       *string      `json:"due_date"`
	Status        *string      `json:"status"`
	Notes         *string      `json:"notes"`
	DeliveryTime  *string      `json:"delivery_time"`
	DeliveryPlace *string      `json:"delivery_place"`
	VATRate       *FlexDecimal `json:"vat_rate"`
}

func (p InvoicePatch) Fields() map[string]any {
	cols, _ := p.columns()
	return cols
}

// Validate reports fields that cannot be written.
func (p InvoicePatch) Validate() validation.Violations {
	_, v := p.columns()
	return v
}

func (p InvoicePatch) columns() (map[string]any, validation.Violations) {
	cols := make(map[string]any)
	v := make(validation.Violations)

	date := func(field string, raw *string) {
		if raw == nil {
			return
		}
		if strings.TrimSpace(*raw) == "" {
			// issue_date and due_date are NOT NULL
			v.Add(field, "required")
			return
		}
		d, err := time.Parse(dateLayout, *raw)
		if err != nil {
			v.Add(field, "invalid_date")
			return
		}
		cols[field] = datatypes.Date(d)
	}
	date("issue_date", p.IssueDate)
	date("due_date", p.DueDate)

	if p.Status != nil {
		if !models.InvoiceStatus(*p.Status).Valid() {
			v.Add("status", "invalid_choice")
		} else {
			cols["status"] = *p.Status
		}
	}
	for field, raw := range map[string]*string{"notes": p.Notes, "delivery_place": p.DeliveryPlace} {
		if raw == nil {
			continue
		}
		if s := nullIfBlank(raw); s != nil {
			cols[field] = *s
		} else {
			cols[field] = nil
		}
	}
	if p.DeliveryTime != nil {
		if strings.TrimSpace(*p.DeliveryTime) == "" {
			cols["delivery_time"] = nil
		} else if t, err := parseDeliveryTime(*p.DeliveryTime); err != nil {
			v.Add("delivery_time", "invalid_date")
		} else {
			cols["delivery_time"] = t
		}
	}
	if p.VATRate != nil {
		rate := p.VATRate.Decimal()
		validation.Range("vat_rate", rate, decimal.Zero, maxVATRate, v)
		cols["vat_rate"] = rate
	}
	return cols, v
}

func parseDeliveryTime(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func nullIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
