package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceStatuses lists every valid status.
var InvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCancelled,
}

func (s InvoiceStatus) Valid() bool {
	for _, v := range InvoiceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Invoice represents a billing invoice.
// Implements the Ownable interface for ownership-based authorization.
type Invoice struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this invoice (for multi-tenant isolation)
	UserID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_invoices_user_number,priority:1" json:"user_id"`

	InvoiceNumber string `gorm:"size:50;not null;uniqueIndex:idx_invoices_user_number,priority:2" json:"invoice_number"`

	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`
	Client   *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	IssueDate datatypes.Date `gorm:"not null" json:"issue_date"`
	DueDate   datatypes.Date `gorm:"not null" json:"due_date"`

	Status InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`

	SubtotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal_amount"`
	VATAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"vat_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`
	VATRate        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"vat_rate"`

	DeliveryTime  *time.Time `json:"delivery_time"`
	DeliveryPlace *string    `gorm:"size:255" json:"delivery_place"`
	Notes         *string    `gorm:"type:text" json:"notes"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// GetUserID implements the Ownable interface for authorization.
func (i *Invoice) GetUserID() uuid.UUID {
	return i.UserID
}

func (i *Invoice) SetUserID(id uuid.UUID) { i.UserID = id }

// IsDraft returns true if the invoice is in draft status.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// ApplyTotals copies the item sums onto the header.
func (i *Invoice) ApplyTotals() {
	t := SumItems(i.Items)
	i.SubtotalAmount = t.Subtotal
	i.VATAmount = t.VAT
	i.TotalAmount = t.Total
}

// InvoiceItem represents a line item on an invoice.
type InvoiceItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uuid.UUID `gorm:"type:uuid;index;not null" json:"invoice_id"`
	Position  int       `gorm:"not null;default:0" json:"position"`

	Description string          `gorm:"size:500;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,3);not null" json:"quantity"`
	Unit        string          `gorm:"size:20;not null;default:'stk'" json:"unit"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	VATRate     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"vat_rate"`
	VATAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"vat_amount"`
}

func (item *InvoiceItem) BeforeCreate(*gorm.DB) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// Compute rounds Quantity and UnitPrice to their column scales, then sets
// Amount = Quantity × UnitPrice and VATAmount = Amount × VATRate/100, both
// rounded to øre.
func (item *InvoiceItem) Compute() {
	item.Quantity = item.Quantity.Round(3)
	item.UnitPrice = item.UnitPrice.Round(2)
	item.Amount = item.Quantity.Mul(item.UnitPrice).Round(2)
	item.VATAmount = item.Amount.Mul(item.VATRate).Div(hundred).Round(2)
}

// Totals are the sums over an invoice's items.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal_amount"`
	VAT      decimal.Decimal `json:"vat_amount"`
	Total    decimal.Decimal `json:"total_amount"`
}

// SumItems adds up the stored per-item amounts.
func SumItems(items []InvoiceItem) Totals {
	t := Totals{Subtotal: decimal.Zero, VAT: decimal.Zero}
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.Amount)
		t.VAT = t.VAT.Add(it.VATAmount)
	}
	t.Total = t.Subtotal.Add(t.VAT)
	return t
}

// NextInvoiceNumber returns the next number of the form YYYY-NNNN for the
// user, continuing after the highest number already issued that year.
func NextInvoiceNumber(db *gorm.DB, userID uuid.UUID, year int) (string, error) {
	prefix := fmt.Sprintf("%d-", year)
	var last []string
	err := db.Model(&Invoice{}).
		Where("user_id = ? AND invoice_number LIKE ?", userID, prefix+"%").
		// longer numbers are larger once the sequence passes 9999
		Order("LENGTH(invoice_number) DESC, invoice_number DESC").
		Limit(1).
		Pluck("invoice_number", &last).Error
	if err != nil {
		return "", err
	}
	seq := 0
	if len(last) == 1 {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last[0], prefix))
		if convErr == nil {
			seq = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// Payment records money received against an invoice.
type Payment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"invoice_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate   datatypes.Date  `gorm:"not null" json:"payment_date"`
	PaymentMethod string          `gorm:"size:50;not null" json:"payment_method"`
	TransactionID *string         `gorm:"size:255" json:"transaction_id,omitempty"`
	Notes         *string         `gorm:"type:text" json:"notes,omitempty"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
