// Package models holds the persisted entities. Every user-owned entity
// implements GetUserID so the ownership policy can authorize it.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All returns every model in migration order.
func All() []any {
	return []any{
		&Profile{},
		&Client{},
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&CompanySettings{},
		&WebhookEvent{},
	}
}

// Profile holds the invoice points balance of one user. Its id is the
// identity provider's user id.
type Profile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	InvoicePoints int       `gorm:"not null;default:0;check:invoice_points >= 0" json:"invoice_points"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Client represents a billing contact.
type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UserID is the owner of this client (for multi-tenant isolation)
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Name    string  `gorm:"size:255;not null" json:"name"`
	Company *string `gorm:"size:255" json:"company"`
	Email   string  `gorm:"size:255" json:"email"`
	Phone   *string `gorm:"size:50" json:"phone"`

	Address    *string `gorm:"size:500" json:"address"`
	PostalCode *string `gorm:"size:20" json:"postal_code"`
	City       *string `gorm:"size:100" json:"city"`
	Country    *string `gorm:"size:100" json:"country"`
}

// BeforeCreate assigns an id when the caller did not.
func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// GetUserID implements the Ownable interface for authorization.
func (c *Client) GetUserID() uuid.UUID {
	return c.UserID
}

func (c *Client) SetUserID(id uuid.UUID) { c.UserID = id }

// DisplayName prefers the company name.
func (c *Client) DisplayName() string {
	if c.Company != nil && *c.Company != "" {
		return *c.Company
	}
	return c.Name
}

// FullAddress returns the formatted multi-line address.
func (c *Client) FullAddress() string {
	addr := deref(c.Address)
	postal, city := deref(c.PostalCode), deref(c.City)
	if postal != "" || city != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += postal
		if postal != "" && city != "" {
			addr += " "
		}
		addr += city
	}
	if country := deref(c.Country); country != "" {
		if addr != "" {
			addr += "\n"
		}
		addr += country
	}
	return addr
}

// CompanySettings is the user's company profile printed on invoices.
type CompanySettings struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	CompanyName  string `gorm:"size:255" json:"company_name"`
	AddressLine1 string `gorm:"size:255" json:"address_line1"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:100" json:"country"`
	Phone        string `gorm:"size:50" json:"phone"`
	Email        string `gorm:"size:255" json:"email"`
	Website      string `gorm:"size:255" json:"website"`
	BankAccount  string `gorm:"size:50" json:"bank_account"`
	Notes        string `gorm:"type:text" json:"notes"`

	// Norwegian registration details
	OrganizationNumber  string `gorm:"size:20" json:"organization_number"`
	IsCompanyRegistered bool   `gorm:"not null;default:false" json:"is_company_registered"`
	VATRegistered       bool   `gorm:"not null;default:false" json:"vat_registered"`
	VATNumber           string `gorm:"size:30" json:"vat_number"`
}

func (c *CompanySettings) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// GetUserID implements the Ownable interface.
func (c *CompanySettings) GetUserID() uuid.UUID {
	return c.UserID
}

func (c *CompanySettings) SetUserID(id uuid.UUID) { c.UserID = id }

// AddressLines returns the non-empty address lines in print order.
func (c *CompanySettings) AddressLines() []string {
	var lines []string
	for _, l := range []string{c.AddressLine1, c.AddressLine2} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	cityLine := c.PostalCode
	if c.City != "" {
		if cityLine != "" {
			cityLine += " "
		}
		cityLine += c.City
	}
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if c.Country != "" {
		lines = append(lines, c.Country)
	}
	return lines
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
