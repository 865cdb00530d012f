package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/gate"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/repository"
	"github.com/diewo77/faktura/validation"
)

// CompanySettingsInput is the body of PUT /api/settings. It replaces every
// field of the stored settings.
type CompanySettingsInput struct {
	CompanyName         string `json:"company_name" validate:"max=255"`
	AddressLine1        string `json:"address_line1" validate:"max=255"`
	AddressLine2        string `json:"address_line2" validate:"max=255"`
	City                string `json:"city" validate:"max=100"`
	State               string `json:"state" validate:"max=100"`
	PostalCode          string `json:"postal_code" validate:"max=20"`
	Country             string `json:"country" validate:"max=100"`
	Phone               string `json:"phone" validate:"max=50"`
	Email               string `json:"email" validate:"omitempty,email,max=255"`
	Website             string `json:"website" validate:"omitempty,max=255"`
	BankAccount         string `json:"bank_account" validate:"max=50"`
	Notes               string `json:"notes"`
	OrganizationNumber  string `json:"organization_number" validate:"max=20"`
	IsCompanyRegistered bool   `json:"is_company_registered"`
	VATRegistered       bool   `json:"vat_registered"`
	VATNumber           string `json:"vat_number" validate:"max=30"`
}

func (in CompanySettingsInput) Fields() map[string]any {
	return map[string]any{
		"company_name":          in.CompanyName,
		"address_line1":         in.AddressLine1,
		"address_line2":         in.AddressLine2,
		"city":                  in.City,
		"state":                 in.State,
		"postal_code":           in.PostalCode,
		"country":               in.Country,
		"phone":                 in.Phone,
		"email":                 in.Email,
		"website":               in.Website,
		"bank_account":          in.BankAccount,
		"notes":                 in.Notes,
		"organization_number":   in.OrganizationNumber,
		"is_company_registered": in.IsCompanyRegistered,
		"vat_registered":        in.VATRegistered,
		"vat_number":            in.VATNumber,
	}
}

type CompanyService struct {
	repo *repository.Scoped[models.CompanySettings]
}

func NewCompanyService(db *gorm.DB, g *gate.Gate[uuid.UUID]) *CompanyService {
	return &CompanyService{repo: repository.New[models.CompanySettings](db, repository.CompanySettings, g)}
}

// Get returns the user's settings, or empty settings owned by the user when
// none were saved yet.
func (s *CompanyService) Get(ctx context.Context) (*models.CompanySettings, error) {
	cs, err := s.repo.First(ctx)
	if apperr.KindOf(err) == apperr.KindNotFound {
		uid, _ := auth.UserIDFromContext(ctx)
		return &models.CompanySettings{UserID: uid}, nil
	}
	return cs, err
}

// Save creates or replaces the user's settings.
func (s *CompanyService) Save(ctx context.Context, in CompanySettingsInput) (*models.CompanySettings, error) {
	if v := validation.Struct(in); !v.Empty() {
		return nil, apperr.Invalid("invalid settings", v)
	}
	current, err := s.repo.First(ctx)
	switch {
	case apperr.KindOf(err) == apperr.KindNotFound:
		cs := &models.CompanySettings{
			CompanyName:         in.CompanyName,
			AddressLine1:        in.AddressLine1,
			AddressLine2:        in.AddressLine2,
			City:                in.City,
			State:               in.State,
			PostalCode:          in.PostalCode,
			Country:             in.Country,
			Phone:               in.Phone,
			Email:               in.Email,
			Website:             in.Website,
			BankAccount:         in.BankAccount,
			Notes:               in.Notes,
			OrganizationNumber:  in.OrganizationNumber,
			IsCompanyRegistered: in.IsCompanyRegistered,
			VATRegistered:       in.VATRegistered,
			VATNumber:           in.VATNumber,
		}
		if err := s.repo.Create(ctx, cs); err != nil {
			return nil, err
		}
		return cs, nil
	case err != nil:
		return nil, err
	}
	return s.repo.Update(ctx, current.ID, in)
}
