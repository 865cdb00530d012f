package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/gate"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/repository"
	"github.com/diewo77/faktura/validation"
)

var ErrClientHasInvoices = apperr.DomainRule("client has invoices and cannot be deleted")

// ClientInput is the body of POST /api/clients.
type ClientInput struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Company    *string `json:"company" validate:"omitempty,max=255"`
	Email      string  `json:"email" validate:"omitempty,email,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Address    *string `json:"address" validate:"omitempty,max=500"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=20"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
}

// ClientPatch is the body of PUT /api/clients/{id}.
type ClientPatch struct {
	Name       *string `json:"name" validate:"omitempty,max=255"`
	Company    *string `json:"company" validate:"omitempty,max=255"`
	Email      *string `json:"email" validate:"omitempty,email,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Address    *string `json:"address" validate:"omitempty,max=500"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=20"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
}

func (p ClientPatch) Validate() validation.Violations {
	v := validation.Struct(p)
	if p.Name != nil {
		validation.Required("name", *p.Name, v)
	}
	return v
}

func (p ClientPatch) Fields() map[string]any {
	cols := make(map[string]any)
	if p.Name != nil {
		cols["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		cols["email"] = strings.TrimSpace(*p.Email)
	}
	for col, raw := range map[string]*string{
		"company":     p.Company,
		"phone":       p.Phone,
		"address":     p.Address,
		"postal_code": p.PostalCode,
		"city":        p.City,
		"country":     p.Country,
	} {
		if raw == nil {
			continue
		}
		if s := nullIfBlank(raw); s != nil {
			cols[col] = *s
		} else {
			cols[col] = nil
		}
	}
	return cols
}

// ClientSummary is a client row for the list view.
type ClientSummary struct {
	models.Client
	InvoiceCount int64 `json:"invoice_count"`
	CanDelete    bool  `json:"can_delete"`
}

type ClientService struct {
	db       *gorm.DB
	repo     *repository.Scoped[models.Client]
	invoices *repository.Scoped[models.Invoice]
	log      zerolog.Logger
}

func NewClientService(db *gorm.DB, g *gate.Gate[uuid.UUID], log zerolog.Logger) *ClientService {
	return &ClientService{
		db:       db,
		repo:     repository.New[models.Client](db, repository.Clients, g),
		invoices: repository.New[models.Invoice](db, repository.Invoices, g),
		log:      log.With().Str("component", "clients").Logger(),
	}
}

// List returns the user's clients by name with their invoice counts.
func (s *ClientService) List(ctx context.Context) ([]ClientSummary, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrAuthenticationRequired
	}
	clients, err := s.repo.List(ctx, nil, repository.OrderBy("name", false))
	if err != nil {
		return nil, err
	}

	type countRow struct {
		ClientID uuid.UUID
		N        int64
	}
	var rows []countRow
	err = s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("client_id, COUNT(*) AS n").
		Where("user_id = ?", uid).
		Group("client_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Dependency("count invoices per client", err)
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.ClientID] = r.N
	}

	out := make([]ClientSummary, 0, len(clients))
	for _, c := range clients {
		n := counts[c.ID]
		out = append(out, ClientSummary{Client: c, InvoiceCount: n, CanDelete: n == 0})
	}
	return out, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return s.repo.GetOne(ctx, id)
}

func (s *ClientService) Create(ctx context.Context, in ClientInput) (*models.Client, error) {
	v := validation.Struct(in)
	validation.Required("name", in.Name, v)
	if !v.Empty() {
		return nil, apperr.Invalid("invalid client", v)
	}
	c := &models.Client{
		Name:       strings.TrimSpace(in.Name),
		Company:    nullIfBlank(in.Company),
		Email:      strings.TrimSpace(in.Email),
		Phone:      nullIfBlank(in.Phone),
		Address:    nullIfBlank(in.Address),
		PostalCode: nullIfBlank(in.PostalCode),
		City:       nullIfBlank(in.City),
		Country:    nullIfBlank(in.Country),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, p ClientPatch) (*models.Client, error) {
	if v := p.Validate(); !v.Empty() {
		return nil, apperr.Invalid("invalid client update", v)
	}
	return s.repo.Update(ctx, id, p)
}

// Delete removes a client that has no invoices.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.invoices.Count(ctx, repository.Filters{"client_id": id})
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrClientHasInvoices
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Stringer("client_id", id).Msg("client deleted")
	return nil
}
