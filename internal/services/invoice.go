package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/gate"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/repository"
)

var (
	ErrNotDraft      = apperr.DomainRule("only draft invoices can be sent")
	ErrSendViaAction = apperr.DomainRule("draft invoices are sent with the send action")
	ErrUnknownClient = apperr.Invalid("unknown client", map[string]string{"client_id": "invalid_id"})
)

// CreateResult is a created invoice plus non-fatal notices.
type CreateResult struct {
	Invoice  *models.Invoice `json:"data"`
	Warnings []string        `json:"warnings,omitempty"`
}

type InvoiceService struct {
	db      *gorm.DB
	repo    *repository.Scoped[models.Invoice]
	clients *repository.Scoped[models.Client]
	ledger  *Ledger
	log     zerolog.Logger
	now     func() time.Time
}

func NewInvoiceService(db *gorm.DB, g *gate.Gate[uuid.UUID], ledger *Ledger, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		db:      db,
		repo:    repository.New[models.Invoice](db, repository.Invoices, g),
		clients: repository.New[models.Client](db, repository.Clients, g),
		ledger:  ledger,
		log:     log.With().Str("component", "invoices").Logger(),
		now:     time.Now,
	}
}

// List returns the user's invoices, newest first, with client and items.
func (s *InvoiceService) List(ctx context.Context, f repository.Filters) ([]models.Invoice, error) {
	return s.repo.List(ctx, f,
		repository.Preload("Client", ""),
		repository.Preload("Items", "position ASC"),
		repository.OrderBy("created_at", true),
	)
}

// Get returns one invoice with client, items and payments.
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	inv, err := s.repo.GetOne(ctx, id,
		repository.Preload("Client", ""),
		repository.Preload("Items", "position ASC"),
		repository.Preload("Payments", "payment_date ASC"),
	)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.NotFound("Invoice not found or access denied")
	}
	return inv, err
}

// Send moves a draft invoice to sent and consumes one point, both in one
// transaction.
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrAuthenticationRequired
	}
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !inv.IsDraft() {
		return nil, ErrNotDraft
	}
	points, err := s.ledger.Balance(ctx, uid)
	if err != nil {
		return nil, err
	}
	if points < 1 {
		return nil, ErrInsufficientPoints
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND user_id = ? AND status = ?", id, uid, models.InvoiceStatusDraft).
			Updates(map[string]any{"status": models.InvoiceStatusSent, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// sent concurrently
			return ErrNotDraft
		}
		return s.ledger.DebitTx(tx, uid)
	})
	if err != nil {
		return nil, s.txError("send", uid, err)
	}
	s.log.Info().Stringer("invoice_id", id).Stringer("user_id", uid).Msg("invoice sent")
	inv.Status = models.InvoiceStatusSent
	inv.UpdatedAt = now
	return inv, nil
}

// Create validates in, numbers the invoice and stores it with its items
// while consuming one point.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*CreateResult, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrAuthenticationRequired
	}
	if v := in.Validate(); !v.Empty() {
		return nil, apperr.Invalid("invalid invoice", v)
	}
	if _, err := s.clients.GetOne(ctx, in.ClientID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrUnknownClient
		}
		return nil, err
	}
	points, err := s.ledger.Balance(ctx, uid)
	if err != nil {
		return nil, err
	}
	if points < 1 {
		return nil, ErrInsufficientPoints
	}

	now := s.now()
	inv, warnings := in.build(now.UTC().Truncate(24 * time.Hour))
	inv.UserID = uid
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := models.NextInvoiceNumber(tx, uid, time.Time(inv.IssueDate).Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
		if err := tx.Omit("Items", "Client", "Payments").Create(inv).Error; err != nil {
			return err
		}
		for i := range inv.Items {
			inv.Items[i].InvoiceID = inv.ID
		}
		if err := tx.CreateInBatches(&inv.Items, 100).Error; err != nil {
			return err
		}
		return s.ledger.DebitTx(tx, uid)
	})
	if err != nil {
		return nil, s.txError("create", uid, err)
	}
	s.log.Info().Stringer("invoice_id", inv.ID).Str("number", inv.InvoiceNumber).Msg("invoice created")
	return &CreateResult{Invoice: inv, Warnings: warnings}, nil
}

// Update applies a field patch. Moving a draft to sent must go through Send
// so the point is paid.
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, p InvoicePatch) (*models.Invoice, error) {
	if v := p.Validate(); !v.Empty() {
		return nil, apperr.Invalid("invalid invoice update", v)
	}
	if p.Status != nil && models.InvoiceStatus(*p.Status) == models.InvoiceStatusSent {
		current, err := s.repo.GetOne(ctx, id)
		if err == nil && current.IsDraft() {
			return nil, ErrSendViaAction
		}
	}
	if _, err := s.repo.Update(ctx, id, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the invoice and its items.
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return apperr.Dependency("delete invoice items", err)
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return apperr.Dependency("delete invoice payments", err)
		}
		return nil
	})
}

// txError keeps domain errors raised inside a ledger transaction and turns
// everything else into a logged, counted dependency failure.
func (s *InvoiceService) txError(op string, uid uuid.UUID, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.KindDomainRule {
		return ae
	}
	s.ledger.Failed(op, uid, err)
	return apperr.Dependency(op+" invoice", err)
}
