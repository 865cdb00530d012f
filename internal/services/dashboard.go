package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/gate"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/repository"
)

// Dashboard is the signed-in landing summary.
type Dashboard struct {
	InvoicePoints    int                            `json:"invoice_points"`
	StatusCounts     map[models.InvoiceStatus]int64 `json:"status_counts"`
	TotalInvoices    int64                          `json:"total_invoices"`
	ClientCount      int64                          `json:"client_count"`
	OutstandingTotal decimal.Decimal                `json:"outstanding_total"`
	PaidTotal        decimal.Decimal                `json:"paid_total"`
	RecentInvoices   []models.Invoice               `json:"recent_invoices"`
}

type DashboardService struct {
	db       *gorm.DB
	invoices *repository.Scoped[models.Invoice]
	clients  *repository.Scoped[models.Client]
	ledger   *Ledger
}

func NewDashboardService(db *gorm.DB, g *gate.Gate[uuid.UUID], ledger *Ledger) *DashboardService {
	return &DashboardService{
		db:       db,
		invoices: repository.New[models.Invoice](db, repository.Invoices, g),
		clients:  repository.New[models.Client](db, repository.Clients, g),
		ledger:   ledger,
	}
}

func (s *DashboardService) Summary(ctx context.Context) (*Dashboard, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return nil, apperr.ErrAuthenticationRequired
	}
	d := &Dashboard{
		StatusCounts:     make(map[models.InvoiceStatus]int64, len(models.InvoiceStatuses)),
		OutstandingTotal: decimal.Zero,
		PaidTotal:        decimal.Zero,
	}
	for _, st := range models.InvoiceStatuses {
		d.StatusCounts[st] = 0
	}

	var err error
	if d.InvoicePoints, err = s.ledger.Balance(ctx, uid); err != nil {
		return nil, err
	}

	type statusRow struct {
		Status models.InvoiceStatus
		N      int64
		Total  decimal.Decimal
	}
	var rows []statusRow
	err = s.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("status, COUNT(*) AS n, COALESCE(SUM(total_amount), 0) AS total").
		Where("user_id = ?", uid).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Dependency("summarise invoices", err)
	}
	for _, r := range rows {
		d.StatusCounts[r.Status] = r.N
		d.TotalInvoices += r.N
		switch r.Status {
		case models.InvoiceStatusSent, models.InvoiceStatusOverdue:
			d.OutstandingTotal = d.OutstandingTotal.Add(r.Total)
		case models.InvoiceStatusPaid:
			d.PaidTotal = d.PaidTotal.Add(r.Total)
		}
	}

	if d.ClientCount, err = s.clients.Count(ctx, nil); err != nil {
		return nil, err
	}
	d.RecentInvoices, err = s.invoices.List(ctx, nil,
		repository.Preload("Client", ""),
		repository.OrderBy("created_at", true),
		repository.Limit(5),
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}
