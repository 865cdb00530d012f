package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/policy"
	"github.com/diewo77/faktura/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db       *gorm.DB
	ledger   *services.Ledger
	invoices *services.InvoiceService
	clients  *services.ClientService
	company  *services.CompanyService
	dash     *services.DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	g := policy.NewOwnershipGate("invoices", "clients", "company_settings")
	ledger := services.NewLedger(db, zerolog.Nop())
	return &fixture{
		db:       db,
		ledger:   ledger,
		invoices: services.NewInvoiceService(db, g, ledger, zerolog.Nop()),
		clients:  services.NewClientService(db, g, zerolog.Nop()),
		company:  services.NewCompanyService(db, g),
		dash:     services.NewDashboardService(db, g, ledger),
	}
}

func userCtx(uid uuid.UUID) context.Context {
	return auth.WithUserID(context.Background(), uid)
}

func (f *fixture) givePoints(t *testing.T, uid uuid.UUID, points int) {
	t.Helper()
	if err := f.db.Create(&models.Profile{ID: uid, InvoicePoints: points}).Error; err != nil {
		t.Fatalf("profile: %v", err)
	}
}

func (f *fixture) points(t *testing.T, uid uuid.UUID) int {
	t.Helper()
	n, err := f.ledger.Balance(context.Background(), uid)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return n
}

func (f *fixture) client(t *testing.T, uid uuid.UUID, name string) models.Client {
	t.Helper()
	c := models.Client{UserID: uid, Name: name}
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func (f *fixture) invoice(t *testing.T, uid, clientID uuid.UUID, number string, status models.InvoiceStatus) models.Invoice {
	t.Helper()
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	inv := models.Invoice{
		UserID:        uid,
		ClientID:      clientID,
		InvoiceNumber: number,
		IssueDate:     datatypes.Date(day),
		DueDate:       datatypes.Date(day.AddDate(0, 0, 30)),
		Status:        status,
		VATRate:       decimal.NewFromInt(25),
		Items: []models.InvoiceItem{
			{Position: 1, Description: "Konsulenttimer", Quantity: dec("2"), UnitPrice: dec("500"), VATRate: dec("25")},
		},
	}
	inv.Items[0].Compute()
	inv.ApplyTotals()
	if err := f.db.Create(&inv).Error; err != nil {
		t.Fatalf("invoice: %v", err)
	}
	return inv
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }
