package services_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/services"
)

func TestClientService_DeleteGuard(t *testing.T) {
	f := newFixture(t)
	uid := uuid.New()
	idle := f.client(t, uid, "Uten faktura")
	busy := f.client(t, uid, "Med faktura")
	f.invoice(t, uid, busy.ID, "2025-0001", models.InvoiceStatusDraft)

	list, err := f.clients.List(userCtx(uid))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byID := map[uuid.UUID]services.ClientSummary{}
	for _, c := range list {
		byID[c.ID] = c
	}
	if !byID[idle.ID].CanDelete || byID[idle.ID].InvoiceCount != 0 {
		t.Fatalf("idle client summary = %+v", byID[idle.ID])
	}
	if byID[busy.ID].CanDelete || byID[busy.ID].InvoiceCount != 1 {
		t.Fatalf("busy client summary = %+v", byID[busy.ID])
	}

	if err := f.clients.Delete(userCtx(uid), busy.ID); !errors.Is(err, services.ErrClientHasInvoices) {
		t.Fatalf("expected delete to be blocked, got %v", err)
	}
	if err := f.clients.Delete(userCtx(uid), idle.ID); err != nil {
		t.Fatalf("delete idle client: %v", err)
	}
	if _, err := f.clients.Get(userCtx(uid), idle.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestClientService_CreateAndUpdate(t *testing.T) {
	f := newFixture(t)
	uid := uuid.New()

	if _, err := f.clients.Create(userCtx(uid), services.ClientInput{Name: " ", Email: "nope"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	c, err := f.clients.Create(userCtx(uid), services.ClientInput{
		Name:    "Kari Nordmann",
		Email:   "kari@example.no",
		City:    strPtr("Oslo"),
		Company: strPtr(""),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.UserID != uid || c.Company != nil {
		t.Fatalf("unexpected client %+v", c)
	}

	updated, err := f.clients.Update(userCtx(uid), c.ID, services.ClientPatch{City: strPtr(""), Phone: strPtr("+47 12345678")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.City != nil || updated.Phone == nil || *updated.Phone != "+47 12345678" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Name != "Kari Nordmann" {
		t.Fatalf("untouched field changed: %s", updated.Name)
	}

	if _, err := f.clients.Update(userCtx(uuid.New()), c.ID, services.ClientPatch{Name: strPtr("X")}); !errors.Is(err, apperr.ErrAuthorizationDenied) {
		t.Fatalf("expected denied for foreign update, got %v", err)
	}
}

func TestCompanyService_Upsert(t *testing.T) {
	f := newFixture(t)
	uid := uuid.New()

	empty, err := f.company.Get(userCtx(uid))
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if empty.CompanyName != "" || empty.UserID != uid {
		t.Fatalf("expected blank settings, got %+v", empty)
	}

	in := services.CompanySettingsInput{CompanyName: "Fjord Design AS", OrganizationNumber: "912345678", VATRegistered: true}
	created, err := f.company.Save(userCtx(uid), in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	in.CompanyName = "Fjord Design"
	in.BankAccount = "1234.56.78903"
	updated, err := f.company.Save(userCtx(uid), in)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if updated.ID != created.ID || updated.CompanyName != "Fjord Design" || updated.BankAccount != "1234.56.78903" {
		t.Fatalf("expected in-place update, got %+v", updated)
	}

	var n int64
	f.db.Model(&models.CompanySettings{}).Where("user_id = ?", uid).Count(&n)
	if n != 1 {
		t.Fatalf("expected one settings row, got %d", n)
	}

	if _, err := f.company.Save(userCtx(uid), services.CompanySettingsInput{Email: "not-an-email"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDashboardService_Summary(t *testing.T) {
	f := newFixture(t)
	uid := uuid.New()
	f.givePoints(t, uid, 4)
	c := f.client(t, uid, "Fjord AS")
	f.invoice(t, uid, c.ID, "2025-0001", models.InvoiceStatusDraft)
	f.invoice(t, uid, c.ID, "2025-0002", models.InvoiceStatusSent)
	f.invoice(t, uid, c.ID, "2025-0003", models.InvoiceStatusPaid)
	f.invoice(t, uuid.New(), c.ID, "2025-0001", models.InvoiceStatusPaid)

	d, err := f.dash.Summary(userCtx(uid))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if d.InvoicePoints != 4 || d.TotalInvoices != 3 || d.ClientCount != 1 {
		t.Fatalf("unexpected summary %+v", d)
	}
	if d.StatusCounts[models.InvoiceStatusCancelled] != 0 || d.StatusCounts[models.InvoiceStatusSent] != 1 {
		t.Fatalf("status counts = %v", d.StatusCounts)
	}
	// each fixture invoice totals 1250
	if !d.OutstandingTotal.Equal(dec("1250")) || !d.PaidTotal.Equal(dec("1250")) {
		t.Fatalf("totals outstanding=%s paid=%s", d.OutstandingTotal, d.PaidTotal)
	}
	if len(d.RecentInvoices) != 3 {
		t.Fatalf("recent = %d", len(d.RecentInvoices))
	}
}
