package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/pdf"
)

func TestInvoiceCreateAndListJSON(t *testing.T) {
	e := newEnv(t)
	uid := uuid.New()
	e.setPoints(t, uid, 1)
	c := e.seedClient(t, uid)

	body := `{"client_id":"` + c.ID.String() + `","issue_date":"2025-06-01","items":[{"description":"Logo","quantity":"2","unit_price":"1500"}]}`
	w := httptest.NewRecorder()
	e.invoices.Create(w, request(http.MethodPost, "/api/invoices", body, uid))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	created := decodeBody(t, w)["data"].(map[string]any)
	if created["invoice_number"] != "2025-0001" || created["total_amount"] != "3750" {
		t.Fatalf("unexpected invoice %v", created)
	}
	if got := e.points(t, uid); got != 0 {
		t.Fatalf("create should consume the point, balance %d", got)
	}

	w = httptest.NewRecorder()
	e.invoices.List(w, request(http.MethodGet, "/api/invoices?status=draft", "", uid))
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	if got := decodeBody(t, w)["count"]; got != float64(1) {
		t.Fatalf("count = %v", got)
	}

	w = httptest.NewRecorder()
	e.invoices.List(w, request(http.MethodGet, "/api/invoices", "", uuid.New()))
	if got := decodeBody(t, w)["count"]; got != float64(0) {
		t.Fatalf("other user sees %v invoices", got)
	}

	w = httptest.NewRecorder()
	e.invoices.List(w, request(http.MethodGet, "/api/invoices?status=bogus", "", uid))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status filter: %d", w.Code)
	}
}

func TestInvoiceCreateValidation(t *testing.T) {
	e := newEnv(t)
	uid := uuid.New()
	e.setPoints(t, uid, 1)

	w := httptest.NewRecorder()
	e.invoices.Create(w, request(http.MethodPost, "/api/invoices", `{"items":[]}`, uid))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	details, ok := decodeBody(t, w)["details"].(map[string]any)
	if !ok || details["client_id"] == nil || details["items"] == nil {
		t.Fatalf("expected violations for client_id and items: %s", w.Body.String())
	}
}

func TestInvoiceGetIsScoped(t *testing.T) {
	e := newEnv(t)
	owner := uuid.New()
	c := e.seedClient(t, owner)
	inv := e.seedInvoice(t, owner, c.ID, models.InvoiceStatusDraft)

	w := httptest.NewRecorder()
	e.invoices.Get(w, withID(request(http.MethodGet, "/api/invoices/x", "", owner), inv.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("owner get: %d", w.Code)
	}

	w = httptest.NewRecorder()
	e.invoices.Get(w, withID(request(http.MethodGet, "/api/invoices/x", "", uuid.New()), inv.ID))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign invoice, got %d", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "Invoice not found or access denied" {
		t.Fatalf("error = %v", got)
	}

	req := request(http.MethodGet, "/api/invoices/x", "", owner)
	req.SetPathValue("id", "not-a-uuid")
	w = httptest.NewRecorder()
	e.invoices.Get(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}
}

func TestInvoiceSendAction(t *testing.T) {
	e := newEnv(t)
	uid := uuid.New()
	c := e.seedClient(t, uid)
	inv := e.seedInvoice(t, uid, c.ID, models.InvoiceStatusDraft)

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		e.invoices.Action(w, withID(request(http.MethodPatch, "/api/invoices/x", `{"action":"send"}`, uid), inv.ID))
		return w
	}

	// no points
	if w := send(); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without points, got %d", w.Code)
	}
	var stored models.Invoice
	e.db.First(&stored, "id = ?", inv.ID)
	if stored.Status != models.InvoiceStatusDraft {
		t.Fatalf("status changed to %s", stored.Status)
	}

	e.setPoints(t, uid, 1)
	w := send()
	if w.Code != http.StatusOK {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["message"] != "Invoice sent successfully" || body["data"].(map[string]any)["status"] != "sent" {
		t.Fatalf("unexpected body %v", body)
	}
	if got := e.points(t, uid); got != 0 {
		t.Fatalf("balance = %d", got)
	}

	// already sent
	if w := send(); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-draft, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	e.invoices.Action(w, withID(request(http.MethodPatch, "/api/invoices/x", `{"action":"archive"}`, uid), inv.ID))
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["error"] != "Unsupported action" {
		t.Fatalf("unsupported action: %d %s", w.Code, w.Body.String())
	}
}

func TestInvoiceUpdate(t *testing.T) {
	e := newEnv(t)
	uid := uuid.New()
	c := e.seedClient(t, uid)
	inv := e.seedInvoice(t, uid, c.ID, models.InvoiceStatusSent)

	cases := []struct {
		name string
		uid  uuid.UUID
		body string
		code int
	}{
		{"allowed fields", uid, `{"notes":"Takk","vat_rate":"15","delivery_place":""}`, http.StatusOK},
		{"unknown field", uid, `{"total_amount":1}`, http.StatusBadRequest},
		{"blank due date", uid, `{"due_date":""}`, http.StatusBadRequest},
		{"foreign", uuid.New(), `{"notes":"x"}`, http.StatusForbidden},
		{"anonymous", uuid.Nil, `{"notes":"x"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			e.invoices.Update(w, withID(request(http.MethodPut, "/api/invoices/x", tc.body, tc.uid), inv.ID))
			if w.Code != tc.code {
				t.Fatalf("expected %d got %d: %s", tc.code, w.Code, w.Body.String())
			}
		})
	}

	var stored models.Invoice
	e.db.First(&stored, "id = ?", inv.ID)
	if stored.Notes == nil || *stored.Notes != "Takk" || stored.VATRate.String() != "15" || stored.DeliveryPlace != nil {
		t.Fatalf("update not applied: %+v", stored)
	}
	if !stored.TotalAmount.Equal(inv.TotalAmount) {
		t.Fatalf("total changed to %s", stored.TotalAmount)
	}
}

func TestInvoiceDeleteAndPDF(t *testing.T) {
	e := newEnv(t)
	uid := uuid.New()
	c := e.seedClient(t, uid)
	inv := e.seedInvoice(t, uid, c.ID, models.InvoiceStatusDraft)

	w := httptest.NewRecorder()
	e.invoices.PDF(w, withID(request(http.MethodGet, "/api/invoices/x/pdf", "", uid), inv.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("pdf: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type %q", ct)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF")
	}

	w = httptest.NewRecorder()
	e.invoices.Delete(w, withID(request(http.MethodDelete, "/api/invoices/x", "", uuid.New()), inv.ID))
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: %d", w.Code)
	}

	w = httptest.NewRecorder()
	e.invoices.Delete(w, withID(request(http.MethodDelete, "/api/invoices/x", "", uid), inv.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	var n int64
	e.db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&n)
	if n != 0 {
		t.Fatalf("%d items left behind", n)
	}
}

func TestInvoiceDocumentUsesStoredAmounts(t *testing.T) {
	// as read back from postgres: quantity cut to numeric(12,3) after the
	// amount was computed
	inv := &models.Invoice{
		InvoiceNumber: "2025-0003",
		Items: []models.InvoiceItem{{
			Description: "Timer",
			Quantity:    decimal.RequireFromString("1.000"),
			UnitPrice:   decimal.RequireFromString("100.00"),
			VATRate:     decimal.NewFromInt(25),
			Amount:      decimal.RequireFromString("100.04"),
			VATAmount:   decimal.RequireFromString("25.01"),
		}},
	}
	data := invoiceDocument(inv, &models.CompanySettings{}, "nb")
	got := pdf.Summarize(data.Items)
	if !got.Subtotal.Equal(decimal.RequireFromString("100.04")) || !got.VAT.Equal(decimal.RequireFromString("25.01")) {
		t.Fatalf("rendered subtotal %s vat %s, want the stored line amounts", got.Subtotal, got.VAT)
	}
}
