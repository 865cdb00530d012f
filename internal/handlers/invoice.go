package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/diewo77/faktura/httpx"
	"github.com/diewo77/faktura/i18n"
	"github.com/diewo77/faktura/internal/models"
	"github.com/diewo77/faktura/internal/repository"
	"github.com/diewo77/faktura/internal/services"
	"github.com/diewo77/faktura/pdf"
	"github.com/diewo77/faktura/validation"
)

// InvoiceHandler serves /api/invoices.
type InvoiceHandler struct {
	svc     *services.InvoiceService
	company *services.CompanyService
	log     zerolog.Logger
}

func NewInvoiceHandler(svc *services.InvoiceService, company *services.CompanyService, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, company: company, log: log}
}

// List: GET /api/invoices[?status=&client_id=]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	f := repository.Filters{}
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		if !models.InvoiceStatus(s).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "validation failed", validation.Violations{"status": "invalid_choice"})
			return
		}
		f["status"] = s
	}
	if s := q.Get("client_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation failed", validation.Violations{"client_id": "invalid_id"})
			return
		}
		f["client_id"] = id
	}
	invs, err := h.svc.List(r.Context(), f)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": invs, "count": len(invs)})
}

// Create: POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateInvoiceInput
	if !decode(w, r, &in) {
		return
	}
	res, err := h.svc.Create(r.Context(), in)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

// Get: GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

// Update: PUT /api/invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch services.InvoicePatch
	if !decode(w, r, &patch) {
		return
	}
	inv, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": message(r, "invoice_updated"), "data": inv})
}

type actionRequest struct {
	Action string `json:"action"`
}

// Action: PATCH /api/invoices/{id} with {"action":"send"}
func (h *InvoiceHandler) Action(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Action != "send" {
		httpx.JSONError(w, http.StatusBadRequest, message(r, "unsupported_action"), nil)
		return
	}
	inv, err := h.svc.Send(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": message(r, "invoice_sent"), "data": inv})
}

// Delete: DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		fail(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": message(r, "invoice_deleted")})
}

// PDF: GET /api/invoices/{id}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	settings, err := h.company.Get(r.Context())
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	out, err := pdf.InvoicePDF(invoiceDocument(inv, settings, i18n.LangFrom(r.Context())))
	if err != nil {
		fail(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="faktura-`+inv.InvoiceNumber+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func invoiceDocument(inv *models.Invoice, c *models.CompanySettings, lang string) pdf.InvoiceData {
	data := pdf.InvoiceData{
		Lang:         lang,
		Currency:     "NOK",
		Number:       inv.InvoiceNumber,
		IssueDate:    time.Time(inv.IssueDate),
		DueDate:      time.Time(inv.DueDate),
		DeliveryTime: inv.DeliveryTime,
		CreatedAt:    inv.CreatedAt,
		Company: pdf.CompanyData{
			Name:               c.CompanyName,
			Address:            c.AddressLines(),
			OrganizationNumber: c.OrganizationNumber,
			Registered:         c.IsCompanyRegistered,
			Email:              c.Email,
			Phone:              c.Phone,
			Website:            c.Website,
			BankAccount:        c.BankAccount,
		},
	}
	if c.VATRegistered {
		data.Company.VATNumber = c.VATNumber
	}
	if inv.DeliveryPlace != nil {
		data.DeliveryPlace = *inv.DeliveryPlace
	}
	if inv.Notes != nil {
		data.Notes = *inv.Notes
	}
	if inv.Client != nil {
		data.Client = pdf.ClientData{
			Name:    inv.Client.DisplayName(),
			Address: splitLines(inv.Client.FullAddress()),
			Email:   inv.Client.Email,
		}
	}
	for _, it := range inv.Items {
		data.Items = append(data.Items, pdf.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
			VATRate:     it.VATRate,
			Amount:      it.Amount,
			VAT:         it.VATAmount,
		})
	}
	return data
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
