package i18n

import (
	"context"
	"strings"
)

// Default is the fallback language.
const Default = "nb"

type ctxKey struct{}

var catalog = map[string]map[string]string{
	"nb": {
		"required":           "Påkrevd",
		"invoice_point":      "Fakturapoeng",
		"invoice_updated":    "Fakturaen ble oppdatert",
		"invoice_deleted":    "Fakturaen ble slettet",
		"invoice_sent":       "Fakturaen ble sendt",
		"invoice_created":    "Fakturaen ble opprettet",
		"invoice_not_found":  "Fakturaen finnes ikke eller du har ikke tilgang",
		"client_not_found":   "Kunden finnes ikke eller du har ikke tilgang",
		"client_deleted":     "Kunden ble slettet",
		"client_updated":     "Kunden ble oppdatert",
		"settings_saved":     "Innstillingene ble lagret",
		"unsupported_action": "Ugyldig handling",
		"unauthorized":       "Ikke innlogget",
		"access_denied":      "Ingen tilgang",
		"internal_error":     "Noe gikk galt",
		"invoice":            "Faktura",
		"invoice_number":     "Fakturanr.",
		"date":               "Dato",
		"due_date":           "Forfallsdato",
		"delivery_address":   "Leveringsadresse",
		"delivery_time":      "Leveringstid",
		"col_number":         "Nummer",
		"col_description":    "Beskrivelse",
		"col_quantity":       "Antall",
		"col_unit":           "Enhet",
		"col_unit_price":     "Enhetspris",
		"col_amount":         "Beløp",
		"col_vat":            "Moms %",
		"subtotal":           "I alt {currency} ekskl. mva",
		"vat":                "Mva",
		"total":              "I alt {currency} inkl. mva",
		"payment_terms":      "Betalingsbetingelser",
		"payment_terms_text": "Betales innen {due} til konto {account}",
		"org_number":         "Org.nr",
		"vat_number":         "MVA-nr",
		"page":               "Side",
		"notes":              "Merknader",
		"foretaksregisteret": "Foretaksregisteret",
	},
	"en": {
		"required":           "Required",
		"invoice_point":      "Invoice Point",
		"invoice_updated":    "Invoice updated successfully",
		"invoice_deleted":    "Invoice deleted successfully",
		"invoice_sent":       "Invoice sent successfully",
		"invoice_created":    "Invoice created successfully",
		"invoice_not_found":  "Invoice not found or access denied",
		"client_not_found":   "Client not found or access denied",
		"client_deleted":     "Client deleted successfully",
		"client_updated":     "Client updated successfully",
		"settings_saved":     "Settings saved",
		"unsupported_action": "Unsupported action",
		"unauthorized":       "Unauthorized",
		"access_denied":      "Access denied",
		"internal_error":     "Something went wrong",
		"invoice":            "Invoice",
		"invoice_number":     "Invoice no.",
		"date":               "Date",
		"due_date":           "Due date",
		"delivery_address":   "Delivery address",
		"delivery_time":      "Delivery time",
		"col_number":         "No.",
		"col_description":    "Description",
		"col_quantity":       "Qty",
		"col_unit":           "Unit",
		"col_unit_price":     "Unit price",
		"col_amount":         "Amount",
		"col_vat":            "VAT %",
		"subtotal":           "Total {currency} excl. VAT",
		"vat":                "VAT",
		"total":              "Total {currency} incl. VAT",
		"payment_terms":      "Payment terms",
		"payment_terms_text": "Pay by {due} to account {account}",
		"org_number":         "Org. no.",
		"vat_number":         "VAT no.",
		"page":               "Page",
		"notes":              "Notes",
		"foretaksregisteret": "Register of Business Enterprises",
	},
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalog[lang]
	return ok
}

// DetectLanguage picks the first supported language of an Accept-Language
// header, falling back to Default.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		switch base {
		case "no", "nn":
			base = "nb"
		}
		if Supported(base) {
			return base
		}
	}
	return Default
}

// T translates code; unknown languages use Default and unknown codes are
// returned as is.
func T(lang, code string) string {
	if m, ok := catalog[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := catalog[Default][code]; ok {
		return s
	}
	return code
}

// Tf translates code and substitutes {name} placeholders.
func Tf(lang, code string, args map[string]string) string {
	s := T(lang, code)
	for k, v := range args {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ctxKey{}, lang)
}

// LangFrom returns the language stored in ctx or Default.
func LangFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return Default
}
