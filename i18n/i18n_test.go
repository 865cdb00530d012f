package i18n

import (
	"context"
	"testing"
)

func TestDetectLanguage(t *testing.T) {
	if DetectLanguage("en-US,en;q=0.9") != "en" {
		t.Fatalf("expected en")
	}
	if DetectLanguage("EN-gb") != "en" {
		t.Fatalf("expected en for EN-gb")
	}
	if DetectLanguage("nb-NO,nb;q=0.9,en;q=0.8") != "nb" {
		t.Fatalf("expected nb")
	}
	if DetectLanguage("no") != "nb" {
		t.Fatalf("expected no to map to nb")
	}
	if DetectLanguage("fr-FR,en;q=0.5") != "en" {
		t.Fatalf("expected first supported language")
	}
	if DetectLanguage("") != "nb" {
		t.Fatalf("expected default nb")
	}
}

func TestTranslations(t *testing.T) {
	if T("en", "required") != "Required" {
		t.Fatalf("expected Required")
	}
	if T("nb", "required") != "Påkrevd" {
		t.Fatalf("expected Påkrevd")
	}
	// unknown code -> fallback to code
	if T("en", "__nope__") != "__nope__" {
		t.Fatalf("expected fallback to code")
	}
	// unknown language -> fallback to nb translation
	if T("es", "vat") != "Mva" {
		t.Fatalf("expected nb fallback for es lang")
	}
	if got := Tf("nb", "subtotal", map[string]string{"currency": "NOK"}); got != "I alt NOK ekskl. mva" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for code := range catalog["nb"] {
		if _, ok := catalog["en"][code]; !ok {
			t.Errorf("en catalog misses %q", code)
		}
	}
	for code := range catalog["en"] {
		if _, ok := catalog["nb"][code]; !ok {
			t.Errorf("nb catalog misses %q", code)
		}
	}
}

func TestLangContext(t *testing.T) {
	if LangFrom(context.Background()) != Default {
		t.Fatalf("expected default")
	}
	if LangFrom(WithLang(context.Background(), "en")) != "en" {
		t.Fatalf("expected en")
	}
}
