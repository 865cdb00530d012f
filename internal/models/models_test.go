package models

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestInvoiceItem_Compute(t *testing.T) {
	tests := []struct {
		name    string
		qty     string
		price   string
		vatRate string
		wantAmt string
		wantVAT string
	}{
		{"25% VAT", "2", "100", "25", "200", "50"},
		{"15% food VAT", "3", "19.90", "15", "59.70", "8.96"},
		{"0% VAT", "1", "1000", "0", "1000", "0"},
		{"fractional quantity", "1.5", "850", "25", "1275", "318.75"},
		{"quantity beyond column scale", "1.0004", "100", "25", "100", "25"},
		{"price beyond column scale", "1", "99.995", "25", "100", "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &InvoiceItem{Quantity: dec(tt.qty), UnitPrice: dec(tt.price), VATRate: dec(tt.vatRate)}
			item.Compute()
			if !item.Amount.Equal(dec(tt.wantAmt)) {
				t.Errorf("Amount = %s, want %s", item.Amount, tt.wantAmt)
			}
			if !item.VATAmount.Equal(dec(tt.wantVAT)) {
				t.Errorf("VATAmount = %s, want %s", item.VATAmount, tt.wantVAT)
			}
			if !item.Amount.Equal(item.Quantity.Mul(item.UnitPrice).Round(2)) {
				t.Errorf("Amount %s does not match stored quantity %s × price %s", item.Amount, item.Quantity, item.UnitPrice)
			}
		})
	}
}

func TestInvoice_ApplyTotals(t *testing.T) {
	inv := &Invoice{Items: []InvoiceItem{
		{Quantity: dec("2"), UnitPrice: dec("100"), VATRate: dec("25")},
		{Quantity: dec("1"), UnitPrice: dec("49.99"), VATRate: dec("15")},
	}}
	for i := range inv.Items {
		inv.Items[i].Compute()
	}
	inv.ApplyTotals()

	if !inv.SubtotalAmount.Equal(dec("249.99")) {
		t.Errorf("SubtotalAmount = %s", inv.SubtotalAmount)
	}
	if !inv.VATAmount.Equal(dec("57.50")) {
		t.Errorf("VATAmount = %s", inv.VATAmount)
	}
	if !inv.TotalAmount.Equal(inv.SubtotalAmount.Add(inv.VATAmount)) {
		t.Errorf("TotalAmount = %s, want subtotal + vat", inv.TotalAmount)
	}
}

func TestSumItemsEmpty(t *testing.T) {
	got := SumItems(nil)
	if !got.Total.IsZero() || !got.Subtotal.IsZero() || !got.VAT.IsZero() {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}

func TestInvoiceStatus_Valid(t *testing.T) {
	for _, s := range InvoiceStatuses {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if InvoiceStatus("final").Valid() {
		t.Errorf("final is not a status here")
	}
}

func TestClient_GetUserID(t *testing.T) {
	uid := uuid.New()
	client := &Client{UserID: uid}
	if got := client.GetUserID(); got != uid {
		t.Errorf("GetUserID() = %s, want %s", got, uid)
	}
}

func TestClient_FullAddress(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name   string
		client Client
		want   string
	}{
		{"empty", Client{}, ""},
		{"full", Client{Address: str("Storgata 1"), PostalCode: str("0155"), City: str("Oslo"), Country: str("Norge")}, "Storgata 1\n0155 Oslo\nNorge"},
		{"city only", Client{City: str("Bergen")}, "Bergen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.FullAddress(); got != tt.want {
				t.Errorf("FullAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompanySettings_AddressLines(t *testing.T) {
	c := CompanySettings{AddressLine1: "Kongens gate 2", PostalCode: "7011", City: "Trondheim"}
	got := c.AddressLines()
	if len(got) != 2 || got[1] != "7011 Trondheim" {
		t.Fatalf("unexpected lines %q", got)
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	uid, other := uuid.New(), uuid.New()

	n, err := NextInvoiceNumber(db, uid, 2025)
	if err != nil || n != "2025-0001" {
		t.Fatalf("first number = %q, %v", n, err)
	}

	for _, row := range []Invoice{
		{UserID: uid, ClientID: uuid.New(), InvoiceNumber: "2025-0001"},
		{UserID: uid, ClientID: uuid.New(), InvoiceNumber: "2025-0007"},
		{UserID: uid, ClientID: uuid.New(), InvoiceNumber: "2024-0042"},
		{UserID: other, ClientID: uuid.New(), InvoiceNumber: "2025-0100"},
	} {
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err = NextInvoiceNumber(db, uid, 2025)
	if err != nil || n != "2025-0008" {
		t.Fatalf("next number = %q, %v", n, err)
	}

	for _, num := range []string{"2025-9999", "2025-10000"} {
		row := Invoice{UserID: uid, ClientID: uuid.New(), InvoiceNumber: num}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed %s: %v", num, err)
		}
	}
	n, err = NextInvoiceNumber(db, uid, 2025)
	if err != nil || n != "2025-10001" {
		t.Fatalf("number after 10000 = %q, %v", n, err)
	}
}
