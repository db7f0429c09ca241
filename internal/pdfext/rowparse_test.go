package pdfext

import (
	"strings"
	"testing"

	"foxfeed/internal"
	"foxfeed/internal/util"
)

func TestParseRowFull(t *testing.T) {
	row := "Varta 123-45678 4008496635467 Longlife Power AA Batterie VE 4er 12,50 € 19,99 €"
	rec := ParseRow(row, util.StringPtr("https://shop.example/p/123"))
	if rec == nil {
		t.Fatal("nil record")
	}
	if rec.ArticleNumber == nil || *rec.ArticleNumber != "12345678" {
		t.Fatalf("articleNumber=%v", rec.ArticleNumber)
	}
	if rec.EANCode == nil || *rec.EANCode != "4008496635467" {
		t.Fatalf("eanCode=%v", rec.EANCode)
	}
	if rec.Marke == nil || *rec.Marke != "Varta" {
		t.Fatalf("marke=%v", rec.Marke)
	}
	if !strings.Contains(rec.ProductName, "Longlife Power AA Batterie") {
		t.Fatalf("name=%q", rec.ProductName)
	}
	if rec.Liefermenge != "4er" || rec.LiefermengeDefaulted {
		t.Fatalf("liefermenge=%q defaulted=%v", rec.Liefermenge, rec.LiefermengeDefaulted)
	}
	if rec.Confidence != 0.9 {
		t.Fatalf("confidence=%v", rec.Confidence)
	}
}

func TestParseRowNetPriceIsSecondToLast(t *testing.T) {
	rec := ParseRow("Varta 87654321 Ladegerät Universal 12,50 19,99", nil)
	if rec == nil {
		t.Fatal("nil record")
	}
	if rec.EKPrice == nil || *rec.EKPrice != "12,50" {
		t.Fatalf("ekPrice=%v, want 12,50", rec.EKPrice)
	}
}

func TestParseRowSinglePrice(t *testing.T) {
	rec := ParseRow("Ansmann 87654321 Akkubox Transportbox 3,49", nil)
	if rec == nil {
		t.Fatal("nil record")
	}
	if rec.EKPrice == nil || *rec.EKPrice != "3,49" {
		t.Fatalf("ekPrice=%v", rec.EKPrice)
	}
}

func TestParseRowDeliveryQuantityDefault(t *testing.T) {
	rec := ParseRow("Ansmann 87654321 Akkubox Transportbox 3,49", nil)
	if rec == nil {
		t.Fatal("nil record")
	}
	if rec.Liefermenge != "1 Stück" || !rec.LiefermengeDefaulted {
		t.Fatalf("liefermenge=%q defaulted=%v", rec.Liefermenge, rec.LiefermengeDefaulted)
	}
}

func TestParseRowDeliveryQuantityPatterns(t *testing.T) {
	cases := []struct {
		row  string
		want string
	}{
		{row: "Varta 87654321 Batterie 4er Blister 2,99", want: "4er"},
		{row: "Varta 87654321 Batterie 4 Stück 2,99", want: "4 Stück"},
		{row: "Varta 87654321 Batterie 100 Karton 2,99", want: "100 Karton"},
		{row: "Varta 87654321 Batterie 10 Pack 2,99", want: "10 Pack"},
	}
	for _, tc := range cases {
		rec := ParseRow(tc.row, nil)
		if rec == nil {
			t.Fatalf("%q: nil", tc.row)
		}
		if rec.Liefermenge != tc.want {
			t.Fatalf("%q: got %q want %q", tc.row, rec.Liefermenge, tc.want)
		}
	}
}

func TestParseRowRejectsWithoutIdentifier(t *testing.T) {
	if rec := ParseRow("Seite 3 von 12 Preisliste 2026", nil); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
}

func TestParseRowRejectsBoilerplate(t *testing.T) {
	if rec := ParseRow("Impressum und Datenschutz 87654321 4,99", nil); rec != nil {
		t.Fatalf("expected nil, got %+v", rec)
	}
	if rec := ParseRow("Varta 87654321 Batterie Longlife 4,99", util.StringPtr("https://shop.example/agb")); rec != nil {
		t.Fatalf("expected nil for denylisted url, got %+v", rec)
	}
}

func TestParseRowUnknownProductFallback(t *testing.T) {
	rec := ParseRow("XY 87654321 1,99", nil)
	if rec == nil {
		t.Fatal("nil record")
	}
	if rec.ProductName != "Unknown Product" {
		t.Fatalf("name=%q", rec.ProductName)
	}
}

func TestDedupe(t *testing.T) {
	url := "https://shop.example/p/1"
	a := internal.ExtractedRecord{ProductName: "A", URL: &url}
	b := internal.ExtractedRecord{ProductName: "B", URL: &url}
	got := dedupeByURL([]internal.ExtractedRecord{a, b})
	if len(got) != 1 || got[0].ProductName != "A" {
		t.Fatalf("got %+v", got)
	}

	art := "87654321"
	ean := "4008496635467"
	c := internal.ExtractedRecord{ProductName: "C", ArticleNumber: &art}
	d := internal.ExtractedRecord{ProductName: "D", EANCode: &ean}
	e := internal.ExtractedRecord{ProductName: "E", ArticleNumber: &art, EANCode: &ean}
	got = dedupeByIdentity([]internal.ExtractedRecord{c, d, e})
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
}
