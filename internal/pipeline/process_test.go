package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"foxfeed/internal"
	"foxfeed/internal/config"
	"foxfeed/internal/storage"
	"foxfeed/internal/util"
)

const productPage = `
<html><body>
<h1>Akku Pack 7,2 V 5200 mAh</h1>
<div class="features"><ul>
<li>Schnellladefähig dank Spezialzellen</li>
<li>Drücken Sie die Eingabetaste zum Suchen</li>
</ul></div>
<table><tr><th>Gewicht</th><td>0.102 kg</td></tr></table>
<div class="product-description"><p>Hochwertiger Ersatzakku.</p></div>
</body></html>`

func testEnv(t *testing.T) (*storage.DB, config.Config) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg, _ := config.Load()
	cfg.DBPath = filepath.Join(dir, "app.db")
	cfg.DocDir = filepath.Join(dir, "docs")
	cfg.MailDir = filepath.Join(dir, "mail")
	cfg.OutputDir = filepath.Join(dir, "out")
	return db, cfg
}

func TestProcessHTMLDocument(t *testing.T) {
	db, cfg := testEnv(t)

	sup, _ := db.UpsertSupplier("akku-shop.de")
	if err := os.MkdirAll(cfg.DocDir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(cfg.DocDir, "page.html")
	if err := os.WriteFile(path, []byte(productPage), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := db.UpsertDocument(internal.DocumentRow{
		SupplierID: sup.ID,
		Source:     internal.SourceHTMLPage,
		Origin:     "cli:page.html",
		Hash:       "h1",
		Status:     "registered",
		RawRef:     path,
	})
	if err != nil {
		t.Fatal(err)
	}

	svc := NewProcessingService(db, cfg, nil)
	res, err := svc.ProcessDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Records != 1 {
		t.Fatalf("records=%d", res.Records)
	}

	stored, err := db.ListRecordsBySupplier(sup.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored=%d err=%v", len(stored), err)
	}

	var rec internal.ExtractedRecord
	if err := json.Unmarshal([]byte(stored[0].DataJSON), &rec); err != nil {
		t.Fatal(err)
	}
	if rec.ProductName != "Akku Pack 7,2 V 5200 mAh" {
		t.Fatalf("name=%q", rec.ProductName)
	}
	if len(rec.Bullets) != 1 || rec.Bullets[0] != "Schnellladefähig dank Spezialzellen" {
		t.Fatalf("bullets=%v", rec.Bullets)
	}
	if rec.TechnicalSpecs["weight"] != "102 g" {
		t.Fatalf("weight=%q", rec.TechnicalSpecs["weight"])
	}
	if !rec.LiefermengeDefaulted || rec.Liefermenge != "1 Stück" {
		t.Fatalf("liefermenge=%q defaulted=%v", rec.Liefermenge, rec.LiefermengeDefaulted)
	}

	// reprocessing must not duplicate records
	if _, err := svc.ProcessDocument(context.Background(), doc); err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	stored, _ = db.ListRecordsBySupplier(sup.ID)
	if len(stored) != 1 {
		t.Fatalf("after reprocess stored=%d", len(stored))
	}
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	return f.pages[url], nil
}

func TestMergePagePrefersCatalogValues(t *testing.T) {
	rec := internal.ExtractedRecord{
		ProductName: "Longlife Power AA",
		Description: util.StringPtr("Aus dem Katalog."),
	}
	svc := NewProcessingService(nil, config.Config{ScrapeEnabled: true}, &fakeFetcher{})
	page, err := svc.html.Extract(productPage)
	if err != nil {
		t.Fatal(err)
	}
	mergePage(&rec, page)

	if rec.ProductName != "Longlife Power AA" {
		t.Fatalf("catalog name overwritten: %q", rec.ProductName)
	}
	if *rec.Description != "Aus dem Katalog." {
		t.Fatalf("catalog description overwritten: %q", *rec.Description)
	}
	if len(rec.Bullets) != 1 {
		t.Fatalf("bullets not merged: %v", rec.Bullets)
	}
	if rec.TechnicalSpecs["weight"] != "102 g" {
		t.Fatalf("tech not merged: %v", rec.TechnicalSpecs)
	}
}

func TestMergePageFillsUnknownName(t *testing.T) {
	rec := internal.ExtractedRecord{ProductName: "Unknown Product"}
	svc := NewProcessingService(nil, config.Config{}, nil)
	page, err := svc.html.Extract(productPage)
	if err != nil {
		t.Fatal(err)
	}
	mergePage(&rec, page)
	if rec.ProductName != "Akku Pack 7,2 V 5200 mAh" {
		t.Fatalf("name=%q", rec.ProductName)
	}
}

func TestDetectPriceList(t *testing.T) {
	res := DetectPriceList("Aktuelle Preisliste Q3", "", "", []string{"katalog.pdf"})
	if !res.IsPriceList {
		t.Fatalf("expected positive, score=%f", res.Score)
	}

	res = DetectPriceList("Meeting nächste Woche", "Hallo, passt Dienstag?", "", nil)
	if res.IsPriceList {
		t.Fatalf("expected negative, score=%f", res.Score)
	}
}

func TestSupplierFromSender(t *testing.T) {
	cases := map[string]string{
		"Conrad Electronic <info@conrad.de>": "conrad.de",
		"info@akku-shop.de":                  "akku-shop.de",
		"":                                   "unknown",
	}
	for in, want := range cases {
		if got := supplierFromSender(in); got != want {
			t.Fatalf("supplierFromSender(%q)=%q want %q", in, got, want)
		}
	}
}
