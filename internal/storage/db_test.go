package storage

import (
	"path/filepath"
	"strings"
	"testing"

	"foxfeed/internal"
	"foxfeed/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "foxfeed.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSupplierAndDocumentRoundTrip(t *testing.T) {
	db := openTestDB(t)

	sup, err := db.UpsertSupplier("Conrad")
	if err != nil {
		t.Fatalf("upsert supplier: %v", err)
	}
	again, err := db.UpsertSupplier("Conrad")
	if err != nil || again.ID != sup.ID {
		t.Fatalf("second upsert: id=%d err=%v", again.ID, err)
	}

	doc, err := db.UpsertDocument(internal.DocumentRow{
		SupplierID: sup.ID,
		Source:     internal.SourcePDFCatalog,
		Origin:     "cli",
		Filename:   "katalog.pdf",
		Hash:       "abc123",
		Status:     "registered",
		RawRef:     "/tmp/katalog.pdf",
	})
	if err != nil {
		t.Fatalf("upsert document: %v", err)
	}
	if doc.ID == 0 || doc.Source != internal.SourcePDFCatalog {
		t.Fatalf("doc=%+v", doc)
	}

	pending, err := db.ListDocumentsByStatus("registered", 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending=%d err=%v", len(pending), err)
	}

	if err := db.UpdateDocumentStatus(doc.ID, "processed"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	pending, _ = db.ListDocumentsByStatus("registered", 10)
	if len(pending) != 0 {
		t.Fatalf("still pending: %d", len(pending))
	}
}

func TestRecordsAndAttributes(t *testing.T) {
	db := openTestDB(t)
	sup, _ := db.UpsertSupplier("Conrad")
	doc, _ := db.UpsertDocument(internal.DocumentRow{
		SupplierID: sup.ID, Source: internal.SourcePDFCatalog,
		Origin: "cli", Hash: "h1", Status: "registered", RawRef: "x",
	})

	records := []internal.ExtractedRecord{
		{
			ProductName:   "Longlife Power AA",
			ArticleNumber: util.StringPtr("123-45678"),
			EANCode:       util.StringPtr("4008496635467"),
			Liefermenge:   "1 Stück",
			Confidence:    0.9,
		},
	}
	n, err := db.InsertRecords(doc.ID, sup.ID, records)
	if err != nil || n != 1 {
		t.Fatalf("insert: n=%d err=%v", n, err)
	}

	stored, err := db.ListRecordsBySupplier(sup.ID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("list: n=%d err=%v", len(stored), err)
	}
	if stored[0].ArticleNumber == nil || *stored[0].ArticleNumber != "123-45678" {
		t.Fatalf("articleNumber=%v", stored[0].ArticleNumber)
	}

	attr := internal.CustomAttribute{Key: "zolltarifnummer", Value: "85068080", Type: "string"}
	if err := db.UpsertAttribute(stored[0].ID, attr); err != nil {
		t.Fatalf("attr: %v", err)
	}
	attr.Value = "85068090"
	if err := db.UpsertAttribute(stored[0].ID, attr); err != nil {
		t.Fatalf("attr update: %v", err)
	}

	stored, _ = db.ListRecordsBySupplier(sup.ID)
	if len(stored[0].Attributes) != 1 || stored[0].Attributes[0].Value != "85068090" {
		t.Fatalf("attributes=%+v", stored[0].Attributes)
	}

	if err := db.ClearDocumentRecords(doc.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stored, _ = db.ListRecordsBySupplier(sup.ID)
	if len(stored) != 0 {
		t.Fatalf("records left after clear: %d", len(stored))
	}
}

func TestMappingConfigLayers(t *testing.T) {
	db := openTestDB(t)
	sup, _ := db.UpsertSupplier("Conrad")

	if err := db.SaveMappingConfig("tenant", nil, `[]`); err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if err := db.SaveMappingConfig("supplier", &sup.ID, `[{"targetField":"v_stock"}]`); err != nil {
		t.Fatalf("supplier: %v", err)
	}

	tenant, err := db.GetMappingConfig("tenant", nil)
	if err != nil || tenant == nil || *tenant != `[]` {
		t.Fatalf("tenant=%v err=%v", tenant, err)
	}
	missing, err := db.GetMappingConfig("supplier", util.IntPtr(9999))
	if err != nil || missing != nil {
		t.Fatalf("missing=%v err=%v", missing, err)
	}
}

func TestMappingConfigReimportReplacesLayer(t *testing.T) {
	db := openTestDB(t)
	sup, _ := db.UpsertSupplier("Conrad")

	// Tenant layer twice. The second save must replace the first row,
	// not sit next to it.
	if err := db.SaveMappingConfig("tenant", nil, `[{"targetField":"v_stock","source":"constant","value":100}]`); err != nil {
		t.Fatalf("tenant save: %v", err)
	}
	if err := db.SaveMappingConfig("tenant", nil, `[{"targetField":"v_stock","source":"constant","value":250}]`); err != nil {
		t.Fatalf("tenant resave: %v", err)
	}
	tenant, err := db.GetMappingConfig("tenant", nil)
	if err != nil || tenant == nil {
		t.Fatalf("tenant=%v err=%v", tenant, err)
	}
	if !strings.Contains(*tenant, "250") {
		t.Fatalf("stale tenant config returned: %s", *tenant)
	}

	if err := db.SaveMappingConfig("supplier", &sup.ID, `[{"targetField":"v_delivery_time","source":"constant","value":"5-7 Tage"}]`); err != nil {
		t.Fatalf("supplier save: %v", err)
	}
	if err := db.SaveMappingConfig("supplier", &sup.ID, `[{"targetField":"v_delivery_time","source":"constant","value":"1-2 Tage"}]`); err != nil {
		t.Fatalf("supplier resave: %v", err)
	}
	supplier, err := db.GetMappingConfig("supplier", &sup.ID)
	if err != nil || supplier == nil {
		t.Fatalf("supplier=%v err=%v", supplier, err)
	}
	if !strings.Contains(*supplier, "1-2 Tage") {
		t.Fatalf("stale supplier config returned: %s", *supplier)
	}
}
