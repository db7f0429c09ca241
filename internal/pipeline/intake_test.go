package pipeline

import (
	"strings"
	"testing"

	"foxfeed/internal"
	"foxfeed/internal/connectors"
)

const priceListMail = "From: Conrad Electronic <info@conrad.de>\r\n" +
	"To: import@example.com\r\n" +
	"Subject: Aktuelle Preisliste\r\n" +
	"Message-ID: <m1@conrad.de>\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<table><tr><td>Longlife Power AA</td><td>4008496635467</td></tr></table>\r\n"

const chatterMail = "From: Someone <someone@example.com>\r\n" +
	"To: import@example.com\r\n" +
	"Subject: Mittagessen morgen?\r\n" +
	"Message-ID: <m2@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Passt dir 12 Uhr?\r\n"

func TestIntakePriceListMail(t *testing.T) {
	db, cfg := testEnv(t)

	store := connectors.NewMailStoreService(db, cfg.MailDir)
	if _, err := store.Store(internal.InboundMail{
		Provider:   "imap",
		MessageID:  "<m1@conrad.de>",
		Subject:    "Aktuelle Preisliste",
		From:       "Conrad Electronic <info@conrad.de>",
		ReceivedAt: "2026-08-01T09:00:00Z",
		Raw:        []byte(priceListMail),
	}); err != nil {
		t.Fatalf("store: %v", err)
	}

	intake := NewIntakeService(db, cfg)
	res, err := intake.IntakePending(10)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if res.Mails != 1 || res.Documents != 1 || res.Skipped != 0 {
		t.Fatalf("res=%+v", res)
	}

	docs, err := db.ListDocumentsByStatus("registered", 10)
	if err != nil || len(docs) != 1 {
		t.Fatalf("docs=%d err=%v", len(docs), err)
	}
	if docs[0].Source != internal.SourceMailHTML {
		t.Fatalf("source=%s", docs[0].Source)
	}
	if !strings.HasPrefix(docs[0].Origin, "mail:imap/") {
		t.Fatalf("origin=%q", docs[0].Origin)
	}

	sup, err := db.GetSupplierByName("conrad.de")
	if err != nil {
		t.Fatalf("supplier: %v", err)
	}
	if docs[0].SupplierID != sup.ID {
		t.Fatalf("supplierId=%d want %d", docs[0].SupplierID, sup.ID)
	}

	// a second pass finds nothing fetched
	res, err = intake.IntakePending(10)
	if err != nil || res.Mails != 0 {
		t.Fatalf("second pass res=%+v err=%v", res, err)
	}
}

func TestIntakeSkipsChatter(t *testing.T) {
	db, cfg := testEnv(t)

	store := connectors.NewMailStoreService(db, cfg.MailDir)
	if _, err := store.Store(internal.InboundMail{
		Provider:   "imap",
		MessageID:  "<m2@example.com>",
		Subject:    "Mittagessen morgen?",
		From:       "someone@example.com",
		ReceivedAt: "2026-08-01T09:00:00Z",
		Raw:        []byte(chatterMail),
	}); err != nil {
		t.Fatalf("store: %v", err)
	}

	intake := NewIntakeService(db, cfg)
	res, err := intake.IntakePending(10)
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if res.Skipped != 1 || res.Documents != 0 {
		t.Fatalf("res=%+v", res)
	}
	docs, _ := db.ListDocumentsByStatus("registered", 10)
	if len(docs) != 0 {
		t.Fatalf("docs=%d", len(docs))
	}
}
