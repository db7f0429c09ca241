package connectors

import (
	"os"
	"path/filepath"
	"testing"

	"foxfeed/internal"
	"foxfeed/internal/storage"
)

type fakeConnector struct {
	mails []internal.InboundMail
}

func (f *fakeConnector) FetchInbox(label string, max int) ([]internal.InboundMail, error) {
	return f.mails, nil
}

func TestFetchAndStoreSkipsSeenMails(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "app.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	conn := &fakeConnector{mails: []internal.InboundMail{
		{
			Provider:   "imap",
			MessageID:  "<preisliste-q3@conrad.de>",
			Subject:    "Aktuelle Preisliste",
			From:       "info@conrad.de",
			ReceivedAt: "2026-08-31T08:00:00Z",
			Raw:        []byte("From: info@conrad.de\r\n\r\nPreisliste"),
		},
		{
			Provider:   "imap",
			MessageID:  "<sortiment@akku-shop.de>",
			Subject:    "Sortiment",
			From:       "info@akku-shop.de",
			ReceivedAt: "2026-08-31T09:00:00Z",
			Raw:        []byte("From: info@akku-shop.de\r\n\r\nSortiment"),
		},
	}}

	mailDir := filepath.Join(dir, "mail")
	fetch := NewFetchService(db, mailDir, conn)

	res, err := fetch.FetchAndStore("INBOX", 50)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if res.Fetched != 2 || res.Stored != 2 || res.Skipped != 0 {
		t.Fatalf("first fetch: %+v", res)
	}

	// second cycle sees the same inbox; nothing new may be stored
	res, err = fetch.FetchAndStore("INBOX", 50)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if res.Fetched != 2 || res.Stored != 0 || res.Skipped != 2 {
		t.Fatalf("second fetch: %+v", res)
	}

	entries, err := os.ReadDir(mailDir)
	if err != nil {
		t.Fatalf("read mail dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("raw mails on disk: %d", len(entries))
	}

	pending, err := db.ListMailsByStatus("fetched", 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending mails: n=%d err=%v", len(pending), err)
	}
}
