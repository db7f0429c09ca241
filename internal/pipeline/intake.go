package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"foxfeed/internal"
	"foxfeed/internal/config"
	"foxfeed/internal/storage"
)

// IntakeService turns fetched mails into registered documents: PDF
// attachments become catalog documents, an HTML body with product data
// becomes an html document. Mails that don't look like price lists are
// marked skipped.
type IntakeService struct {
	db  *storage.DB
	cfg config.Config
}

func NewIntakeService(db *storage.DB, cfg config.Config) *IntakeService {
	return &IntakeService{db: db, cfg: cfg}
}

type IntakeResult struct {
	Mails     int
	Documents int
	Skipped   int
}

func (s *IntakeService) IntakePending(limit int) (IntakeResult, error) {
	// mails table shares the status flow with documents: fetched ->
	// ingested or skipped
	rows, err := s.db.ListMailsByStatus("fetched", limit)
	if err != nil {
		return IntakeResult{}, err
	}

	out := IntakeResult{}
	for _, row := range rows {
		docs, skipped, err := s.intakeMail(row)
		if err != nil {
			return out, err
		}
		out.Mails++
		out.Documents += docs
		if skipped {
			out.Skipped++
		}
	}
	return out, nil
}

func (s *IntakeService) intakeMail(row internal.MailRow) (int, bool, error) {
	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return 0, false, err
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return 0, false, err
	}

	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		attachmentNames = append(attachmentNames, att.FileName)
	}

	detect := DetectPriceList(row.Subject, env.Text, env.HTML, attachmentNames)
	if !detect.IsPriceList {
		if err := s.db.UpdateMailStatus(row.ID, "skipped"); err != nil {
			return 0, false, err
		}
		return 0, true, nil
	}

	supplier, err := s.db.UpsertSupplier(supplierFromSender(row.Sender))
	if err != nil {
		return 0, false, err
	}

	docs := 0
	for _, att := range env.Attachments {
		if !strings.HasSuffix(strings.ToLower(att.FileName), ".pdf") {
			continue
		}
		if err := s.registerBlob(supplier.ID, internal.SourceMailAttachment, row, att.FileName, ".pdf", att.Content); err != nil {
			return docs, false, err
		}
		docs++
	}

	if env.HTML != "" && strings.Contains(strings.ToLower(env.HTML), "<table") {
		if err := s.registerBlob(supplier.ID, internal.SourceMailHTML, row, "body.html", ".html", []byte(env.HTML)); err != nil {
			return docs, false, err
		}
		docs++
	}

	if err := s.db.UpdateMailStatus(row.ID, "ingested"); err != nil {
		return docs, false, err
	}
	return docs, false, nil
}

func (s *IntakeService) registerBlob(supplierID int, source internal.DocumentSource, row internal.MailRow, filename, ext string, blob []byte) error {
	hashBytes := sha256.Sum256(blob)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.cfg.DocDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.cfg.DocDir, hash+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, blob, 0o644); err != nil {
			return err
		}
	}

	_, err := s.db.UpsertDocument(internal.DocumentRow{
		SupplierID: supplierID,
		Source:     source,
		Origin:     fmt.Sprintf("mail:%s/%s", row.Provider, row.MessageID),
		Filename:   filename,
		Hash:       hash,
		Status:     "registered",
		RawRef:     path,
	})
	return err
}

// RegisterFile registers a local document directly, the CLI path around
// the mail intake.
func (s *IntakeService) RegisterFile(supplierName, path string, source internal.DocumentSource) (internal.DocumentRow, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	supplier, err := s.db.UpsertSupplier(supplierName)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	hashBytes := sha256.Sum256(blob)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.cfg.DocDir, 0o755); err != nil {
		return internal.DocumentRow{}, err
	}
	stored := filepath.Join(s.cfg.DocDir, hash+filepath.Ext(path))
	if _, err := os.Stat(stored); os.IsNotExist(err) {
		if err := os.WriteFile(stored, blob, 0o644); err != nil {
			return internal.DocumentRow{}, err
		}
	}

	return s.db.UpsertDocument(internal.DocumentRow{
		SupplierID: supplier.ID,
		Source:     source,
		Origin:     "cli:" + path,
		Filename:   filepath.Base(path),
		Hash:       hash,
		Status:     "registered",
		RawRef:     stored,
	})
}

// supplierFromSender derives a stable supplier name from the mail sender,
// preferring the address domain over the free-form display name.
func supplierFromSender(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		if at := strings.LastIndex(addr.Address, "@"); at >= 0 {
			return strings.ToLower(addr.Address[at+1:])
		}
	}
	if at := strings.LastIndex(sender, "@"); at >= 0 {
		domain := sender[at+1:]
		domain = strings.Trim(domain, "<> ")
		if domain != "" {
			return strings.ToLower(domain)
		}
	}
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return "unknown"
	}
	return strings.ToLower(sender)
}
