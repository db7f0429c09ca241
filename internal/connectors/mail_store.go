package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"foxfeed/internal"
	"foxfeed/internal/storage"
)

type MailStoreService struct {
	db         *storage.DB
	rawMailDir string
}

func NewMailStoreService(db *storage.DB, rawMailDir string) *MailStoreService {
	return &MailStoreService{db: db, rawMailDir: rawMailDir}
}

// Store writes the raw message once, keyed by content hash, and upserts
// the mail row. Refetching the same message is a no-op.
func (s *MailStoreService) Store(mail internal.InboundMail) (int, error) {
	hashBytes := sha256.Sum256(mail.Raw)
	hash := hex.EncodeToString(hashBytes[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return 0, err
	}

	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, mail.Raw, 0o644); err != nil {
			return 0, err
		}
	}

	return s.db.UpsertMail(mail, rawPath, "fetched")
}
