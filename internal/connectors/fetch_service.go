package connectors

import (
	"foxfeed/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *MailStoreService
}

type FetchResult struct {
	Fetched int
	Stored  int
	Skipped int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector) *FetchService {
	return &FetchService{
		db:        db,
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
	}
}

// FetchAndStore pulls the inbox and persists every message that has not
// been stored before. Messages already known by (provider, messageId)
// are skipped so a repeated poll cycle leaves the store untouched.
func (s *FetchService) FetchAndStore(label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(label, max)
	if err != nil {
		return FetchResult{}, err
	}

	result := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		seen, err := s.db.MailSeen(msg.Provider, msg.MessageID)
		if err != nil {
			return FetchResult{}, err
		}
		if seen {
			result.Skipped++
			continue
		}
		if _, err := s.store.Store(msg); err != nil {
			return FetchResult{}, err
		}
		result.Stored++
	}

	return result, nil
}
