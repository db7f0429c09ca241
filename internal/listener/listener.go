package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"foxfeed/internal/config"
	"foxfeed/internal/connectors"
	gmailconnector "foxfeed/internal/connectors/gmail"
	imapconnector "foxfeed/internal/connectors/imap"
	"foxfeed/internal/pipeline"
	"foxfeed/internal/scrape"
	"foxfeed/internal/storage"
)

type Service struct {
	db  *storage.DB
	cfg config.Config
}

func NewService(db *storage.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

func (s *Service) Run(ctx context.Context) error {
	for {
		if err := s.runCycle(ctx); err != nil {
			fmt.Printf("listener cycle error: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(s.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
	mailConnector, err := s.makeConnector(provider)
	if err != nil {
		return err
	}

	var fetcher pipeline.PageFetcher
	if s.cfg.ScrapeEnabled {
		fetcher = scrape.NewClient(s.cfg)
	}

	oneshot := pipeline.NewOneshot(s.db, s.cfg, mailConnector, fetcher)
	res, err := oneshot.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("listener cycle done provider=%s fetched=%d documents=%d records=%d exports=%d\n",
		provider, res.MailsFetched, res.Documents, res.RecordsStored, len(res.Exports))
	return nil
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}
