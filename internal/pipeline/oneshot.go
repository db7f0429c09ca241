package pipeline

import (
	"context"
	"fmt"
	"log"

	"foxfeed/internal/config"
	"foxfeed/internal/connectors"
	"foxfeed/internal/storage"
)

// Oneshot drives a full cycle: fetch mail, intake documents, extract
// records, export per touched supplier. Connector may be nil to run
// against already-registered documents only.
type Oneshot struct {
	db      *storage.DB
	cfg     config.Config
	fetch   *connectors.FetchService
	intake  *IntakeService
	process *ProcessingService
	export  *ExportService
}

func NewOneshot(db *storage.DB, cfg config.Config, connector connectors.MailConnector, fetcher PageFetcher) *Oneshot {
	var fetch *connectors.FetchService
	if connector != nil {
		fetch = connectors.NewFetchService(db, cfg.MailDir, connector)
	}
	return &Oneshot{
		db:      db,
		cfg:     cfg,
		fetch:   fetch,
		intake:  NewIntakeService(db, cfg),
		process: NewProcessingService(db, cfg, fetcher),
		export:  NewExportService(db, cfg),
	}
}

type OneshotResult struct {
	MailsFetched  int
	Documents     int
	RecordsStored int
	Exports       []ExportOutcome
}

func (o *Oneshot) Run(ctx context.Context) (OneshotResult, error) {
	out := OneshotResult{}

	if o.fetch != nil {
		res, err := o.fetch.FetchAndStore(o.cfg.ListenerLabel, o.cfg.ListenerFetchMax)
		if err != nil {
			return out, fmt.Errorf("fetch mail: %w", err)
		}
		out.MailsFetched = res.Fetched
	}

	intake, err := o.intake.IntakePending(o.cfg.ListenerProcessBatch)
	if err != nil {
		return out, fmt.Errorf("intake: %w", err)
	}
	out.Documents = intake.Documents

	results, err := o.process.ProcessPending(ctx, o.cfg.ListenerProcessBatch)
	if err != nil {
		return out, fmt.Errorf("process: %w", err)
	}

	touched := map[int]struct{}{}
	for _, res := range results {
		out.RecordsStored += res.Records
		doc, err := o.db.GetDocumentByID(res.DocumentID)
		if err != nil {
			return out, err
		}
		touched[doc.SupplierID] = struct{}{}
	}

	if o.cfg.ListenerAutoExport {
		for supplierID := range touched {
			supplier, err := o.db.GetSupplierByID(supplierID)
			if err != nil {
				return out, err
			}
			outcome, err := o.export.ExportSupplierCSV(supplier.Name)
			if err != nil {
				log.Printf("export %s: %v", supplier.Name, err)
				continue
			}
			out.Exports = append(out.Exports, outcome)
		}
	}

	return out, nil
}
