package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"foxfeed/internal"
	"foxfeed/internal/config"
	"foxfeed/internal/enrich"
	"foxfeed/internal/storage"
)

// EnrichService runs the attribute generator over a supplier's records
// and persists the results.
type EnrichService struct {
	db  *storage.DB
	svc *enrich.Service
}

func NewEnrichService(db *storage.DB, cfg config.Config, gen enrich.Generator) *EnrichService {
	return &EnrichService{
		db:  db,
		svc: enrich.NewService(gen, cfg.EnrichBatchSize, time.Duration(cfg.EnrichDelayMs)*time.Millisecond),
	}
}

type EnrichOutcome struct {
	Records    int
	Attributes int
	Failed     int
}

func (s *EnrichService) RunSupplier(ctx context.Context, supplierName string) (EnrichOutcome, error) {
	supplier, err := s.db.GetSupplierByName(supplierName)
	if err != nil {
		return EnrichOutcome{}, err
	}
	rows, err := s.db.ListRecordsBySupplier(supplier.ID)
	if err != nil {
		return EnrichOutcome{}, err
	}

	records := make(map[int64]internal.ExtractedRecord, len(rows))
	for _, row := range rows {
		var rec internal.ExtractedRecord
		if err := json.Unmarshal([]byte(row.DataJSON), &rec); err != nil {
			return EnrichOutcome{}, fmt.Errorf("record %d: %w", row.ID, err)
		}
		records[int64(row.ID)] = rec
	}

	results, err := s.svc.Run(ctx, records)
	if err != nil {
		return EnrichOutcome{}, err
	}

	out := EnrichOutcome{Records: len(results)}
	for _, res := range results {
		if res.Err != nil {
			out.Failed++
			continue
		}
		for _, attr := range res.Attributes {
			if err := s.db.UpsertAttribute(int(res.RecordID), attr); err != nil {
				return out, err
			}
			out.Attributes++
		}
	}
	return out, nil
}
