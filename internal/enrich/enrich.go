// Package enrich fills the attribute side channel for fields that cannot
// be scraped, like customs tariff numbers and hazmat classification.
package enrich

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"foxfeed/internal"
)

// Generator produces custom attributes for one record. Implementations
// wrap an external model endpoint; tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, record internal.ExtractedRecord) ([]internal.CustomAttribute, error)
}

type Result struct {
	RecordID   int64
	Attributes []internal.CustomAttribute
	Err        error
}

type Service struct {
	gen        Generator
	batchSize  int
	batchDelay time.Duration
}

func NewService(gen Generator, batchSize int, batchDelay time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Service{gen: gen, batchSize: batchSize, batchDelay: batchDelay}
}

// Run enriches records in batches. Records within a batch run
// concurrently, batches run strictly one after another with a pause in
// between, so the upstream endpoint sees a bounded request rate.
// A failed record yields a Result with Err set; the run continues.
func (s *Service) Run(ctx context.Context, records map[int64]internal.ExtractedRecord) ([]Result, error) {
	ids := make([]int64, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}

	results := make([]Result, 0, len(ids))
	for start := 0; start < len(ids); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		batchResults := make([]Result, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			go func(i int, id int64) {
				defer wg.Done()
				attrs, err := s.gen.Generate(ctx, records[id])
				if err != nil {
					err = fmt.Errorf("enrich record %d: %w", id, err)
				}
				batchResults[i] = Result{RecordID: id, Attributes: attrs, Err: err}
			}(i, id)
		}
		wg.Wait()
		results = append(results, batchResults...)

		if end < len(ids) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.batchDelay):
			}
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("enrich: %d/%d records failed", failed, len(results))
	}
	return results, nil
}
