package pipeline

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"

	"foxfeed/internal"
	"foxfeed/internal/config"
	"foxfeed/internal/htmlext"
	"foxfeed/internal/pdfext"
	"foxfeed/internal/storage"
	"foxfeed/internal/util"
)

// PageFetcher is the scrape client seam; tests substitute a fake.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

type ProcessingService struct {
	db      *storage.DB
	cfg     config.Config
	pdf     *pdfext.Extractor
	html    *htmlext.Extractor
	fetcher PageFetcher
}

// NewProcessingService wires the extraction stages. fetcher may be nil,
// which disables the scrape-and-merge step.
func NewProcessingService(db *storage.DB, cfg config.Config, fetcher PageFetcher) *ProcessingService {
	return &ProcessingService{
		db:      db,
		cfg:     cfg,
		pdf:     pdfext.NewExtractor(cfg.LayoutTolerance, cfg.RowBucketSize),
		html:    htmlext.NewExtractor(),
		fetcher: fetcher,
	}
}

type ProcessResult struct {
	DocumentID int
	Records    int
	Scraped    int
}

func (s *ProcessingService) ProcessPending(ctx context.Context, limit int) ([]ProcessResult, error) {
	pending, err := s.db.ListDocumentsByStatus("registered", limit)
	if err != nil {
		return nil, err
	}

	out := make([]ProcessResult, 0, len(pending))
	for _, doc := range pending {
		res, err := s.ProcessDocument(ctx, doc)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *ProcessingService) ProcessDocumentByID(ctx context.Context, id int) (ProcessResult, error) {
	doc, err := s.db.GetDocumentByID(id)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessDocument(ctx, doc)
}

// ProcessDocument extracts records from one document and stores them.
// Reprocessing replaces the document's earlier records.
func (s *ProcessingService) ProcessDocument(ctx context.Context, doc internal.DocumentRow) (ProcessResult, error) {
	start := time.Now()
	blob, err := os.ReadFile(doc.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	var records []internal.ExtractedRecord
	scraped := 0

	switch doc.Source {
	case internal.SourcePDFCatalog, internal.SourceMailAttachment:
		extraction, err := s.pdf.ExtractCatalog(blob)
		if err != nil {
			_ = s.db.UpdateDocumentStatus(doc.ID, "failed")
			return ProcessResult{}, fmt.Errorf("document %d: %w", doc.ID, err)
		}
		records = append(extraction.WithURL, extraction.WithoutURL...)
		scraped = s.scrapeAndMerge(ctx, records)
	case internal.SourceHTMLPage, internal.SourceMailHTML:
		page, err := s.html.Extract(string(blob))
		if err != nil {
			_ = s.db.UpdateDocumentStatus(doc.ID, "failed")
			return ProcessResult{}, fmt.Errorf("document %d: %w", doc.ID, err)
		}
		records = []internal.ExtractedRecord{recordFromPage(page, nil)}
	default:
		return ProcessResult{}, fmt.Errorf("document %d: unsupported source %s", doc.ID, doc.Source)
	}

	if err := s.db.ClearDocumentRecords(doc.ID); err != nil {
		return ProcessResult{}, err
	}
	if _, err := s.db.InsertRecords(doc.ID, doc.SupplierID, records); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateDocumentStatus(doc.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}

	_ = s.db.InsertRun(traceID(), doc.ID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"records": len(records), "scraped": scraped})

	return ProcessResult{DocumentID: doc.ID, Records: len(records), Scraped: scraped}, nil
}

// scrapeAndMerge visits each record's product page and folds the page
// extraction into the record. Scrape failures degrade to the catalog-only
// record.
func (s *ProcessingService) scrapeAndMerge(ctx context.Context, records []internal.ExtractedRecord) int {
	if s.fetcher == nil || !s.cfg.ScrapeEnabled {
		return 0
	}

	merged := 0
	for i := range records {
		if records[i].URL == nil {
			continue
		}
		html, err := s.fetcher.FetchPage(ctx, *records[i].URL)
		if err != nil {
			log.Printf("scrape %s: %v", *records[i].URL, err)
			continue
		}
		page, err := s.html.Extract(html)
		if err != nil {
			log.Printf("parse %s: %v", *records[i].URL, err)
			continue
		}
		mergePage(&records[i], page)
		merged++
	}
	return merged
}

// mergePage fills record gaps from the product page. Catalog values win
// where both exist; the page only ever adds.
func mergePage(rec *internal.ExtractedRecord, page htmlext.PageExtraction) {
	if rec.ProductName == "Unknown Product" && page.Title != nil {
		rec.ProductName = *page.Title
	}
	if rec.Description == nil && page.Description != nil {
		rec.Description = page.Description
	}
	if len(rec.Bullets) == 0 {
		rec.Bullets = page.Bullets
	}
	if rec.SupplierTableHTML == nil {
		rec.SupplierTableHTML = page.SupplierTableHTML
	}
	if len(page.Tech) > 0 {
		if rec.TechnicalSpecs == nil {
			rec.TechnicalSpecs = map[string]string{}
		}
		for key, value := range page.Tech {
			if _, ok := rec.TechnicalSpecs[key]; !ok {
				rec.TechnicalSpecs[key] = value
			}
		}
	}
}

// recordFromPage builds a standalone record for a document that is itself
// a product page.
func recordFromPage(page htmlext.PageExtraction, url *string) internal.ExtractedRecord {
	rec := internal.ExtractedRecord{
		ProductName:          "Unknown Product",
		URL:                  url,
		Liefermenge:          "1 Stück",
		LiefermengeDefaulted: true,
		Confidence:           0.5,
	}
	if page.Title != nil {
		rec.ProductName = *page.Title
		rec.Confidence = 0.7
	}
	rec.Description = page.Description
	rec.Bullets = page.Bullets
	rec.SupplierTableHTML = page.SupplierTableHTML
	if len(page.Tech) > 0 {
		rec.TechnicalSpecs = page.Tech
	}
	return rec
}

// ProcessPage scrapes one live product page and registers the result as
// records of an ad-hoc html document.
func (s *ProcessingService) ProcessPage(ctx context.Context, supplierName, url string) (ProcessResult, error) {
	if s.fetcher == nil {
		return ProcessResult{}, fmt.Errorf("scraping disabled")
	}
	html, err := s.fetcher.FetchPage(ctx, url)
	if err != nil {
		return ProcessResult{}, err
	}

	supplier, err := s.db.UpsertSupplier(supplierName)
	if err != nil {
		return ProcessResult{}, err
	}

	page, err := s.html.Extract(html)
	if err != nil {
		return ProcessResult{}, err
	}

	doc, err := s.registerPageDocument(supplier.ID, url, html)
	if err != nil {
		return ProcessResult{}, err
	}

	rec := recordFromPage(page, util.StringPtr(url))
	if err := s.db.ClearDocumentRecords(doc.ID); err != nil {
		return ProcessResult{}, err
	}
	if _, err := s.db.InsertRecords(doc.ID, supplier.ID, []internal.ExtractedRecord{rec}); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateDocumentStatus(doc.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{DocumentID: doc.ID, Records: 1, Scraped: 1}, nil
}

func (s *ProcessingService) registerPageDocument(supplierID int, url, html string) (internal.DocumentRow, error) {
	blob := []byte(html)
	hash := contentHash(blob)

	if err := os.MkdirAll(s.cfg.DocDir, 0o755); err != nil {
		return internal.DocumentRow{}, err
	}
	path := s.cfg.DocDir + "/" + hash + ".html"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, blob, 0o644); err != nil {
			return internal.DocumentRow{}, err
		}
	}

	return s.db.UpsertDocument(internal.DocumentRow{
		SupplierID: supplierID,
		Source:     internal.SourceHTMLPage,
		Origin:     "scrape:" + url,
		Filename:   hash + ".html",
		Hash:       hash,
		Status:     "registered",
		RawRef:     path,
	})
}

func contentHash(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
