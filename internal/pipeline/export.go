package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"foxfeed/internal"
	"foxfeed/internal/config"
	"foxfeed/internal/export"
	"foxfeed/internal/mapping"
	"foxfeed/internal/storage"
)

// ExportService maps a supplier's stored records through the layered
// mapping configuration and writes the import file.
type ExportService struct {
	db     *storage.DB
	cfg    config.Config
	engine *mapping.Engine
}

func NewExportService(db *storage.DB, cfg config.Config) *ExportService {
	return &ExportService{
		db:     db,
		cfg:    cfg,
		engine: mapping.NewEngine(cfg.PriceMarkup, cfg.VATRate),
	}
}

type ExportOutcome struct {
	Path    string
	Records int
}

func (s *ExportService) ExportSupplierCSV(supplierName string) (ExportOutcome, error) {
	rows, supplier, err := s.mapSupplier(supplierName)
	if err != nil {
		return ExportOutcome{}, err
	}

	path := filepath.Join(s.cfg.OutputDir, exportFilename(supplier.Name, "csv"))
	delimiter := ','
	if s.cfg.ExportDelimiter != "" {
		delimiter = rune(s.cfg.ExportDelimiter[0])
	}
	if err := export.WriteDelimitedFile(path, rows, s.engine.Schema(), delimiter); err != nil {
		return ExportOutcome{}, err
	}
	return ExportOutcome{Path: path, Records: len(rows)}, nil
}

func (s *ExportService) ExportSupplierXLSX(supplierName string) (ExportOutcome, error) {
	rows, supplier, err := s.mapSupplier(supplierName)
	if err != nil {
		return ExportOutcome{}, err
	}

	path := filepath.Join(s.cfg.OutputDir, exportFilename(supplier.Name, "xlsx"))
	if err := export.WriteXLSX(path, rows, s.engine.Schema()); err != nil {
		return ExportOutcome{}, err
	}
	return ExportOutcome{Path: path, Records: len(rows)}, nil
}

// MapSupplier exposes the mapped rows without writing a file, for the
// field catalog and dry runs.
func (s *ExportService) MapSupplier(supplierName string) ([]mapping.OutputRow, error) {
	rows, _, err := s.mapSupplier(supplierName)
	return rows, err
}

func (s *ExportService) mapSupplier(supplierName string) ([]mapping.OutputRow, internal.SupplierRow, error) {
	supplier, err := s.db.GetSupplierByName(supplierName)
	if err != nil {
		return nil, internal.SupplierRow{}, err
	}

	records, err := s.db.ListRecordsBySupplier(supplier.ID)
	if err != nil {
		return nil, internal.SupplierRow{}, err
	}

	layered, err := s.LoadLayered(supplier.ID)
	if err != nil {
		return nil, internal.SupplierRow{}, err
	}

	sources := make([]mapping.SourceRecord, 0, len(records))
	for _, row := range records {
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(row.DataJSON), &fields); err != nil {
			return nil, internal.SupplierRow{}, fmt.Errorf("record %d: %w", row.ID, err)
		}
		sources = append(sources, mapping.SourceRecord{Fields: fields, Attributes: row.Attributes})
	}

	return s.engine.MapRecords(sources, layered, supplier.Name), supplier, nil
}

// LoadLayered assembles the mapping chain from stored configs. Missing
// layers fall through to the built-in defaults.
func (s *ExportService) LoadLayered(supplierID int) (mapping.Layered, error) {
	supplierSet, err := s.loadConfigSet("supplier", &supplierID)
	if err != nil {
		return mapping.Layered{}, err
	}
	tenantSet, err := s.loadConfigSet("tenant", nil)
	if err != nil {
		return mapping.Layered{}, err
	}
	return mapping.NewLayered(supplierSet, tenantSet), nil
}

func (s *ExportService) loadConfigSet(scope string, supplierID *int) (mapping.MappingSet, error) {
	raw, err := s.db.GetMappingConfig(scope, supplierID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var entries []mapping.FieldMapping
	if err := json.Unmarshal([]byte(*raw), &entries); err != nil {
		return nil, fmt.Errorf("mapping config %s: %w", scope, err)
	}
	set := make(mapping.MappingSet, len(entries))
	for _, e := range entries {
		set[e.TargetField] = e
	}
	return set, nil
}

// SaveMappingSet stores one layer as JSON in the database.
func (s *ExportService) SaveMappingSet(scope string, supplierID *int, set mapping.MappingSet) error {
	entries := make([]mapping.FieldMapping, 0, len(set))
	for _, meta := range mapping.BrickfoxSchema() {
		if fm, ok := set[meta.Key]; ok {
			entries = append(entries, fm)
		}
	}
	blob, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.db.SaveMappingConfig(scope, supplierID, string(blob))
}

func exportFilename(supplier, ext string) string {
	return fmt.Sprintf("%s-%s.%s", sanitizeFilename(supplier), time.Now().UTC().Format("20060102-150405"), ext)
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
