package mapping

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type MappingSource string

const (
	SourceScraped    MappingSource = "scraped"
	SourceConstant   MappingSource = "constant"
	SourceCalculated MappingSource = "calculated"
	SourceAI         MappingSource = "ai"
)

// FieldMapping decides how one target field is populated.
type FieldMapping struct {
	TargetField     string        `yaml:"targetField" json:"targetField"`
	Source          MappingSource `yaml:"source" json:"source"`
	SourceFieldName string        `yaml:"sourceFieldName,omitempty" json:"sourceFieldName,omitempty"`
	ConstantValue   any           `yaml:"constantValue,omitempty" json:"constantValue,omitempty"`
	Formula         string        `yaml:"formula,omitempty" json:"formula,omitempty"`
}

// MappingSet holds one mapping entry per target field key.
type MappingSet map[string]FieldMapping

// Layered is the auditable override chain: supplier-specific set first,
// then the tenant-wide default set, then the built-in defaults. First
// layer carrying an entry for a field wins.
type Layered struct {
	layers []MappingSet
}

func NewLayered(supplier, tenant MappingSet) Layered {
	layers := make([]MappingSet, 0, 3)
	if supplier != nil {
		layers = append(layers, supplier)
	}
	if tenant != nil {
		layers = append(layers, tenant)
	}
	layers = append(layers, DefaultMappingSet())
	return Layered{layers: layers}
}

func (l Layered) FieldFor(key string) (FieldMapping, bool) {
	for _, layer := range l.layers {
		if fm, ok := layer[key]; ok {
			return fm, true
		}
	}
	return FieldMapping{}, false
}

// DefaultMappingSet covers every target field, so an export works before
// any supplier- or tenant-level configuration exists.
func DefaultMappingSet() MappingSet {
	entries := []FieldMapping{
		{TargetField: "p_model", Source: SourceScraped, SourceFieldName: "articleNumber"},
		{TargetField: "p_name", Source: SourceScraped, SourceFieldName: "productName"},
		{TargetField: "p_description", Source: SourceScraped, SourceFieldName: "description"},
		{TargetField: "p_manufacturer", Source: SourceScraped, SourceFieldName: "marke"},
		{TargetField: "p_weight", Source: SourceScraped, SourceFieldName: "technicalSpecs.weight"},
		{TargetField: "p_customs_tariff_number", Source: SourceAI},
		{TargetField: "p_customs_tariff_text", Source: SourceAI},
		{TargetField: "p_hazmat", Source: SourceAI},
		{TargetField: "p_tax", Source: SourceConstant, ConstantValue: 19},
		{TargetField: "p_status", Source: SourceConstant, ConstantValue: true},
		{TargetField: "v_model", Source: SourceScraped, SourceFieldName: "articleNumber"},
		{TargetField: "v_ean", Source: SourceScraped, SourceFieldName: "eanCode"},
		{TargetField: SupplierFieldKey, Source: SourceConstant},
		{TargetField: "v_supplier_model", Source: SourceScraped, SourceFieldName: "manufacturerArticleNumber"},
		{TargetField: PurchasePriceFieldKey, Source: SourceScraped, SourceFieldName: "ekPrice"},
		{TargetField: "v_price", Source: SourceCalculated, Formula: FormulaSalesPrice},
		{TargetField: "v_packaging_unit", Source: SourceScraped, SourceFieldName: "ve"},
		{TargetField: "v_delivery_quantity", Source: SourceScraped, SourceFieldName: "liefermenge"},
		{TargetField: "v_delivery_time", Source: SourceConstant, ConstantValue: "3-5 Tage"},
		{TargetField: "v_stock", Source: SourceConstant, ConstantValue: 0},
		{TargetField: "v_source_url", Source: SourceScraped, SourceFieldName: "url"},
	}

	out := make(MappingSet, len(entries))
	for _, e := range entries {
		out[e.TargetField] = e
	}
	return out
}

// LoadMappingFile reads a YAML list of field mappings.
func LoadMappingFile(path string) (MappingSet, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []FieldMapping
	if err := yaml.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}
	out := make(MappingSet, len(entries))
	for _, e := range entries {
		if e.TargetField == "" {
			return nil, fmt.Errorf("mapping file %s: entry without targetField", path)
		}
		out[e.TargetField] = e
	}
	return out, nil
}

// SaveMappingFile writes a mapping set in schema column order so diffs
// stay stable.
func SaveMappingFile(path string, set MappingSet) error {
	entries := make([]FieldMapping, 0, len(set))
	for _, meta := range BrickfoxSchema() {
		if fm, ok := set[meta.Key]; ok {
			entries = append(entries, fm)
		}
	}
	blob, err := yaml.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}
