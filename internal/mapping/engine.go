package mapping

import (
	"fmt"
	"strconv"
	"strings"

	"foxfeed/internal"
	"foxfeed/internal/util"
)

// FormulaSalesPrice derives the sales price from the purchase price:
// markup plus VAT, rounded to two decimals.
const FormulaSalesPrice = "sales_price"

// aiAttributeKeys is the typed lookup table from target field to
// side-channel custom-attribute key, so a renamed enrichment key fails
// loudly in one place instead of silently mismatching.
var aiAttributeKeys = map[string]string{
	"p_customs_tariff_number": "zolltarifnummer",
	"p_customs_tariff_text":   "zolltarif_text",
	"p_description":           "optimierte_beschreibung",
	"p_hazmat":                "gefahrgut",
}

// OutputRow is one flat export row, keyed by target field.
type OutputRow map[string]any

// SourceRecord is the mapping engine's input: the flattened extracted
// data plus the enrichment side channel.
type SourceRecord struct {
	Fields     map[string]any
	Attributes []internal.CustomAttribute
}

// Engine maps extracted records onto the Brickfox schema. It is a pure
// function of its inputs and safe for concurrent use.
type Engine struct {
	schema []TargetFieldMeta
	markup float64
	vat    float64
}

func NewEngine(markup, vat float64) *Engine {
	if markup <= 0 {
		markup = 2.0
	}
	if vat <= 0 {
		vat = 0.19
	}
	return &Engine{schema: BrickfoxSchema(), markup: markup, vat: vat}
}

func (e *Engine) Schema() []TargetFieldMeta { return e.schema }

// MapRecord produces one output row. A field that cannot be resolved
// becomes nil; row emission never aborts because of one field.
func (e *Engine) MapRecord(rec SourceRecord, layered Layered, supplier string) OutputRow {
	row := make(OutputRow, len(e.schema))
	for _, meta := range e.schema {
		row[meta.Key] = e.resolve(meta, rec, layered, supplier, 0)
	}
	return row
}

func (e *Engine) MapRecords(recs []SourceRecord, layered Layered, supplier string) []OutputRow {
	out := make([]OutputRow, 0, len(recs))
	for _, rec := range recs {
		out = append(out, e.MapRecord(rec, layered, supplier))
	}
	return out
}

func (e *Engine) resolve(meta TargetFieldMeta, rec SourceRecord, layered Layered, supplier string, depth int) any {
	if meta.Key == SupplierFieldKey {
		return supplier
	}
	if depth > 3 {
		return nil
	}

	fm, ok := layered.FieldFor(meta.Key)
	if !ok {
		return meta.DefaultValue
	}

	switch fm.Source {
	case SourceConstant:
		if fm.ConstantValue != nil {
			return e.coerce(meta, fm.ConstantValue)
		}
		return meta.DefaultValue
	case SourceScraped:
		value := lookupField(rec.Fields, fm.SourceFieldName)
		if value == nil {
			value = probeExtractedData(rec.Fields, fm.SourceFieldName)
		}
		if value == nil {
			return nil
		}
		return e.coerce(meta, value)
	case SourceCalculated:
		return e.calculate(meta, fm, rec, layered, supplier, depth)
	case SourceAI:
		key := aiAttributeKeys[meta.Key]
		if fm.SourceFieldName != "" {
			key = fm.SourceFieldName
		}
		if key == "" {
			return nil
		}
		for _, attr := range rec.Attributes {
			if attr.Key == key {
				return e.coerce(meta, attr.Value)
			}
		}
		return nil
	}
	return nil
}

func (e *Engine) calculate(meta TargetFieldMeta, fm FieldMapping, rec SourceRecord, layered Layered, supplier string, depth int) any {
	switch fm.Formula {
	case FormulaSalesPrice, "":
		// the purchase price goes through the engine too, so supplier
		// overrides on it feed the formula
		purchaseMeta, ok := e.metaFor(PurchasePriceFieldKey)
		if !ok {
			return nil
		}
		purchase := toFloat(e.resolve(purchaseMeta, rec, layered, supplier, depth+1))
		if purchase == nil {
			return nil
		}
		return util.Round2(*purchase * e.markup * (1 + e.vat))
	default:
		return nil
	}
}

func (e *Engine) metaFor(key string) (TargetFieldMeta, bool) {
	for _, meta := range e.schema {
		if meta.Key == key {
			return meta, true
		}
	}
	return TargetFieldMeta{}, false
}

func (e *Engine) coerce(meta TargetFieldMeta, value any) any {
	switch meta.Type {
	case TypeString:
		switch v := value.(type) {
		case string:
			return v
		case nil:
			return nil
		default:
			return fmt.Sprintf("%v", v)
		}
	case TypeNumber:
		return coerceNumber(value)
	case TypePrice:
		return coercePrice(value)
	case TypeBoolean:
		return coerceBool(value)
	}
	return value
}

func coerceNumber(value any) any {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if looksLikeWeight(v) {
			if g := util.ParseWeightGrams(v); g != nil {
				return *g
			}
			return nil
		}
		if n := util.ParseLocaleNumber(v); n != nil {
			return *n
		}
		return nil
	}
	return nil
}

func coercePrice(value any) any {
	switch v := value.(type) {
	case float64:
		return util.Round2(v)
	case int:
		return util.Round2(float64(v))
	case string:
		if p := util.ParsePrice(v); p != nil {
			return *p
		}
		return nil
	}
	return nil
}

func coerceBool(value any) any {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "ja", "yes":
			return true
		case "false", "0", "nein", "no":
			return false
		}
		return nil
	}
	return nil
}

var weightUnitSuffix = []string{" kg", "kg", " g", "g"}

func looksLikeWeight(v string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(v))
	for _, suffix := range weightUnitSuffix {
		if strings.HasSuffix(trimmed, suffix) && trimmed != suffix {
			return true
		}
	}
	return false
}

// lookupField resolves dotted paths with optional [0] array steps, the
// same address form the field catalog reports.
func lookupField(fields map[string]any, name string) any {
	if name == "" || fields == nil {
		return nil
	}
	var current any = fields
	for _, part := range strings.Split(name, ".") {
		indexed := strings.HasSuffix(part, "[0]")
		key := strings.TrimSuffix(part, "[0]")

		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
		if indexed {
			arr, ok := current.([]any)
			if !ok || len(arr) == 0 {
				return nil
			}
			current = arr[0]
		}
	}
	return current
}

func toFloat(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return util.FloatPtr(v)
	case int:
		return util.FloatPtr(float64(v))
	case int64:
		return util.FloatPtr(float64(v))
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return util.FloatPtr(f)
		}
		if p := util.ParsePrice(v); p != nil {
			return p
		}
		return nil
	}
	return nil
}

// probeExtractedData is the fallback for records whose payload nests the
// scraped values one level down.
func probeExtractedData(fields map[string]any, name string) any {
	arr, ok := fields["extractedData"].([]any)
	if !ok || len(arr) == 0 {
		return nil
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return nil
	}
	return lookupField(first, name)
}
