package enrich

import (
	"context"
	"strings"

	"foxfeed/internal"
)

// RuleGenerator derives attributes from the record itself. It stands in
// wherever no model endpoint is configured and keeps runs deterministic.
type RuleGenerator struct{}

func NewRuleGenerator() *RuleGenerator { return &RuleGenerator{} }

var lithiumMarkers = []string{"li-ion", "lithium", "lipo", "li-po", "lifepo"}

func (g *RuleGenerator) Generate(_ context.Context, rec internal.ExtractedRecord) ([]internal.CustomAttribute, error) {
	haystack := strings.ToLower(rec.ProductName)
	if rec.Description != nil {
		haystack += " " + strings.ToLower(*rec.Description)
	}
	if chem, ok := rec.TechnicalSpecs["chemistry"]; ok {
		haystack += " " + strings.ToLower(chem)
	}

	lithium := false
	for _, marker := range lithiumMarkers {
		if strings.Contains(haystack, marker) {
			lithium = true
			break
		}
	}

	out := []internal.CustomAttribute{}
	if lithium {
		// lithium cells ship as dangerous goods
		out = append(out,
			internal.CustomAttribute{Key: "gefahrgut", Value: "ja", Type: "boolean"},
			internal.CustomAttribute{Key: "zolltarifnummer", Value: "85076000", Type: "string"},
			internal.CustomAttribute{Key: "zolltarif_text", Value: "Lithium-Ionen-Akkumulatoren", Type: "string"},
		)
		return out, nil
	}

	out = append(out, internal.CustomAttribute{Key: "gefahrgut", Value: "nein", Type: "boolean"})
	if strings.Contains(haystack, "akku") || strings.Contains(haystack, "batterie") {
		out = append(out,
			internal.CustomAttribute{Key: "zolltarifnummer", Value: "85068080", Type: "string"},
			internal.CustomAttribute{Key: "zolltarif_text", Value: "Andere Primärelemente und Primärbatterien", Type: "string"},
		)
	}
	return out, nil
}
