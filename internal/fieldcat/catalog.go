// Package fieldcat enumerates the addressable field paths of previously
// extracted records, so mapping configuration UIs can offer real,
// observed source fields instead of free-text guesses.
package fieldcat

import (
	"fmt"
	"sort"
)

// FieldInfo describes one discoverable field path across a record set.
type FieldInfo struct {
	Path      string  `json:"path"`
	Type      string  `json:"type"`
	Sample    string  `json:"sample"`
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`
}

// Discover walks every record recursively and returns the ranked list of
// field paths. Arrays are addressed through their first element
// (`extractedData[0].price`), matching how the mapping engine probes.
func Discover(records []map[string]any) []FieldInfo {
	type agg struct {
		typ    string
		sample string
		count  int
	}
	byPath := map[string]*agg{}

	var walk func(path string, value any, seen map[string]struct{})
	walk = func(path string, value any, seen map[string]struct{}) {
		switch v := value.(type) {
		case map[string]any:
			for key, child := range v {
				childPath := key
				if path != "" {
					childPath = path + "." + key
				}
				walk(childPath, child, seen)
			}
		case []any:
			if len(v) > 0 {
				walk(path+"[0]", v[0], seen)
			}
		default:
			if path == "" || value == nil {
				return
			}
			if _, ok := seen[path]; ok {
				return
			}
			seen[path] = struct{}{}
			entry := byPath[path]
			if entry == nil {
				entry = &agg{typ: typeName(value), sample: sampleString(value)}
				byPath[path] = entry
			}
			entry.count++
		}
	}

	for _, record := range records {
		// one occurrence per record, however often the path repeats inside
		seen := map[string]struct{}{}
		walk("", record, seen)
	}

	total := len(records)
	out := make([]FieldInfo, 0, len(byPath))
	for path, entry := range byPath {
		freq := 0.0
		if total > 0 {
			freq = float64(entry.count) / float64(total)
		}
		out = append(out, FieldInfo{
			Path:      path,
			Type:      entry.typ,
			Sample:    entry.sample,
			Count:     entry.count,
			Frequency: freq,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	default:
		return "unknown"
	}
}

func sampleString(value any) string {
	s := fmt.Sprintf("%v", value)
	if len([]rune(s)) > 80 {
		s = string([]rune(s)[:80])
	}
	return s
}
