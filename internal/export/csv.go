// Package export renders mapped output rows into the delimited files the
// shop import consumes.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"foxfeed/internal/mapping"
)

// WriteDelimited writes one header line plus one line per row, columns in
// schema order. Unresolved fields stay empty. The csv writer quotes any
// cell containing the delimiter itself.
func WriteDelimited(w io.Writer, rows []mapping.OutputRow, schema []mapping.TargetFieldMeta, delimiter rune) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}

	header := make([]string, len(schema))
	for i, meta := range schema {
		header[i] = meta.Key
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	line := make([]string, len(schema))
	for _, row := range rows {
		for i, meta := range schema {
			line[i] = cellString(row[meta.Key])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDelimitedFile is WriteDelimited against a fresh file, creating
// parent directories as needed.
func WriteDelimitedFile(path string, rows []mapping.OutputRow, schema []mapping.TargetFieldMeta, delimiter rune) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteDelimited(f, rows, schema, delimiter); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
