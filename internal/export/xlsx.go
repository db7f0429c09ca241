package export

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"foxfeed/internal/mapping"
)

// WriteXLSX writes mapped rows to a spreadsheet for manual review before
// the delimited import file goes out.
func WriteXLSX(path string, rows []mapping.OutputRow, schema []mapping.TargetFieldMeta) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	for i, meta := range schema {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, meta.Key)
	}

	for i, row := range rows {
		r := i + 2
		for c, meta := range schema {
			value := row[meta.Key]
			if value == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}
