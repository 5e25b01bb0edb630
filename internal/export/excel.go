package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"billview/internal/core"
)

// SheetName is the single worksheet of an exported workbook.
const SheetName = "Report"

// WriteExcel builds a workbook with one header row of column labels and one
// row per record. Serial numbers start at firstSerial so a page keeps the
// numbering shown in the table.
func WriteExcel(rows []core.Record, cols []Column, firstSerial int) ([]byte, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("export: no columns selected")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "1F1F1F"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "808080", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, c := range cols {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, name, name, c.Width); err != nil {
			return nil, fmt.Errorf("column width %s: %w", c.Key, err)
		}
		cell := name + "1"
		if err := f.SetCellValue(SheetName, cell, c.Header); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(SheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	for i, r := range rows {
		values := make([]any, len(cols))
		for j, c := range cols {
			values[j] = c.Value(firstSerial+i, r)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
