package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"macropulse/internal/pipeline"
)

// SheetName is the worksheet holding the exported table.
const SheetName = "Data"

// WriteXLSX streams the table to w as an Excel workbook with one worksheet.
// Dates land as ISO strings and values as numbers; null cells stay empty, the
// same contract as the CSV export.
func WriteXLSX(w io.Writer, t *pipeline.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create worksheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default worksheet: %w", err)
	}

	for ci, name := range header(t) {
		cell, err := excelize.CoordinatesToCellName(ci+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, name); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for ri := range t.Dates {
		cell, err := excelize.CoordinatesToCellName(1, ri+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, t.Dates[ri].Format(pipeline.DateLayout)); err != nil {
			return fmt.Errorf("failed to write date cell: %w", err)
		}
		for ci, col := range t.Columns {
			v := col.Values[ri]
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(ci+2, ri+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, *v); err != nil {
				return fmt.Errorf("failed to write value cell: %w", err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
