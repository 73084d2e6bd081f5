package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ne0fr0stbb/IT-Assistant/pkg/types"
)

const xlsxSheet = "Devices"

// WriteXLSX saves the device list as an Excel workbook.
func WriteXLSX(path string, recs []types.DeviceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	for col, name := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cell, name); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, rec := range recs {
		values := []any{
			rec.Host.String(),
			rec.MAC,
			rec.Hostname,
			rec.Manufacturer,
			float64(rec.ResponseTime) / float64(time.Millisecond),
			rec.WebService,
			rec.Reachable,
			formatTime(rec.SeenAt),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("cell for row %d: %w", i+2, err)
			}
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %q: %w", path, err)
	}
	return nil
}
