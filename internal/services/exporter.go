package services

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oplens/stockcast/internal/models"
)

// xlsxDateFormat matches the report's compact date rendering.
const xlsxDateFormat = "yy/mm/dd"

// BuildDemandWorkbook renders a demand series into a two-column xlsx
// workbook, newest bucket first. Forecast rows are set in blue so they are
// visually distinct from history. The caller owns the returned file.
func BuildDemandWorkbook(series models.DemandSeries, targetName string) (*excelize.File, string, error) {
	filename := fmt.Sprintf("%s#%s.xlsx", targetName, time.Now().UTC().Format("2006-01-02"))

	f := excelize.NewFile()
	sheet := sheetName(filename)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to name worksheet: %w", err)
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	dateFmt := xlsxDateFormat

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Border: border,
	})
	if err != nil {
		return nil, "", err
	}
	dataStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 11},
		Border: border,
	})
	if err != nil {
		return nil, "", err
	}
	forecastStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 11, Color: "0000FF"},
		Border: border,
	})
	if err != nil {
		return nil, "", err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 11},
		Border:       border,
		CustomNumFmt: &dateFmt,
	})
	if err != nil {
		return nil, "", err
	}
	forecastDateStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 11, Color: "0000FF"},
		Border:       border,
		CustomNumFmt: &dateFmt,
	})
	if err != nil {
		return nil, "", err
	}

	if err := f.SetColWidth(sheet, "A", "B", 20); err != nil {
		return nil, "", err
	}
	if err := f.SetCellValue(sheet, "A1", "Date"); err != nil {
		return nil, "", err
	}
	if err := f.SetCellValue(sheet, "B1", "Demand"); err != nil {
		return nil, "", err
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return nil, "", err
	}

	// The export view wants the newest bucket first; the canonical series
	// is ascending.
	row := 2
	for i := len(series.Records) - 1; i >= 0; i-- {
		record := series.Records[i]
		dateCell := fmt.Sprintf("A%d", row)
		qtyCell := fmt.Sprintf("B%d", row)

		if err := f.SetCellValue(sheet, dateCell, record.Date); err != nil {
			return nil, "", err
		}
		if err := f.SetCellValue(sheet, qtyCell, record.Quantity); err != nil {
			return nil, "", err
		}

		ds, qs := dateStyle, dataStyle
		if record.IsForecast {
			ds, qs = forecastDateStyle, forecastStyle
		}
		if err := f.SetCellStyle(sheet, dateCell, dateCell, ds); err != nil {
			return nil, "", err
		}
		if err := f.SetCellStyle(sheet, qtyCell, qtyCell, qs); err != nil {
			return nil, "", err
		}
		row++
	}

	return f, filename, nil
}

// sheetName trims a workbook title to the 31 characters a worksheet name
// may carry.
func sheetName(name string) string {
	runes := []rune(name)
	if len(runes) > 31 {
		return string(runes[:31])
	}
	return name
}
