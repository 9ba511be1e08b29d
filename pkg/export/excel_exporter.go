package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet in a workbook export.
type Sheet struct {
	Name string
	Data Dataset
}

// ChartSpec describes an optional bar chart drawn on the first sheet.
// Categories and Values reference cell ranges on that sheet.
type ChartSpec struct {
	Title      string
	Cell       string
	Categories string
	Values     string
}

// ExcelExporter renders multi-sheet XLSX workbooks.
type ExcelExporter struct{}

// NewExcelExporter constructs an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Render writes one worksheet per Sheet in order. The first sheet may carry
// a bar chart when chart is non-nil.
func (e *ExcelExporter) Render(sheets []Sheet, chart *ChartSpec) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook requires at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", name, err)
			}
		}
		if err := writeSheet(f, name, sheet.Data); err != nil {
			return nil, err
		}
	}

	if chart != nil {
		first := sheets[0].Name
		if err := f.AddChart(first, chart.Cell, &excelize.Chart{
			Type: excelize.Bar,
			Series: []excelize.ChartSeries{{
				Name:       chart.Title,
				Categories: chart.Categories,
				Values:     chart.Values,
			}},
			Title: []excelize.RichTextRun{{Text: chart.Title}},
		}); err != nil {
			return nil, fmt.Errorf("add chart: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, data Dataset) error {
	header := make([]interface{}, len(data.Headers))
	for i, h := range data.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header on %s: %w", name, err)
	}
	for rowIdx, row := range data.Rows {
		record := make([]interface{}, len(data.Headers))
		for i, h := range data.Headers {
			record[i] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return fmt.Errorf("resolve cell on %s: %w", name, err)
		}
		if err := f.SetSheetRow(name, cell, &record); err != nil {
			return fmt.Errorf("write row on %s: %w", name, err)
		}
	}
	return nil
}
