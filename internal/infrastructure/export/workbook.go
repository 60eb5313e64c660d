package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SheetOverall     = "Overall"
	SheetCorrelation = "Correlation"
	SheetAnnual      = "Annual"
)

var overallRows = []struct {
	label string
	get   func(cip.Summary) float64
}{
	{"count", func(s cip.Summary) float64 { return float64(s.Count) }},
	{"mean", func(s cip.Summary) float64 { return s.Mean.Float() }},
	{"std", func(s cip.Summary) float64 { return s.Std.Float() }},
	{"min", func(s cip.Summary) float64 { return s.Min.Float() }},
	{"25%", func(s cip.Summary) float64 { return s.P25.Float() }},
	{"50%", func(s cip.Summary) float64 { return s.Median.Float() }},
	{"75%", func(s cip.Summary) float64 { return s.P75.Float() }},
	{"max", func(s cip.Summary) float64 { return s.Max.Float() }},
	{"range", func(s cip.Summary) float64 { return s.Range.Float() }},
	{"iqr", func(s cip.Summary) float64 { return s.IQR.Float() }},
	{"skewness", func(s cip.Summary) float64 { return s.Skewness.Float() }},
	{"kurtosis", func(s cip.Summary) float64 { return s.Kurtosis.Float() }},
}

// WriteStatisticsWorkbook saves st as a workbook with Overall, Correlation and Annual
// sheets. Columns are labelled by currency code.
func WriteStatisticsWorkbook(path string, st *cip.Statistics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOverall); err != nil {
		return err
	}
	labels := make([]any, len(st.Columns))
	for i, col := range st.Columns {
		labels[i] = shortLabel(col)
	}

	if err := setRow(f, SheetOverall, 1, append([]any{""}, labels...)); err != nil {
		return err
	}
	for r, row := range overallRows {
		vals := []any{row.label}
		for _, col := range st.Columns {
			vals = append(vals, cellValue(row.get(st.Overall[col])))
		}
		if err := setRow(f, SheetOverall, r+2, vals); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetCorrelation); err != nil {
		return err
	}
	if err := setRow(f, SheetCorrelation, 1, append([]any{""}, labels...)); err != nil {
		return err
	}
	for i, row := range st.Correlation {
		vals := []any{labels[i]}
		for _, v := range row {
			vals = append(vals, cellValue(v.Float()))
		}
		if err := setRow(f, SheetCorrelation, i+2, vals); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetAnnual); err != nil {
		return err
	}
	if err := setRow(f, SheetAnnual, 1, []any{"Currency", "Year", "Count", "Mean", "Std", "Min", "Max"}); err != nil {
		return err
	}
	r := 2
	for i, col := range st.Columns {
		for _, y := range st.Annual[col] {
			vals := []any{labels[i], y.Year, y.Count, cellValue(y.Mean.Float()), cellValue(y.Std.Float()), cellValue(y.Min.Float()), cellValue(y.Max.Float())}
			if err := setRow(f, SheetAnnual, r, vals); err != nil {
				return err
			}
			r++
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &vals)
}

// cellValue leaves missing statistics as empty cells.
func cellValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func shortLabel(col string) string {
	if c, ok := domain.CurrencyOfDeviation(col); ok {
		return string(c)
	}
	return col
}
