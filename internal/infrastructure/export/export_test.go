package export_test

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"cip-service/internal/cip"
	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/export"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func deviations(t *testing.T) *domain.Table {
	t.Helper()
	dates := []time.Time{
		time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	tbl, err := domain.NewTable(dates)
	require.NoError(t, err)
	for i, c := range domain.Currencies {
		v := float64(i)
		require.NoError(t, tbl.Set(c.DeviationColumn(), []float64{v, v + 1, math.NaN()}))
	}
	return tbl
}

func TestWriteTableCSV(t *testing.T) {
	tbl, err := domain.NewTable([]time.Time{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, tbl.Set("CIP_AUD_ln", []float64{-12.5}))
	require.NoError(t, tbl.Set("CIP_CAD_ln", []float64{math.NaN()}))

	var buf bytes.Buffer
	require.NoError(t, export.WriteTableCSV(&buf, tbl))
	require.Equal(t, "Date,CIP_AUD_ln,CIP_CAD_ln\n2024-01-02,-12.5,\n", buf.String())
}

func TestWriteStatisticsWorkbook(t *testing.T) {
	st, err := cip.Aggregate(deviations(t))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out", "cip_statistics.xlsx")
	require.NoError(t, export.WriteStatisticsWorkbook(path, st))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, []string{export.SheetOverall, export.SheetCorrelation, export.SheetAnnual}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetOverall)
	require.NoError(t, err)
	require.Equal(t, []string{"", "AUD", "CAD", "CHF", "EUR", "GBP", "JPY", "NZD", "SEK"}, rows[0])
	require.Equal(t, "count", rows[1][0])
	require.Equal(t, "2", rows[1][1])

	annual, err := f.GetRows(export.SheetAnnual)
	require.NoError(t, err)
	require.Len(t, annual, 1+2*len(domain.Currencies))
	require.Equal(t, []string{"AUD", "2023", "1", "0"}, annual[1][:4])
}
