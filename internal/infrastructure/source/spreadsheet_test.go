package source_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"cip-service/internal/domain"
	"cip-service/internal/infrastructure/source"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var codes = []string{"AUD", "CAD", "CHF", "EUR", "GBP", "JPY", "NZD", "SEK"}

type book struct {
	spotHeaders []string
	oisHeaders  []string
	spotDates   []any
	fwdDates    []any
	oisDates    []any
	skipOIS     bool
}

func defaultBook() book {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	return book{
		spotHeaders: codes,
		oisHeaders:  append([]string{"USD"}, codes...),
		spotDates:   []any{d(2), d(3), d(4)},
		fwdDates:    []any{"2024-01-03", "2024-01-04", "2024-01-05"},
		oisDates:    []any{d(2), d(3), d(4), d(5)},
	}
}

func spotValue(code string) float64 {
	switch code {
	case "JPY":
		return 150
	case "AUD":
		return 0.5
	}
	return 2
}

func writeBook(t *testing.T, b book) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", source.SheetSpot))
	_, err := f.NewSheet(source.SheetForward)
	require.NoError(t, err)

	fill := func(sheet string, headers []string, dates []any, value func(h string) float64) {
		require.NoError(t, f.SetCellValue(sheet, "A1", "Date"))
		for j, h := range headers {
			ref, err := excelize.CoordinatesToCellName(j+2, 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, h))
		}
		for i, d := range dates {
			ref, err := excelize.CoordinatesToCellName(1, i+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, d))
			for j, h := range headers {
				ref, err := excelize.CoordinatesToCellName(j+2, i+2)
				require.NoError(t, err)
				require.NoError(t, f.SetCellValue(sheet, ref, value(h)))
			}
		}
	}
	fill(source.SheetSpot, b.spotHeaders, b.spotDates, func(h string) float64 { return spotValue(h[:3]) })
	fill(source.SheetForward, codes, b.fwdDates, func(string) float64 { return 100 })
	if !b.skipOIS {
		_, err := f.NewSheet(source.SheetOIS)
		require.NoError(t, err)
		fill(source.SheetOIS, b.oisHeaders, b.oisDates, func(h string) float64 {
			if h == "USD" {
				return 5
			}
			return 3
		})
	}
	path := filepath.Join(t.TempDir(), "CIP.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSpreadsheet_Fetch(t *testing.T) {
	src := &source.Spreadsheet{Path: writeBook(t, defaultBook())}
	q, err := src.Fetch(context.Background(), domain.DateRange{})
	require.NoError(t, err)

	require.Equal(t, domain.QuoteColumns(), q.Columns())
	require.Len(t, q.Columns(), 25)
	require.Equal(t, 2, q.Len())
	require.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), q.Date(0))

	audSpot, _ := q.Column("AUD_CURNCY")
	audFwd, _ := q.Column("AUD_CURNCY3M")
	require.InDelta(t, 2.0, audSpot[0], 1e-12)
	require.InDelta(t, 1/0.51, audFwd[0], 1e-12)

	jpyFwd, _ := q.Column("JPY_CURNCY3M")
	require.InDelta(t, 151.0, jpyFwd[1], 1e-9)
	cadFwd, _ := q.Column("CAD_CURNCY3M")
	require.InDelta(t, 2.01, cadFwd[1], 1e-12)

	usd, _ := q.Column(domain.USDRateColumn)
	require.Equal(t, []float64{5, 5}, usd)
}

func TestSpreadsheet_ClipsRange(t *testing.T) {
	src := &source.Spreadsheet{Path: writeBook(t, defaultBook())}
	r, err := domain.ParseDateRange("", "2024-01-03")
	require.NoError(t, err)
	q, err := src.Fetch(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, 1, q.Len())
}

func TestSpreadsheet_HeaderPrefixAccepted(t *testing.T) {
	b := defaultBook()
	b.spotHeaders = make([]string, len(codes))
	for i, c := range codes {
		b.spotHeaders[i] = c + " Curncy"
	}
	q, err := (&source.Spreadsheet{Path: writeBook(t, b)}).Fetch(context.Background(), domain.DateRange{})
	require.NoError(t, err)
	require.Equal(t, 2, q.Len())
}

func TestSpreadsheet_HeaderMismatch(t *testing.T) {
	b := defaultBook()
	b.spotHeaders = append([]string{"CAD", "AUD"}, codes[2:]...)
	_, err := (&source.Spreadsheet{Path: writeBook(t, b)}).Fetch(context.Background(), domain.DateRange{})
	require.ErrorIs(t, err, domain.ErrHeaderMismatch)
	require.ErrorContains(t, err, "Spot")
}

func TestSpreadsheet_MissingSheet(t *testing.T) {
	b := defaultBook()
	b.skipOIS = true
	_, err := (&source.Spreadsheet{Path: writeBook(t, b)}).Fetch(context.Background(), domain.DateRange{})
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	require.ErrorContains(t, err, "sheet OIS")
}

func TestSpreadsheet_MissingRateColumn(t *testing.T) {
	b := defaultBook()
	b.oisHeaders = codes
	_, err := (&source.Spreadsheet{Path: writeBook(t, b)}).Fetch(context.Background(), domain.DateRange{})
	require.ErrorIs(t, err, domain.ErrMissingColumns)
	require.ErrorContains(t, err, domain.USDRateColumn)
}

func TestSpreadsheet_MissingFile(t *testing.T) {
	_, err := (&source.Spreadsheet{Path: filepath.Join(t.TempDir(), "nope.xlsx")}).Fetch(context.Background(), domain.DateRange{})
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestSpreadsheet_EmptyCellsAreMissing(t *testing.T) {
	path := writeBook(t, defaultBook())
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue(source.SheetSpot, "C3", ""))
	require.NoError(t, f.Save())
	require.NoError(t, f.Close())

	q, err := (&source.Spreadsheet{Path: path}).Fetch(context.Background(), domain.DateRange{})
	require.NoError(t, err)
	cad, _ := q.Column("CAD_CURNCY")
	require.True(t, math.IsNaN(cad[0]))
	require.InDelta(t, 2.0, cad[1], 1e-12)
}
