package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	SheetSpot    = "Spot"
	SheetForward = "Forward"
	SheetOIS     = "OIS"
	dateHeader   = "Date"
)

var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/06",
}

// Spreadsheet reads quotes from a workbook with Spot, Forward (points) and OIS sheets.
type Spreadsheet struct {
	Path string
	Log  *zap.Logger
}

var _ application.QuoteSource = (*Spreadsheet)(nil)

func (s *Spreadsheet) Fetch(ctx context.Context, r domain.DateRange) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, &domain.DataUnavailableError{Source: "spreadsheet", Entity: "workbook " + s.Path, Err: err}
	}
	defer f.Close()
	return ReadWorkbook(f, r, s.Log)
}

// ReadReader parses a workbook held in memory.
func ReadReader(rd io.Reader, r domain.DateRange, log *zap.Logger) (*domain.Table, error) {
	f, err := excelize.OpenReader(rd)
	if err != nil {
		return nil, &domain.DataUnavailableError{Source: "spreadsheet", Entity: "workbook", Err: err}
	}
	defer f.Close()
	return ReadWorkbook(f, r, log)
}

// ReadWorkbook builds the normalized QuoteTable from an open workbook. The three
// sheets are inner-joined on date and clipped to r.
func ReadWorkbook(f *excelize.File, r domain.DateRange, log *zap.Logger) (*domain.Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	spot, err := readSheet(f, SheetSpot)
	if err != nil {
		return nil, err
	}
	if err := labelFixed(spot, SheetSpot, domain.Currency.SpotColumn); err != nil {
		return nil, err
	}
	fwd, err := readSheet(f, SheetForward)
	if err != nil {
		return nil, err
	}
	if err := labelFixed(fwd, SheetForward, domain.Currency.ForwardColumn); err != nil {
		return nil, err
	}
	ois, err := readSheet(f, SheetOIS)
	if err != nil {
		return nil, err
	}
	labelRates(ois, log)

	merged, err := domain.InnerJoin(spot.table, fwd.table, ois.table)
	if err != nil {
		return nil, err
	}
	if err := merged.RequireColumns("spreadsheet", domain.QuoteColumns()...); err != nil {
		return nil, err
	}
	norm, err := cip.NormalizeTable(merged, false)
	if err != nil {
		return nil, err
	}
	out, err := norm.Clip(r).Select(domain.QuoteColumns()...)
	if err != nil {
		return nil, err
	}
	log.Info("spreadsheet.loaded",
		zap.Int("spot_rows", spot.table.Len()),
		zap.Int("forward_rows", fwd.table.Len()),
		zap.Int("ois_rows", ois.table.Len()),
		zap.Int("rows", out.Len()),
	)
	return out, nil
}

type sheet struct {
	name    string
	headers []string
	table   *domain.Table
}

type sheetRow struct {
	date time.Time
	vals []float64
}

func readSheet(f *excelize.File, name string) (*sheet, error) {
	unavailable := func(err error) error {
		return &domain.DataUnavailableError{Source: "spreadsheet", Entity: "sheet " + name, Err: err}
	}
	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, unavailable(err)
	}
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, unavailable(err)
	}
	if len(rows) < 2 {
		return nil, unavailable(fmt.Errorf("no data rows"))
	}

	dateCol := -1
	var headers []string
	var cols []int
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		switch {
		case strings.EqualFold(h, dateHeader):
			dateCol = i
		case h != "":
			headers = append(headers, h)
			cols = append(cols, i)
		}
	}
	if dateCol < 0 {
		return nil, &domain.MissingColumnsError{Stage: "spreadsheet " + name, Columns: []string{dateHeader}}
	}

	var parsed []sheetRow
	for n, row := range rows[1:] {
		raw := cell(row, dateCol)
		if raw == "" {
			continue
		}
		d, err := parseDate(raw)
		if err != nil {
			return nil, unavailable(fmt.Errorf("row %d: %w", n+2, err))
		}
		vals := make([]float64, len(cols))
		for j, c := range cols {
			vals[j] = parseValue(cell(row, c))
		}
		parsed = append(parsed, sheetRow{date: d, vals: vals})
	}
	if len(parsed) == 0 {
		return nil, unavailable(fmt.Errorf("no dated rows"))
	}

	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].date.Before(parsed[j].date) })
	dates := make([]time.Time, 0, len(parsed))
	keep := parsed[:0]
	for _, p := range parsed {
		if len(dates) > 0 && p.date.Equal(dates[len(dates)-1]) {
			continue
		}
		dates = append(dates, p.date)
		keep = append(keep, p)
	}
	tbl, err := domain.NewTable(dates)
	if err != nil {
		return nil, err
	}
	for j, h := range headers {
		vals := make([]float64, len(keep))
		for i, p := range keep {
			vals[i] = p.vals[j]
		}
		if err := tbl.Set(h, vals); err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	return &sheet{name: name, headers: headers, table: tbl}, nil
}

// labelFixed checks that the data headers follow the fixed currency order and renames
// them with column(ccy). A header matches when it equals the code or starts with it.
func labelFixed(s *sheet, stage string, column func(domain.Currency) string) error {
	if len(s.headers) != len(domain.Currencies) {
		return fmt.Errorf("%w: sheet %s has %d currency columns, want %d", domain.ErrHeaderMismatch, stage, len(s.headers), len(domain.Currencies))
	}
	mapping := make(map[string]string, len(s.headers))
	for i, h := range s.headers {
		c := domain.Currencies[i]
		if !strings.HasPrefix(strings.ToUpper(h), string(c)) {
			return fmt.Errorf("%w: sheet %s column %d is %q, want %s", domain.ErrHeaderMismatch, stage, i+1, h, c)
		}
		mapping[h] = column(c)
	}
	return s.table.Rename(mapping)
}

// labelRates maps OIS headers naming a currency to {CCY}_IR. Other columns are left
// as they are and dropped by the final selection.
func labelRates(s *sheet, log *zap.Logger) {
	mapping := make(map[string]string, len(s.headers))
	for _, h := range s.headers {
		code := strings.Fields(h)[0]
		c, err := domain.ParseCurrency(code)
		if err != nil {
			log.Warn("spreadsheet.unknown_rate_column", zap.String("header", h))
			continue
		}
		mapping[h] = c.RateColumn()
	}
	if err := s.table.Rename(mapping); err != nil {
		log.Warn("spreadsheet.rate_rename_failed", zap.Error(err))
	}
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseDate accepts Excel serial dates and common text layouts.
func parseDate(raw string) (time.Time, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return time.Time{}, err
		}
		return domain.TruncateDay(t), nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return domain.TruncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func parseValue(raw string) float64 {
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
