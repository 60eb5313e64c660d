package source

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/cip"
	"cip-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const FieldLast = "PX_LAST"

type tickerGroup struct {
	name    string
	tickers []string
	columns map[string]string
}

// Ticker groups of the bulk historical queries. Forward proxies are outright 3M rates.
var tickerGroups = []tickerGroup{
	{
		name: "spot",
		tickers: []string{
			"ADSOC CMPN Curncy", "CDSOC CMPN Curncy", "SFSNTC CMPN Curncy", "EUSWEC CMPN Curncy",
			"BPSWSC CMPN Curncy", "JYSOC CMPN Curncy", "NDSOC CMPN Curncy", "USSOC CMPN Curncy",
		},
		columns: map[string]string{
			"ADSOC CMPN Curncy":  domain.AUD.SpotColumn(),
			"CDSOC CMPN Curncy":  domain.CAD.SpotColumn(),
			"SFSNTC CMPN Curncy": domain.CHF.SpotColumn(),
			"EUSWEC CMPN Curncy": domain.EUR.SpotColumn(),
			"BPSWSC CMPN Curncy": domain.GBP.SpotColumn(),
			"JYSOC CMPN Curncy":  domain.JPY.SpotColumn(),
			"NDSOC CMPN Curncy":  domain.NZD.SpotColumn(),
			"USSOC CMPN Curncy":  domain.SEK.SpotColumn(),
		},
	},
	{
		name: "forward",
		tickers: []string{
			"AUD CMPN Curncy", "CAD CMPN Curncy", "CHF CMPN Curncy", "EUR CMPN Curncy",
			"GBP CMPN Curncy", "JPY CMPN Curncy", "NZD CMPN Curncy", "SEK CMPN Curncy",
		},
		columns: map[string]string{
			"AUD CMPN Curncy": domain.AUD.ForwardColumn(),
			"CAD CMPN Curncy": domain.CAD.ForwardColumn(),
			"CHF CMPN Curncy": domain.CHF.ForwardColumn(),
			"EUR CMPN Curncy": domain.EUR.ForwardColumn(),
			"GBP CMPN Curncy": domain.GBP.ForwardColumn(),
			"JPY CMPN Curncy": domain.JPY.ForwardColumn(),
			"NZD CMPN Curncy": domain.NZD.ForwardColumn(),
			"SEK CMPN Curncy": domain.SEK.ForwardColumn(),
		},
	},
	{
		name: "rate",
		tickers: []string{
			"US0003M CMPN Curncy", "EE0003M CMPN Curncy", "JY0003M CMPN Curncy", "AU0003M CMPN Curncy",
			"CD0003M CMPN Curncy", "SF0003M CMPN Curncy", "NZ0003M CMPN Curncy", "SK0003M CMPN Curncy",
			"BP0003M CMPN Curncy",
		},
		columns: map[string]string{
			"US0003M CMPN Curncy": domain.USDRateColumn,
			"EE0003M CMPN Curncy": domain.EUR.RateColumn(),
			"JY0003M CMPN Curncy": domain.JPY.RateColumn(),
			"AU0003M CMPN Curncy": domain.AUD.RateColumn(),
			"CD0003M CMPN Curncy": domain.CAD.RateColumn(),
			"SF0003M CMPN Curncy": domain.CHF.RateColumn(),
			"NZ0003M CMPN Curncy": domain.NZD.RateColumn(),
			"SK0003M CMPN Curncy": domain.SEK.RateColumn(),
			"BP0003M CMPN Curncy": domain.GBP.RateColumn(),
		},
	},
}

// Terminal builds the QuoteTable from three concurrent bulk historical queries.
type Terminal struct {
	Client application.HistoryClient
	Log    *zap.Logger
}

var _ application.QuoteSource = (*Terminal)(nil)

func (s *Terminal) Fetch(ctx context.Context, r domain.DateRange) (*domain.Table, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	tables := make([]*domain.Table, len(tickerGroups))
	g, gctx := errgroup.WithContext(ctx)
	for i, grp := range tickerGroups {
		i, grp := i, grp
		g.Go(func() error {
			t, err := s.fetchGroup(gctx, grp, r)
			if err != nil {
				return err
			}
			log.Info("terminal.group_loaded", zap.String("group", grp.name), zap.Int("rows", t.Len()))
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := domain.InnerJoin(tables...)
	if err != nil {
		return nil, err
	}
	if err := merged.RequireColumns("terminal", domain.QuoteColumns()...); err != nil {
		return nil, err
	}
	norm, err := cip.NormalizeTable(merged, true)
	if err != nil {
		return nil, err
	}
	return norm.Clip(r).Select(domain.QuoteColumns()...)
}

func (s *Terminal) fetchGroup(ctx context.Context, grp tickerGroup, r domain.DateRange) (*domain.Table, error) {
	unavailable := func(err error) error {
		return &domain.DataUnavailableError{Source: "terminal", Entity: "ticker group " + grp.name, Err: err}
	}
	obs, err := s.Client.BulkHistory(ctx, grp.tickers, []string{FieldLast}, r)
	if err != nil {
		return nil, unavailable(err)
	}
	if len(obs) == 0 {
		return nil, unavailable(fmt.Errorf("empty result"))
	}
	t, err := flatten(obs)
	if err != nil {
		return nil, unavailable(err)
	}
	mapping := make(map[string]string, len(grp.columns))
	for ticker, col := range grp.columns {
		mapping[ticker+"_"+FieldLast] = col
	}
	if err := t.Rename(mapping); err != nil {
		return nil, err
	}
	return t, nil
}

// flatten pivots observations into a table with one {ticker}_{field} column per pair.
// Dates missing for a pair are NaN.
func flatten(obs []domain.Observation) (*domain.Table, error) {
	dateSet := map[time.Time]struct{}{}
	var names []string
	seen := map[string]bool{}
	for _, o := range obs {
		dateSet[domain.TruncateDay(o.Date)] = struct{}{}
		n := o.Ticker + "_" + o.Field
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	pos := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		pos[d] = i
	}

	cols := make(map[string][]float64, len(names))
	for _, n := range names {
		vals := make([]float64, len(dates))
		for i := range vals {
			vals[i] = math.NaN()
		}
		cols[n] = vals
	}
	for _, o := range obs {
		cols[o.Ticker+"_"+o.Field][pos[domain.TruncateDay(o.Date)]] = o.Value
	}

	t, err := domain.NewTable(dates)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if err := t.Set(n, cols[n]); err != nil {
			return nil, err
		}
	}
	return t, nil
}
