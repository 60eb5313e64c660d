package provider

import (
	"context"
	"time"

	"cip-service/internal/application"
	"cip-service/internal/domain"
)

// Ensure Fake implements application.HistoryClient.
var _ application.HistoryClient = (*Fake)(nil)

// Fake answers bulk history queries with a constant value per ticker on every weekday
// of the requested range. It backs SOURCE=terminal in local runs without a bridge.
type Fake struct {
	Values map[string]float64
	// Start and End bound open ranges.
	Start, End time.Time
}

func NewFake(values map[string]float64) *Fake {
	return &Fake{
		Values: values,
		Start:  time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2010, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func (f *Fake) BulkHistory(ctx context.Context, tickers, fields []string, r domain.DateRange) ([]domain.Observation, error) {
	start, end := f.Start, f.End
	if !r.Start.IsZero() {
		start = r.Start
	}
	if !r.End.IsZero() {
		end = r.End
	}
	var out []domain.Observation
	for d := domain.TruncateDay(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		for _, t := range tickers {
			v, ok := f.Values[t]
			if !ok {
				continue
			}
			for _, fld := range fields {
				out = append(out, domain.Observation{Date: d, Ticker: t, Field: fld, Value: v})
			}
		}
	}
	return out, nil
}
