package cip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cip-service/internal/domain"
)

func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := start
	for len(out) < n {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// flatQuotes builds a normalized quote table where every currency has the given
// spot, forward and rates on every date.
func flatQuotes(t *testing.T, dates []time.Time, spot, fwd, ir, usd float64) *domain.Table {
	t.Helper()
	tb, err := domain.NewTable(dates)
	require.NoError(t, err)
	fill := func(v float64) []float64 {
		out := make([]float64, len(dates))
		for i := range out {
			out[i] = v
		}
		return out
	}
	for _, c := range domain.Currencies {
		require.NoError(t, tb.Set(c.SpotColumn(), fill(spot)))
		require.NoError(t, tb.Set(c.ForwardColumn(), fill(fwd)))
		require.NoError(t, tb.Set(c.RateColumn(), fill(ir)))
	}
	require.NoError(t, tb.Set(domain.USDRateColumn, fill(usd)))
	return tb
}

func deviationTable(t *testing.T, dates []time.Time, col func(c domain.Currency) []float64) *domain.Table {
	t.Helper()
	tb, err := domain.NewTable(dates)
	require.NoError(t, err)
	for _, c := range domain.Currencies {
		require.NoError(t, tb.Set(c.DeviationColumn(), col(c)))
	}
	return tb
}
