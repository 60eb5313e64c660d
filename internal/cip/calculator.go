package cip

import (
	"math"

	"cip-service/internal/domain"
)

const (
	// bpsScale converts a rate expressed as a fraction into basis points of the
	// percent-quoted inputs (100 x 100).
	bpsScale = 100 * 100
	// annualization scales a 90-day log forward premium to a 360-day year.
	annualization = 360.0 / 90.0
)

// Deviation returns the log CIP deviation in basis points for one observation.
// Rates are percent per annum. A non-positive or non-finite spot or forward yields NaN.
func Deviation(foreignRate, usdRate, spot, fwd float64) float64 {
	if !validLogArg(spot) || !validLogArg(fwd) {
		return math.NaN()
	}
	return bpsScale * ((foreignRate / 100.0) -
		annualization*(math.Log(fwd)-math.Log(spot)) -
		(usdRate / 100.0))
}

func validLogArg(x float64) bool {
	return x > 0 && !math.IsInf(x, 0)
}

// Compute derives the deviation table from a normalized quote table. The result has
// exactly the eight CIP_{CCY}_ln columns on the same date index.
func Compute(q *domain.Table) (*domain.Table, error) {
	if err := q.RequireColumns("calculator", domain.QuoteColumns()...); err != nil {
		return nil, err
	}
	out, err := domain.NewTable(q.Dates())
	if err != nil {
		return nil, err
	}
	usd, _ := q.Column(domain.USDRateColumn)
	for _, c := range domain.Currencies {
		spot, _ := q.Column(c.SpotColumn())
		fwd, _ := q.Column(c.ForwardColumn())
		ir, _ := q.Column(c.RateColumn())

		vals := make([]float64, q.Len())
		for i := range vals {
			vals[i] = Deviation(ir[i], usd[i], spot[i], fwd[i])
		}
		if err := out.Set(c.DeviationColumn(), vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}
