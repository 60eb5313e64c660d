package cip

import (
	"cip-service/internal/domain"
)

// Normalize converts one observation of currency c to a spot and outright forward
// rate in USD per foreign unit. When fwdIsRate is false fwd holds forward points,
// which are scaled by the currency's pip size and added to spot first.
func Normalize(c domain.Currency, spot, fwd float64, fwdIsRate bool) (float64, float64) {
	if !fwdIsRate {
		fwd = spot + fwd/domain.PointScale(c)
	}
	if domain.IsReciprocal(c) {
		return 1.0 / spot, 1.0 / fwd
	}
	return spot, fwd
}

// NormalizeTable applies Normalize to the spot and forward columns of every currency
// and returns a new table; other columns are copied unchanged.
func NormalizeTable(q *domain.Table, fwdIsRate bool) (*domain.Table, error) {
	need := make([]string, 0, 2*len(domain.Currencies))
	for _, c := range domain.Currencies {
		need = append(need, c.SpotColumn(), c.ForwardColumn())
	}
	if err := q.RequireColumns("normalize", need...); err != nil {
		return nil, err
	}

	out := q.Clone()
	for _, c := range domain.Currencies {
		spot, _ := q.Column(c.SpotColumn())
		fwd, _ := q.Column(c.ForwardColumn())
		ns := make([]float64, len(spot))
		nf := make([]float64, len(fwd))
		for i := range spot {
			ns[i], nf[i] = Normalize(c, spot[i], fwd[i], fwdIsRate)
		}
		if err := out.Set(c.SpotColumn(), ns); err != nil {
			return nil, err
		}
		if err := out.Set(c.ForwardColumn(), nf); err != nil {
			return nil, err
		}
	}
	return out, nil
}
