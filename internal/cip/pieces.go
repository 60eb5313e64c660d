package cip

import "cip-service/internal/domain"

// Pieces splits a quote table into its spot, forward and interest rate blocks.
// The rate block includes USD_IR.
func Pieces(q *domain.Table) (spot, fwd, rates *domain.Table, err error) {
	var s, f, r []string
	for _, c := range domain.Currencies {
		s = append(s, c.SpotColumn())
		f = append(f, c.ForwardColumn())
		r = append(r, c.RateColumn())
	}
	r = append(r, domain.USDRateColumn)

	if spot, err = q.Select(s...); err != nil {
		return nil, nil, nil, err
	}
	if fwd, err = q.Select(f...); err != nil {
		return nil, nil, nil, err
	}
	if rates, err = q.Select(r...); err != nil {
		return nil, nil, nil, err
	}
	return spot, fwd, rates, nil
}
