package cip

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"cip-service/internal/domain"
)

// Summary holds the descriptive statistics of one deviation column, NaN excluded.
type Summary struct {
	Count    int           `json:"count"`
	Mean     domain.Number `json:"mean"`
	Std      domain.Number `json:"std"`
	Min      domain.Number `json:"min"`
	P25      domain.Number `json:"p25"`
	Median   domain.Number `json:"median"`
	P75      domain.Number `json:"p75"`
	Max      domain.Number `json:"max"`
	Range    domain.Number `json:"range"`
	IQR      domain.Number `json:"iqr"`
	Skewness domain.Number `json:"skewness"`
	Kurtosis domain.Number `json:"kurtosis"`
}

// YearSummary aggregates one column over one calendar year.
type YearSummary struct {
	Year  int           `json:"year"`
	Count int           `json:"count"`
	Mean  domain.Number `json:"mean"`
	Std   domain.Number `json:"std"`
	Min   domain.Number `json:"min"`
	Max   domain.Number `json:"max"`
}

// Statistics is the aggregate view of a cleaned deviation table. Correlation rows
// and columns follow Columns.
type Statistics struct {
	Columns     []string                 `json:"columns"`
	Overall     map[string]Summary       `json:"overall"`
	Correlation [][]domain.Number        `json:"correlation"`
	Annual      map[string][]YearSummary `json:"annual"`
}

// Insights names the currencies with the largest positive and negative mean deviation.
type Insights struct {
	MostPositive     domain.Currency `json:"most_positive"`
	MostPositiveMean domain.Number   `json:"most_positive_mean"`
	MostNegative     domain.Currency `json:"most_negative"`
	MostNegativeMean domain.Number   `json:"most_negative_mean"`
}

// Aggregate computes overall, correlation and annual statistics over the eight
// deviation columns. It fails with a MissingColumnsError if any of them is absent.
func Aggregate(dev *domain.Table) (*Statistics, error) {
	cols := domain.DeviationColumns()
	if err := dev.RequireColumns("aggregate", cols...); err != nil {
		return nil, err
	}

	s := &Statistics{
		Columns: cols,
		Overall: make(map[string]Summary, len(cols)),
		Annual:  make(map[string][]YearSummary, len(cols)),
	}
	series := make([][]float64, len(cols))
	for i, c := range cols {
		series[i], _ = dev.Column(c)
		s.Overall[c] = summarize(valid(series[i]))
		s.Annual[c] = annual(dev, series[i])
	}

	s.Correlation = make([][]domain.Number, len(cols))
	for i := range cols {
		s.Correlation[i] = make([]domain.Number, len(cols))
		for j := range cols {
			s.Correlation[i][j] = domain.Number(pairwiseCorrelation(series[i], series[j]))
		}
	}
	return s, nil
}

// Insights picks the extreme mean deviations; columns with no data are ignored.
func (s *Statistics) Insights() Insights {
	var in Insights
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, col := range s.Columns {
		m := s.Overall[col].Mean.Float()
		if math.IsNaN(m) {
			continue
		}
		c, _ := domain.CurrencyOfDeviation(col)
		if m > hi {
			hi, in.MostPositive = m, c
		}
		if m < lo {
			lo, in.MostNegative = m, c
		}
	}
	in.MostPositiveMean = domain.Number(hi)
	in.MostNegativeMean = domain.Number(lo)
	if in.MostPositive == "" {
		in.MostPositiveMean, in.MostNegativeMean = domain.Number(math.NaN()), domain.Number(math.NaN())
	}
	return in
}

func valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func summarize(xs []float64) Summary {
	nan := domain.Number(math.NaN())
	s := Summary{Count: len(xs), Mean: nan, Std: nan, Min: nan, P25: nan, Median: nan,
		P75: nan, Max: nan, Range: nan, IQR: nan, Skewness: nan, Kurtosis: nan}
	if len(xs) == 0 {
		return s
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	s.Mean = domain.Number(stat.Mean(xs, nil))
	s.Std = domain.Number(sampleStd(xs))
	s.Min = domain.Number(floats.Min(xs))
	s.Max = domain.Number(floats.Max(xs))
	s.P25 = domain.Number(quantile(sorted, 0.25))
	s.Median = domain.Number(quantile(sorted, 0.5))
	s.P75 = domain.Number(quantile(sorted, 0.75))
	s.Range = s.Max - s.Min
	s.IQR = s.P75 - s.P25
	s.Skewness = domain.Number(skewness(xs))
	s.Kurtosis = domain.Number(kurtosis(xs))
	return s
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(xs, nil)
}

// quantile interpolates linearly between order statistics at position (n-1)p.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// skewness is the bias-corrected sample skewness (G1); a constant series gives 0.
func skewness(xs []float64) float64 {
	if len(xs) < 3 {
		return math.NaN()
	}
	if floats.Min(xs) == floats.Max(xs) {
		return 0
	}
	return stat.Skew(xs, nil)
}

// kurtosis is the bias-corrected sample excess kurtosis (G2); a constant series gives 0.
func kurtosis(xs []float64) float64 {
	if len(xs) < 4 {
		return math.NaN()
	}
	if floats.Min(xs) == floats.Max(xs) {
		return 0
	}
	return stat.ExKurtosis(xs, nil)
}

// pairwiseCorrelation is the Pearson correlation over the observations where both
// series are present.
func pairwiseCorrelation(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func annual(dev *domain.Table, vals []float64) []YearSummary {
	if dev.Len() == 0 {
		return nil
	}
	first, last := dev.Date(0).Year(), dev.Date(dev.Len()-1).Year()
	byYear := make(map[int][]float64, last-first+1)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		y := dev.Date(i).Year()
		byYear[y] = append(byYear[y], v)
	}

	out := make([]YearSummary, 0, last-first+1)
	for y := first; y <= last; y++ {
		xs := byYear[y]
		ys := YearSummary{Year: y, Count: len(xs)}
		if len(xs) == 0 {
			nan := domain.Number(math.NaN())
			ys.Mean, ys.Std, ys.Min, ys.Max = nan, nan, nan, nan
		} else {
			ys.Mean = domain.Number(stat.Mean(xs, nil))
			ys.Std = domain.Number(sampleStd(xs))
			ys.Min = domain.Number(floats.Min(xs))
			ys.Max = domain.Number(floats.Max(xs))
		}
		out = append(out, ys)
	}
	return out
}
