package cip

import (
	"fmt"
	"math"
	"sort"

	"cip-service/internal/domain"
)

const (
	// OutlierWindow is the trailing window, in observations, of the outlier filter.
	OutlierWindow = 45
	// OutlierThreshold is the |value - median| / MAD ratio at which a value is dropped.
	OutlierThreshold = 10.0
)

// FilterReport counts the values nulled per column.
type FilterReport map[string]int

func (r FilterReport) Total() int {
	n := 0
	for _, v := range r {
		n += v
	}
	return n
}

// OutlierMask marks the observations of one series that the rolling filter drops.
//
// At each t the trailing window ending at t (inclusive) gives the median of the
// available values; dev is the absolute distance of the value to that median and MAD
// is the mean of dev over the same trailing window. Missing values are skipped inside
// a window, so a NaN inside the window does not suppress flagging of its neighbours.
// Nothing is flagged before index window-1, and a zero MAD never flags.
func OutlierMask(values []float64, window int) []bool {
	n := len(values)
	mask := make([]bool, n)
	if window <= 0 || n == 0 {
		return mask
	}

	dev := make([]float64, n)
	buf := make([]float64, 0, window)
	for t := 0; t < n; t++ {
		buf = buf[:0]
		for j := max(0, t-window+1); j <= t; j++ {
			if !math.IsNaN(values[j]) {
				buf = append(buf, values[j])
			}
		}
		dev[t] = math.Abs(values[t] - median(buf))
	}

	for t := window - 1; t < n; t++ {
		if math.IsNaN(dev[t]) {
			continue
		}
		sum, cnt := 0.0, 0
		for j := t - window + 1; j <= t; j++ {
			if !math.IsNaN(dev[j]) {
				sum += dev[j]
				cnt++
			}
		}
		mad := sum / float64(cnt)
		if mad == 0 || math.IsNaN(mad) {
			continue
		}
		if dev[t]/mad >= OutlierThreshold {
			mask[t] = true
		}
	}
	return mask
}

// median sorts xs in place. It returns NaN for an empty slice.
func median(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

// Clean returns a copy of the deviation table with rolling outliers replaced by NaN.
// Columns are filtered independently; masks are computed on the input values.
func Clean(dev *domain.Table, window int) (*domain.Table, FilterReport, error) {
	if window < 1 {
		return nil, nil, fmt.Errorf("outlier window must be positive, got %d", window)
	}
	out := dev.Clone()
	report := FilterReport{}
	for _, col := range domain.DeviationColumns() {
		vals, ok := dev.Column(col)
		if !ok {
			continue
		}
		mask := OutlierMask(vals, window)
		cleaned := append([]float64(nil), vals...)
		for i, drop := range mask {
			if drop {
				cleaned[i] = math.NaN()
				report[col]++
			}
		}
		if err := out.Set(col, cleaned); err != nil {
			return nil, nil, err
		}
	}
	return out, report, nil
}
