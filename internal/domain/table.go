package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Table is a date-indexed frame of float64 columns. NaN marks a missing value.
// Dates are strictly increasing UTC calendar days.
type Table struct {
	dates   []time.Time
	order   []string
	columns map[string][]float64
}

// NewTable builds an empty table over dates. Dates are truncated to the day and must
// be strictly increasing.
func NewTable(dates []time.Time) (*Table, error) {
	idx := make([]time.Time, len(dates))
	for i, d := range dates {
		idx[i] = TruncateDay(d)
		if i > 0 && !idx[i].After(idx[i-1]) {
			return nil, fmt.Errorf("%w: dates not strictly increasing at %s", ErrInvalidTable, idx[i].Format(DateLayout))
		}
	}
	return &Table{dates: idx, columns: map[string][]float64{}}, nil
}

func (t *Table) Len() int { return len(t.dates) }

func (t *Table) Dates() []time.Time { return append([]time.Time(nil), t.dates...) }

func (t *Table) Date(i int) time.Time { return t.dates[i] }

func (t *Table) Columns() []string { return append([]string(nil), t.order...) }

func (t *Table) Has(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the backing slice of name. Callers must not modify it; use Set.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.columns[name]
	return v, ok
}

// Set adds or replaces a column. The slice is copied.
func (t *Table) Set(name string, values []float64) error {
	if len(values) != len(t.dates) {
		return fmt.Errorf("%w: column %s has %d values for %d dates", ErrInvalidTable, name, len(values), len(t.dates))
	}
	if _, ok := t.columns[name]; !ok {
		t.order = append(t.order, name)
	}
	t.columns[name] = append([]float64(nil), values...)
	return nil
}

// Rename changes column labels in place. Unknown names are ignored.
func (t *Table) Rename(mapping map[string]string) error {
	for from, to := range mapping {
		if _, ok := t.columns[from]; !ok || from == to {
			continue
		}
		if _, clash := t.columns[to]; clash {
			return fmt.Errorf("%w: rename %s -> %s clashes with existing column", ErrInvalidTable, from, to)
		}
	}
	for i, name := range t.order {
		to, ok := mapping[name]
		if !ok || to == name {
			continue
		}
		t.columns[to] = t.columns[name]
		delete(t.columns, name)
		t.order[i] = to
	}
	return nil
}

// RequireColumns fails with a MissingColumnsError naming every absent column.
func (t *Table) RequireColumns(stage string, names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Stage: stage, Columns: missing}
	}
	return nil
}

// Select returns a new table restricted to names, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	if err := t.RequireColumns("select", names...); err != nil {
		return nil, err
	}
	out := &Table{dates: t.Dates(), columns: map[string][]float64{}}
	for _, n := range names {
		_ = out.Set(n, t.columns[n])
	}
	return out, nil
}

func (t *Table) Clone() *Table {
	out, _ := t.Select(t.order...)
	return out
}

// Clip keeps the rows inside r.
func (t *Table) Clip(r DateRange) *Table {
	keep := make([]int, 0, len(t.dates))
	for i, d := range t.dates {
		if r.Contains(d) {
			keep = append(keep, i)
		}
	}
	return t.rows(keep)
}

func (t *Table) rows(keep []int) *Table {
	out := &Table{dates: make([]time.Time, len(keep)), columns: map[string][]float64{}}
	for j, i := range keep {
		out.dates[j] = t.dates[i]
	}
	for _, n := range t.order {
		src := t.columns[n]
		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = src[i]
		}
		out.order = append(out.order, n)
		out.columns[n] = vals
	}
	return out
}

// InnerJoin merges tables on their date index, keeping only dates present in all of
// them. Column names must be unique across the inputs.
func InnerJoin(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: nothing to join", ErrInvalidTable)
	}
	counts := map[time.Time]int{}
	for _, tb := range tables {
		for _, d := range tb.dates {
			counts[d]++
		}
	}
	var common []time.Time
	for d, n := range counts {
		if n == len(tables) {
			common = append(common, d)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i].Before(common[j]) })

	out, err := NewTable(common)
	if err != nil {
		return nil, err
	}
	for _, tb := range tables {
		pos := make(map[time.Time]int, len(tb.dates))
		for i, d := range tb.dates {
			pos[d] = i
		}
		for _, n := range tb.order {
			if out.Has(n) {
				return nil, fmt.Errorf("%w: duplicate column %s in join", ErrInvalidTable, n)
			}
			src := tb.columns[n]
			vals := make([]float64, len(common))
			for j, d := range common {
				vals[j] = src[pos[d]]
			}
			out.order = append(out.order, n)
			out.columns[n] = vals
		}
	}
	return out, nil
}

// CountValid returns the number of non-NaN values in name.
func (t *Table) CountValid(name string) int {
	n := 0
	for _, v := range t.columns[name] {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
