package domain

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateRange is an inclusive calendar range. A zero Start or End leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses YYYY-MM-DD bounds; empty strings leave the side open.
func ParseDateRange(start, end string) (DateRange, error) {
	var r DateRange
	var err error
	if start != "" {
		if r.Start, err = time.Parse(DateLayout, start); err != nil {
			return DateRange{}, fmt.Errorf("parse start date: %w", err)
		}
	}
	if end != "" {
		if r.End, err = time.Parse(DateLayout, end); err != nil {
			return DateRange{}, fmt.Errorf("parse end date: %w", err)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("end date %s before start date %s", end, start)
	}
	return r, nil
}

func (r DateRange) Contains(d time.Time) bool {
	d = TruncateDay(d)
	if !r.Start.IsZero() && d.Before(TruncateDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && d.After(TruncateDay(r.End)) {
		return false
	}
	return true
}

func (r DateRange) String() string {
	f := func(t time.Time) string {
		if t.IsZero() {
			return "*"
		}
		return t.Format(DateLayout)
	}
	return f(r.Start) + ".." + f(r.End)
}

// TruncateDay drops the clock part and pins the date to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
