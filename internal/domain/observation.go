package domain

import "time"

// Observation is one value of a bulk historical query, keyed by date, ticker and field.
// Value is NaN when the terminal returned no value.
type Observation struct {
	Date   time.Time
	Ticker string
	Field  string
	Value  float64
}
