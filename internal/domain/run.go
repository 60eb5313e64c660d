package domain

import "time"

type SourceKind string

const (
	SourceSpreadsheet SourceKind = "spreadsheet"
	SourceTerminal    SourceKind = "terminal"
)

// Run is one queued or executed pass of the pipeline over a date range.
type Run struct {
	ID          string
	Source      SourceKind
	Range       DateRange
	Status      RunStatus
	Error       *string
	Rows        int
	Flagged     int
	RequestedAt time.Time
	UpdatedAt   time.Time
}

type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusProcessing RunStatus = "processing"
	RunStatusDone       RunStatus = "done"
	RunStatusFailed     RunStatus = "failed"
)

// DeviationPoint is one persisted cell of the deviation table. BPS is nil when the
// value was missing or filtered.
type DeviationPoint struct {
	Date     time.Time
	Currency Currency
	BPS      *float64
	RunID    string
}
