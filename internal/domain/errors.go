package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrDataUnavailable     = errors.New("data unavailable")
	ErrMissingColumns      = errors.New("missing columns")
	ErrInvalidTable        = errors.New("invalid table")
	ErrHeaderMismatch      = errors.New("header mismatch")
)

// DataUnavailableError names the source and the sheet or ticker group that could not
// be read. It matches ErrDataUnavailable with errors.Is.
type DataUnavailableError struct {
	Source string
	Entity string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("%s: %s unavailable", e.Source, e.Entity)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }
func (e *DataUnavailableError) Unwrap() error        { return e.Err }

// MissingColumnsError lists the columns a stage needed but did not get.
type MissingColumnsError struct {
	Stage   string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing columns [%s]", e.Stage, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Is(target error) bool { return target == ErrMissingColumns }
