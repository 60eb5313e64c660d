// Package cip turns a quote table into covered interest parity deviations.
//
// The stages run strictly forward: NormalizeTable brings spot and forward quotes to
// one convention, Compute applies the parity formula per currency, Clean nulls rolling
// outliers and Aggregate summarizes the cleaned table. Every stage is a pure function
// over *domain.Table; invalid observations become NaN instead of failing the run.
package cip
