package model

// ProgressRates holds import throughput derived from two consecutive
// snapshots of the same core.
type ProgressRates struct {
	RowsPerSec float64
	DocsPerSec float64
}
