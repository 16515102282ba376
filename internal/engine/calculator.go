package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/dm/solrctl/internal/model"
)

// Sanity bounds for derived rates.
const (
	minTimeDiffSeconds = 1.0
	maxRatePerSec      = 50_000_000.0
)

// clampRate returns 0 if r is negative (a new import reset the counters) or
// exceeds maxRatePerSec, otherwise returns r unchanged.
func clampRate(r float64) float64 {
	if r < 0 || r > maxRatePerSec {
		return 0
	}
	return r
}

// safeDivide returns a/b, or 0 when b is zero.
func safeDivide(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// parseCount reads a counter reported as a display string. Unparsable
// values count as zero.
func parseCount(s string) float64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return float64(n)
}

// CalcProgress derives import throughput from the delta between two
// consecutive snapshots of the same core.
//
// Returns zero ProgressRates when:
//   - prev is nil (first snapshot, no baseline)
//   - elapsed < minTimeDiffSeconds (interval too short, data unreliable)
//   - the cores differ
func CalcProgress(prev, curr *model.CoreStatus, elapsed time.Duration) model.ProgressRates {
	if prev == nil || curr == nil || prev.Core != curr.Core || elapsed.Seconds() < minTimeDiffSeconds {
		return model.ProgressRates{}
	}
	secs := elapsed.Seconds()
	rows := parseCount(curr.RowsFetched) - parseCount(prev.RowsFetched)
	docs := float64(curr.DocumentsProcessed - prev.DocumentsProcessed)
	return model.ProgressRates{
		RowsPerSec: clampRate(safeDivide(rows, secs)),
		DocsPerSec: clampRate(safeDivide(docs, secs)),
	}
}
