package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/dm/solrctl/internal/client"
)

// Lifecycle states reported by the data import handler.
const (
	StatusIdle = "idle"
	StatusBusy = "busy"
)

// CoreStatus is a point-in-time read of one core's build and commit state.
// A CoreStatus is never mutated after construction; fetch a new one to
// observe a new state.
type CoreStatus struct {
	Server string
	Core   string

	Status             string
	CommandIsRunning   bool
	TimeElapsed        string
	TimeTaken          string
	RowsFetched        string
	DocumentsProcessed int64
	DocumentsSkipped   string
	Committed          string
	Optimized          string
	Rolledback         string

	IndexVersion  string
	DocumentCount int64

	FetchedAt time.Time
}

// NewCoreStatus assembles a CoreStatus from the three server reads.
// A processed count that is absent or not an integer is treated as zero.
func NewCoreStatus(server, core string, st *client.ImportStatus, stats *client.IndexStats, docCount int64, at time.Time) *CoreStatus {
	cs := &CoreStatus{
		Server:        server,
		Core:          core,
		DocumentCount: docCount,
		FetchedAt:     at,
	}
	if st != nil {
		cs.Status = st.Status
		cs.CommandIsRunning = st.CommandIsRunning()
		cs.TimeElapsed = st.TimeElapsed
		cs.TimeTaken = st.TimeTaken
		cs.RowsFetched = st.TotalRowsFetched
		cs.DocumentsSkipped = st.TotalDocumentsSkipped
		cs.Committed = st.Committed
		cs.Optimized = st.Optimized
		cs.Rolledback = st.Rolledback
		if n, err := strconv.ParseInt(strings.TrimSpace(st.TotalDocumentsProcessed), 10, 64); err == nil {
			cs.DocumentsProcessed = n
		}
	}
	if stats != nil {
		cs.IndexVersion = stats.IndexVersion
	}
	return cs
}

// IsIdle reports whether no import is running on the core.
func (s *CoreStatus) IsIdle() bool { return s != nil && s.Status == StatusIdle }

// IsBusy reports whether an import is running on the core.
func (s *CoreStatus) IsBusy() bool { return s != nil && s.Status == StatusBusy }

// IsRolledback reports whether the server recorded a rollback for the last build.
func (s *CoreStatus) IsRolledback() bool { return s != nil && s.Rolledback != "" }

// CompareVersions orders two index versions. Versions are compared as
// integers when both parse; otherwise they are compared as strings and
// numeric is false.
func CompareVersions(a, b string) (cmp int, numeric bool) {
	ai, aerr := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	bi, berr := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		}
		return 0, true
	}
	return strings.Compare(a, b), false
}
