package model

import "time"

// BuildMode selects the import command a build issues.
type BuildMode int

const (
	ModeFull BuildMode = iota
	ModeDelta
	ModeFastDelta
	// ModeWatch polls an import started elsewhere.
	ModeWatch
)

func (m BuildMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeDelta:
		return "delta"
	case ModeFastDelta:
		return "fast-delta"
	case ModeWatch:
		return "watch"
	}
	return "unknown"
}

// EpochCursor is the last index time that means "index everything".
const EpochCursor = "1970-01-01 00:00:00"

// Session holds the state of one orchestrated build. It exists only while
// the polling loop runs and is owned by a single goroutine.
type Session struct {
	Server   string
	Core     string
	LiveCore string

	Mode     BuildMode
	Optimize bool
	Swap     bool

	// Baseline is captured before the first command is issued.
	Baseline *CoreStatus

	// LastIndexTime is read once before phase 1 and reused by phase 2.
	LastIndexTime string

	// PhaseOnePending is set while the delta pass of a fast-delta build runs.
	PhaseOnePending bool

	// StartedAt is when the session began. MaxDuration bounds the
	// whole session, both fast-delta phases included.
	StartedAt    time.Time
	MaxDuration  time.Duration
	PollInterval time.Duration

	Polls int
}

