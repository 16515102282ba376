package tui

import (
	"time"

	"github.com/dm/solrctl/internal/model"
)

// StatusMsg delivers one successful poll of every monitored core, in the
// order the cores were given.
type StatusMsg struct {
	Statuses  []*model.CoreStatus
	Rates     []model.ProgressRates
	FetchedAt time.Time
}

// FetchErrorMsg signals a poll failure.
type FetchErrorMsg struct{ Err error }

// TickMsg triggers the next scheduled poll.
type TickMsg time.Time
