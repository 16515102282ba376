package model

// Outcome is the terminal classification of an orchestrated operation.
type Outcome string

const (
	OutcomeSucceeded        Outcome = "succeeded"
	OutcomeNoop             Outcome = "noop"
	OutcomeVersionUnchanged Outcome = "version-unchanged"
	OutcomeRollback         Outcome = "rollback"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeServerError      Outcome = "server-error"
	OutcomeRejected         Outcome = "rejected"
)

// Failed reports whether the outcome marks the invocation as failed.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeSucceeded, OutcomeNoop, OutcomeVersionUnchanged:
		return false
	}
	return true
}

// Result is what a build or watch returns to the dispatcher.
type Result struct {
	Outcome Outcome
	Reason  string
	Session *Session
	Final   *CoreStatus
	Swap    *SwapResult
}

// SwapResult describes a completed or refused core swap.
type SwapResult struct {
	LiveCore  string
	StageCore string
	Bumps     []VersionBump
	Swapped   bool
}

// VersionBump records one sentinel write used to advance an index version.
type VersionBump struct {
	Core    string
	Before  string
	After   string
	Changed bool
}
