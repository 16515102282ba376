package engine

import (
	"errors"
	"fmt"

	"github.com/dm/solrctl/internal/model"
)

// Kind categorizes an orchestration failure.
type Kind string

const (
	// KindPrecondition: the operation never started (core not idle, bad arguments).
	KindPrecondition Kind = "precondition"
	// KindTransport: the server was unreachable or answered with something unparsable.
	KindTransport Kind = "transport"
	// KindBuild: the build finished in a failed state.
	KindBuild Kind = "build"
	// KindTimeout: the build phase ran longer than allowed.
	KindTimeout Kind = "timeout"
	// KindVersion: the stage version could not be raised above the live version.
	KindVersion Kind = "version"
)

// Error is returned by every Orchestrator operation that fails.
type Error struct {
	Kind    Kind
	Core    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Core != "" {
		msg = fmt.Sprintf("core %s: %s", e.Core, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// OutcomeOf maps an error returned by the Orchestrator to the terminal
// outcome it represents. A nil error maps to OutcomeSucceeded.
func OutcomeOf(err error) model.Outcome {
	if err == nil {
		return model.OutcomeSucceeded
	}
	kind, _ := KindOf(err)
	switch kind {
	case KindPrecondition, KindVersion:
		return model.OutcomeRejected
	case KindBuild:
		return model.OutcomeRollback
	case KindTimeout:
		return model.OutcomeTimeout
	}
	return model.OutcomeServerError
}

func preconditionError(core, format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Core: core, Message: fmt.Sprintf(format, args...)}
}

func transportError(core, msg string, err error) *Error {
	return &Error{Kind: KindTransport, Core: core, Message: msg, Err: err}
}
