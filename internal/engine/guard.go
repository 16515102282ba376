package engine

import (
	"context"

	"github.com/dm/solrctl/internal/model"
)

// guard fetches a fresh snapshot of core and rejects the operation unless
// the core is idle. The snapshot is returned so callers can use it as a
// baseline.
func (o *Orchestrator) guard(ctx context.Context, core, action string) (*model.CoreStatus, error) {
	if core == "" {
		return nil, preconditionError("", "cannot %s: core name is required", action)
	}
	st, err := FetchCoreStatus(ctx, o.client, core)
	if err != nil {
		return nil, &Error{
			Kind:    KindPrecondition,
			Core:    core,
			Message: "cannot " + action + " because the current core status could not be determined",
			Err:     err,
		}
	}
	if !st.IsIdle() {
		return st, preconditionError(core,
			"cannot %s because the current core status is %q; try again later (indexing) or restart the core (locked)",
			action, st.Status)
	}
	return st, nil
}
