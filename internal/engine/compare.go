package engine

import (
	"context"
	"fmt"

	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/model"
)

// Comparison is the result of checking two cores for equality.
type Comparison struct {
	Left  *model.CoreStatus
	Right *model.CoreStatus
	Equal bool
}

// CheckEqual compares core on this server with other, typically a replica.
// Only the statistics pages are read. The cores are equal when both their
// index versions and document counts match.
func (o *Orchestrator) CheckEqual(ctx context.Context, core string, other Target) (*Comparison, error) {
	if core == "" || other.Core == "" {
		err := preconditionError(core, "cannot compare: both core names are required")
		o.log.Error(err.Error())
		return nil, err
	}
	if other.Client == nil {
		other.Client = o.client
	}

	left, right, err := FetchPair(ctx, FetchReplicaStatus, Target{Client: o.client, Core: core}, other)
	if err != nil {
		e := transportError(core, "could not determine core status", err)
		o.log.Error(e.Error(), logfields.Core(core))
		return nil, e
	}

	cmp := &Comparison{
		Left:  left,
		Right: right,
		Equal: left.IndexVersion == right.IndexVersion && left.DocumentCount == right.DocumentCount,
	}
	msg := fmt.Sprintf("Core %s on %s and core %s on %s", core, left.Server, other.Core, right.Server)
	if cmp.Equal {
		o.log.Info(msg+" are equal", logfields.Version(left.IndexVersion), logfields.DocCount(left.DocumentCount))
	} else {
		o.log.Error(msg+" are NOT equal",
			logfields.Version(left.IndexVersion), logfields.DocCount(left.DocumentCount))
	}
	return cmp, nil
}

// Compare fetches full snapshots of two cores on this server for a
// side-by-side summary.
func (o *Orchestrator) Compare(ctx context.Context, live, stage string) (*model.CoreStatus, *model.CoreStatus, error) {
	if live == "" || stage == "" {
		err := preconditionError("", "cannot compare: live and stage core names are required")
		o.log.Error(err.Error())
		return nil, nil, err
	}
	a, b, err := FetchPair(ctx, FetchCoreStatus, Target{Client: o.client, Core: live}, Target{Client: o.client, Core: stage})
	if err != nil {
		e := transportError("", "could not determine core status", err)
		o.log.Error(e.Error(), logfields.LiveCore(live), logfields.Core(stage))
		return nil, nil, e
	}
	return a, b, nil
}
