package engine

import (
	"context"
	"fmt"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/model"
)

// IncrementVersion advances the index version of an idle core without
// changing its content: a sentinel document is added, committed, deleted
// and committed again. A version that did not move is reported in the
// returned bump with a nil error.
func (o *Orchestrator) IncrementVersion(ctx context.Context, core string) (*model.VersionBump, error) {
	before, err := o.guard(ctx, core, "increment the index version of core "+core)
	if err != nil {
		o.log.Error(err.Error(), logfields.Core(core))
		return nil, err
	}

	bump := &model.VersionBump{Core: core, Before: before.IndexVersion}
	steps := []client.Command{
		SentinelAddCommand(core, o.sentinelID, o.sentinelFields),
		CommitCommand(core),
		SentinelDeleteCommand(core, o.sentinelID),
		CommitCommand(core),
	}
	for _, cmd := range steps {
		if _, err := o.client.Execute(ctx, cmd); err != nil {
			e := transportError(core, "sentinel write failed", err)
			o.log.Error(e.Error(), logfields.Core(core), logfields.Path(cmd.Path))
			return bump, e
		}
	}

	stats, err := o.client.GetIndexStats(ctx, core)
	if err != nil {
		e := transportError(core, "could not read index version", err)
		o.log.Error(e.Error(), logfields.Core(core))
		return bump, e
	}
	bump.After = stats.IndexVersion
	cmp, _ := model.CompareVersions(bump.After, bump.Before)
	bump.Changed = cmp != 0
	o.recorder.IncVersionBump(core, bump.Changed)

	if !bump.Changed {
		o.log.Warn("Failed to increment the index version", logfields.Core(core), logfields.Version(bump.After))
		return bump, nil
	}
	o.log.Info(fmt.Sprintf("Incremented core version from %s to %s for core %s", bump.Before, bump.After, core),
		logfields.Core(core), logfields.Version(bump.After))
	return bump, nil
}
