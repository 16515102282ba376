package engine

import (
	"context"
	"fmt"

	"github.com/dm/solrctl/internal/logfields"
)

// Backup snapshots an idle core through the replication handler. The
// backup succeeded only when the server answers with status OK.
func (o *Orchestrator) Backup(ctx context.Context, core string) error {
	if _, err := o.guard(ctx, core, "backup core "+core); err != nil {
		o.log.Error(err.Error(), logfields.Core(core))
		return err
	}

	cmd := BackupCommand(core)
	o.log.Info(fmt.Sprintf("Creating backup for core %s with command %s", core, cmd), logfields.Core(core))
	resp, err := o.client.Execute(ctx, cmd)
	if err != nil {
		e := transportError(core, "backup command failed", err)
		o.log.Error(e.Error(), logfields.Core(core))
		return e
	}

	status := resp.Value("str", "status")
	o.log.Info("Backup response was: "+status, logfields.Core(core), logfields.Status(status))
	if status != "OK" {
		e := &Error{Kind: KindBuild, Core: core, Message: fmt.Sprintf("backup was not accepted (status %q)", status)}
		o.log.Error(e.Error(), logfields.Core(core))
		return e
	}
	return nil
}

// Commit commits pending updates on core.
func (o *Orchestrator) Commit(ctx context.Context, core string) error {
	if core == "" {
		return preconditionError("", "cannot commit: core name is required")
	}
	cmd := CommitCommand(core)
	o.log.Info(fmt.Sprintf("Committing core %s with command %s", core, cmd), logfields.Core(core))
	if _, err := o.client.Execute(ctx, cmd); err != nil {
		e := transportError(core, "commit failed", err)
		o.log.Error(e.Error(), logfields.Core(core))
		return e
	}
	return nil
}

// Optimize merges the segments of core. The request may run for up to ten
// minutes.
func (o *Orchestrator) Optimize(ctx context.Context, core string) error {
	if core == "" {
		return preconditionError("", "cannot optimize: core name is required")
	}
	cmd := OptimizeCommand(core)
	o.log.Info(fmt.Sprintf("Preparing to optimize core %s with command %s", core, cmd), logfields.Core(core))
	if _, err := o.client.Execute(ctx, cmd); err != nil {
		e := transportError(core, "optimize failed", err)
		o.log.Error(e.Error(), logfields.Core(core))
		return e
	}
	o.log.Info("Optimize completed at "+o.now().Format("2006-01-02 15:04:05"), logfields.Core(core))
	return nil
}

// Version returns the current index version of core.
func (o *Orchestrator) Version(ctx context.Context, core string) (string, error) {
	if core == "" {
		return "", preconditionError("", "core name is required")
	}
	stats, err := o.client.GetIndexStats(ctx, core)
	if err != nil {
		return "", transportError(core, "could not read index version", err)
	}
	return stats.IndexVersion, nil
}
