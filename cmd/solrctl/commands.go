package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dm/solrctl/internal/engine"
	"github.com/dm/solrctl/internal/format"
	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/model"
)

// build runs one index build wrapped in before/after status summaries.
// With doBackup the backup core is snapshotted first and a refused backup
// aborts the build.
func build(ctx context.Context, s *session, name string, req engine.BuildRequest, doBackup bool, backupCore string) error {
	s.summary("Status Summary Before "+name+" Command:", snapshotSummary(ctx, s, req))

	if doBackup {
		if err := s.orch.Backup(ctx, backupCore); err != nil {
			s.logger.Error("Aborting "+name+" process because the backup command did not successfully complete.",
				logfields.Core(backupCore))
			s.outcome = string(model.OutcomeRejected)
			return err
		}
	}

	req.MaxDuration = s.timeout
	req.PollInterval = s.pollInterval
	res, err := s.orch.Build(ctx, req)
	if res != nil {
		s.outcome = string(res.Outcome)
	}

	s.summary("Status Summary After "+name+" Command:", snapshotSummary(ctx, s, req))
	return err
}

// snapshotSummary renders the build core, next to the live core when the
// build ends in a swap. Unreachable cores render as empty columns.
func snapshotSummary(ctx context.Context, s *session, req engine.BuildRequest) string {
	if req.Swap {
		live, stage, err := s.orch.Compare(ctx, req.LiveCore, req.Core)
		if err != nil {
			return format.CompareSummary(nil, nil)
		}
		return format.CompareSummary(live, stage)
	}
	st, err := s.orch.Status(ctx, req.Core)
	if err != nil {
		s.logger.Warn("Could not read core status", logfields.Core(req.Core), logfields.Error(err))
	}
	return format.CoreSummary(st)
}

func (c *IndexCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "index", Core: c.Core, DoBackup: c.Opts.DoBackup, DoOptimize: c.Opts.DoOptimize}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		return build(ctx, s, "CreateIndex", engine.BuildRequest{
			Core:     c.Core,
			Mode:     model.ModeFull,
			Optimize: c.Opts.DoOptimize,
		}, c.Opts.DoBackup, c.Core)
	})
}

func (c *DeltaIndexCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "delta-index", Core: c.Core, DoBackup: c.Opts.DoBackup, DoOptimize: c.Opts.DoOptimize}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		return build(ctx, s, "CreateDeltaIndex", engine.BuildRequest{
			Core:     c.Core,
			Mode:     model.ModeDelta,
			Optimize: c.Opts.DoOptimize,
		}, c.Opts.DoBackup, c.Core)
	})
}

func (c *FastDeltaIndexCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "fast-delta-index", Core: c.Core, DoBackup: c.Opts.DoBackup, DoOptimize: c.Opts.DoOptimize}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		return build(ctx, s, "CreateFastDeltaIndex", engine.BuildRequest{
			Core:     c.Core,
			Mode:     model.ModeFastDelta,
			Optimize: c.Opts.DoOptimize,
		}, c.Opts.DoBackup, c.Core)
	})
}

func (c *IndexAndSwapCmd) Run(rt *Runtime) error {
	p := format.Params{
		Command:    "index-and-swap",
		LiveCore:   c.Live,
		StageCore:  c.Stage,
		DoBackup:   c.Opts.DoBackup,
		DoOptimize: c.Opts.DoOptimize,
	}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		return build(ctx, s, "CreateIndexAndSwap", engine.BuildRequest{
			Core:     c.Stage,
			LiveCore: c.Live,
			Mode:     model.ModeFull,
			Optimize: c.Opts.DoOptimize,
			Swap:     true,
		}, c.Opts.DoBackup, c.Live)
	})
}

func (c *WatchCmd) Run(rt *Runtime) error {
	return rt.invoke(format.Params{Command: "watch", Core: c.Core}, func(ctx context.Context, s *session) error {
		res, err := s.orch.Watch(ctx, engine.WatchRequest{
			Core:         c.Core,
			MaxDuration:  s.timeout,
			PollInterval: s.pollInterval,
		})
		if res != nil {
			s.outcome = string(res.Outcome)
		}
		return err
	})
}

func (c *SwapCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "swap", LiveCore: c.Live, StageCore: c.Stage}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		_, err := s.orch.Swap(ctx, c.Live, c.Stage)
		return err
	})
}

func (c *BackupCmd) Run(rt *Runtime) error {
	return rt.invoke(format.Params{Command: "backup", Core: c.Core}, func(ctx context.Context, s *session) error {
		return s.orch.Backup(ctx, c.Core)
	})
}

func (c *CommitCmd) Run(rt *Runtime) error {
	return rt.invoke(format.Params{Command: "commit", Core: c.Core}, func(ctx context.Context, s *session) error {
		if err := s.orch.Commit(ctx, c.Core); err != nil {
			return err
		}
		s.logger.Info("Successfully committed core "+c.Core, logfields.Core(c.Core))
		return nil
	})
}

// Run optimizes twice: the second pass cleans up the index directory left
// behind by the first.
func (c *OptimizeCmd) Run(rt *Runtime) error {
	return rt.invoke(format.Params{Command: "optimize", Core: c.Core}, func(ctx context.Context, s *session) error {
		for range 2 {
			if err := s.orch.Optimize(ctx, c.Core); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *StatusCmd) Run(rt *Runtime) error {
	return rt.invoke(format.Params{Command: "status", Core: c.Core}, func(ctx context.Context, s *session) error {
		st, err := s.orch.Status(ctx, c.Core)
		if err != nil {
			return err
		}
		s.logger.Info(format.CoreSummary(st))
		return nil
	})
}

func (c *CompareCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "compare", LiveCore: c.Live, StageCore: c.Stage}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		live, stage, err := s.orch.Compare(ctx, c.Live, c.Stage)
		if err != nil {
			return err
		}
		s.logger.Info(format.CompareSummary(live, stage))
		return nil
	})
}

func (c *VersionCmd) Run(rt *Runtime) error {
	return rt.invoke(format.Params{Command: "version", Core: c.Core}, func(ctx context.Context, s *session) error {
		v, err := s.orch.Version(ctx, c.Core)
		if err != nil {
			return err
		}
		s.logger.Info(fmt.Sprintf("The current version for core %s is %s", c.Core, v),
			logfields.Core(c.Core), logfields.Version(v))
		return nil
	})
}

// errVersionUnchanged fails a standalone increment that did not move the
// index version.
var errVersionUnchanged = errors.New("index version did not change")

func (c *IncrementVersionCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "increment-version", Core: c.Core}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		bump, err := s.orch.IncrementVersion(ctx, c.Core)
		if err != nil {
			return err
		}
		if !bump.Changed {
			s.outcome = string(model.OutcomeVersionUnchanged)
			return fmt.Errorf("core %s: %w", c.Core, errVersionUnchanged)
		}
		return nil
	})
}

// Run compares index version and document count of two cores. Cores that
// differ fail the invocation so the error mail goes out.
func (c *CheckEqualCmd) Run(rt *Runtime) error {
	p := format.Params{Command: "check-equal", Core: c.Core, Core2: c.Core2}
	if c.Server2 != "" {
		base, _, _, err := parseServerURI(c.Server2)
		if err != nil {
			return err
		}
		p.Server2 = base
	}
	return rt.invoke(p, func(ctx context.Context, s *session) error {
		other := engine.Target{Client: s.client, Core: c.Core2}
		if c.Server2 != "" {
			c2, err := rt.newClient(c.Server2)
			if err != nil {
				return err
			}
			other.Client = c2
		}

		cmp, err := s.orch.CheckEqual(ctx, c.Core, other)
		if err != nil {
			return err
		}
		s.logger.Info(format.CompareSummary(cmp.Left, cmp.Right))

		verdict := "are equal."
		if !cmp.Equal {
			verdict = "are NOT equal."
		}
		s.targets = fmt.Sprintf("%s %s and %s %s %s",
			cmp.Left.Server, c.Core, cmp.Right.Server, c.Core2, verdict)
		return nil
	})
}
