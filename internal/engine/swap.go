package engine

import (
	"context"
	"fmt"

	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/model"
)

// Swap exchanges the live and stage cores. The stage core must hold
// documents and its index version must end up strictly above the live
// version; it is bumped with sentinel writes until it is.
func (o *Orchestrator) Swap(ctx context.Context, live, stage string) (*model.SwapResult, error) {
	if live == "" || stage == "" {
		err := preconditionError(stage, "cannot swap: live and stage core names are required")
		o.log.Error(err.Error())
		return nil, err
	}
	if live == stage {
		err := preconditionError(stage, "cannot swap a core with itself")
		o.log.Error(err.Error())
		return nil, err
	}
	st, err := FetchCoreStatus(ctx, o.client, stage)
	if err != nil {
		e := transportError(stage, "could not determine core status", err)
		o.log.Error(e.Error(), logfields.Core(stage))
		return nil, e
	}
	return o.swap(ctx, live, st)
}

func (o *Orchestrator) swap(ctx context.Context, live string, stage *model.CoreStatus) (*model.SwapResult, error) {
	res := &model.SwapResult{LiveCore: live, StageCore: stage.Core}

	refuse := func(err *Error) (*model.SwapResult, error) {
		o.recorder.IncSwap(false)
		o.log.Error(err.Error(), logfields.Core(stage.Core), logfields.LiveCore(live))
		return res, err
	}

	if stage.DocumentCount == 0 {
		return refuse(preconditionError(stage.Core, "the current document count is zero; refusing to swap"))
	}

	liveStatus, err := FetchCoreStatus(ctx, o.client, live)
	if err != nil {
		return refuse(transportError(live, "could not determine core status", err))
	}

	version := stage.IndexVersion
	for {
		cmp, numeric := model.CompareVersions(version, liveStatus.IndexVersion)
		if !numeric {
			o.log.Warn("Index versions are not integers; comparing them as text",
				logfields.Core(stage.Core), logfields.Version(version), logfields.LiveCore(live))
		}
		if cmp > 0 {
			break
		}
		if len(res.Bumps) >= o.maxBumps {
			return refuse(&Error{
				Kind: KindVersion,
				Core: stage.Core,
				Message: fmt.Sprintf("index version %s is still not above live core %s version %s after %d increments",
					version, live, liveStatus.IndexVersion, len(res.Bumps)),
			})
		}
		o.log.Info(fmt.Sprintf("Index version %s of core %s is not above %s of core %s; incrementing",
			version, stage.Core, liveStatus.IndexVersion, live), logfields.Attempt(len(res.Bumps)+1))

		bump, err := o.IncrementVersion(ctx, stage.Core)
		if bump != nil {
			res.Bumps = append(res.Bumps, *bump)
		}
		if err != nil {
			o.recorder.IncSwap(false)
			return res, err
		}
		version = bump.After
	}

	cmd := SwapCommand(live, stage.Core)
	o.log.Info(fmt.Sprintf("Preparing to swap cores %s and %s with command %s", live, stage.Core, cmd),
		logfields.Core(stage.Core), logfields.LiveCore(live))
	if _, err := o.client.Execute(ctx, cmd); err != nil {
		return refuse(transportError(stage.Core, "swap command failed", err))
	}

	res.Swapped = true
	o.recorder.IncSwap(true)
	o.log.Info(fmt.Sprintf("Swap cores completed at %s", o.now().Format("2006-01-02 15:04:05")),
		logfields.Core(stage.Core), logfields.LiveCore(live))
	return res, nil
}
