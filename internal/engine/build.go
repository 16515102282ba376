package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dm/solrctl/internal/format"
	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/model"
)

// BuildRequest describes one index build.
type BuildRequest struct {
	Core         string
	LiveCore     string
	Mode         model.BuildMode
	Optimize     bool
	Swap         bool
	MaxDuration  time.Duration
	PollInterval time.Duration
}

// WatchRequest describes polling an import that is already running.
type WatchRequest struct {
	Core         string
	MaxDuration  time.Duration
	PollInterval time.Duration
}

// Build checks that the core is idle, issues the import and polls until the
// build reaches a terminal state. When Swap is set and the build changed the
// index, the stage core is swapped with LiveCore.
//
// The returned Result is non-nil whenever the core was reached. A non-nil
// error means the invocation failed; noop and version-unchanged outcomes
// return a nil error.
func (o *Orchestrator) Build(ctx context.Context, req BuildRequest) (*model.Result, error) {
	if err := req.validate(); err != nil {
		return o.reject(nil, nil, err)
	}

	baseline, err := o.guard(ctx, req.Core, "build "+req.Mode.String()+" index on core "+req.Core)
	if err != nil {
		return o.reject(nil, baseline, err)
	}

	sess := o.newSession(req.Core, baseline, req.MaxDuration, req.PollInterval)
	sess.LiveCore = req.LiveCore
	sess.Mode = req.Mode
	sess.Optimize = req.Optimize
	sess.Swap = req.Swap

	if req.Mode == model.ModeFull {
		sess.LastIndexTime = model.EpochCursor
	} else {
		sess.LastIndexTime = o.LastIndexTime(ctx, req.Core)
	}
	sess.PhaseOnePending = req.Mode == model.ModeFastDelta

	o.issue(ctx, sess)
	res, err := o.poll(ctx, sess)
	o.observe(sess, res)
	return res, err
}

// Watch polls an import that was started elsewhere. The current snapshot
// serves as the baseline and no idle check is made.
func (o *Orchestrator) Watch(ctx context.Context, req WatchRequest) (*model.Result, error) {
	if req.Core == "" {
		return o.reject(nil, nil, preconditionError("", "cannot watch: core name is required"))
	}
	baseline, err := FetchCoreStatus(ctx, o.client, req.Core)
	if err != nil {
		e := transportError(req.Core, "could not determine core status", err)
		o.log.Error(e.Error(), logfields.Core(req.Core))
		return &model.Result{Outcome: model.OutcomeServerError, Reason: e.Message}, e
	}
	sess := o.newSession(req.Core, baseline, req.MaxDuration, req.PollInterval)
	sess.Mode = model.ModeWatch
	res, err := o.poll(ctx, sess)
	o.observe(sess, res)
	return res, err
}

func (r BuildRequest) validate() error {
	switch {
	case r.Core == "":
		return preconditionError("", "cannot build index: stage core name is required")
	case r.Mode < model.ModeFull || r.Mode > model.ModeFastDelta:
		return preconditionError(r.Core, "unknown build mode %d", r.Mode)
	case r.Swap && r.LiveCore == "":
		return preconditionError(r.Core, "cannot swap after build: live core name is required")
	case r.Swap && r.LiveCore == r.Core:
		return preconditionError(r.Core, "live and stage core must differ")
	}
	return nil
}

func (o *Orchestrator) newSession(core string, baseline *model.CoreStatus, maxDuration, interval time.Duration) *model.Session {
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	now := o.now()
	return &model.Session{
		Server:         o.client.BaseURL(),
		Core:           core,
		Baseline:       baseline,
		StartedAt:    now,
		MaxDuration:  maxDuration,
		PollInterval: interval,
	}
}

// issue sends the import command for the session's current phase. The
// response is not inspected; the outcome is decided by polling.
func (o *Orchestrator) issue(ctx context.Context, s *model.Session) {
	cmd := phaseCommand(s)
	o.log.Info(fmt.Sprintf("Indexing core %s with command %s", s.Core, cmd),
		logfields.Core(s.Core), logfields.Cursor(s.LastIndexTime))
	if _, err := o.client.Execute(ctx, cmd); err != nil {
		o.log.Warn("import command returned an error; polling for the outcome",
			logfields.Core(s.Core), logfields.Error(err))
	}
}

// poll runs the completion state machine until a terminal state. Polls are
// strictly sequential: fetch, classify, then sleep before the next fetch.
func (o *Orchestrator) poll(ctx context.Context, s *model.Session) (*model.Result, error) {
	for {
		st, err := FetchCoreStatus(ctx, o.client, s.Core)
		s.Polls++
		o.recorder.IncPolls(s.Core)
		if err != nil {
			return o.fail(s, nil, model.OutcomeServerError,
				transportError(s.Core, "could not determine core status", err))
		}

		switch {
		case st.IsBusy():
			o.log.Info(format.ProgressLine(st), logfields.Core(s.Core))
			if o.now().Sub(s.StartedAt) > s.MaxDuration {
				return o.fail(s, st, model.OutcomeTimeout, &Error{
					Kind: KindTimeout,
					Core: s.Core,
					Message: fmt.Sprintf("the max time allowed for creating the index has exceeded %d minutes; aborting",
						int(s.MaxDuration/time.Minute)),
				})
			}
			if err := o.sleep(ctx, s.PollInterval); err != nil {
				return o.fail(s, st, model.OutcomeServerError,
					transportError(s.Core, "polling interrupted", err))
			}

		case st.IsIdle():
			if s.PhaseOnePending {
				s.PhaseOnePending = false
				o.log.Info("Processing step 2 of 2 for fast delta index", logfields.Core(s.Core))
				o.issue(ctx, s)
				continue
			}
			return o.classify(ctx, s, st)

		default:
			return o.fail(s, st, model.OutcomeServerError, &Error{
				Kind:    KindBuild,
				Core:    s.Core,
				Message: fmt.Sprintf("indexing error: server returned status %q; indexing aborted", st.Status),
			})
		}
	}
}

// classify decides the terminal outcome of an idle core against the
// session baseline. The checks run in a fixed priority order.
func (o *Orchestrator) classify(ctx context.Context, s *model.Session, st *model.CoreStatus) (*model.Result, error) {
	o.log.Info(format.ProgressLine(st), logfields.Core(s.Core))
	res := &model.Result{Session: s, Final: st}

	switch {
	case st.DocumentCount == 0:
		return o.fail(s, st, model.OutcomeRollback, &Error{
			Kind: KindBuild, Core: s.Core, Message: "create index failed: the index has zero documents",
		})
	case st.DocumentsProcessed == 0:
		res.Outcome = model.OutcomeNoop
		res.Reason = "no documents to process"
		o.log.Warn("We did not find any documents to process", logfields.Core(s.Core))
		return res, nil
	case st.IsRolledback():
		return o.fail(s, st, model.OutcomeRollback, &Error{
			Kind: KindBuild, Core: s.Core, Message: "create index failed: the index was rolled back at " + st.Rolledback,
		})
	}

	o.log.Info(fmt.Sprintf("Index created for core %s at %s, optimized at %s", s.Core, st.Committed, st.Optimized),
		logfields.Core(s.Core), logfields.Version(st.IndexVersion), logfields.DocCount(st.DocumentCount))

	if cmp, _ := model.CompareVersions(st.IndexVersion, s.Baseline.IndexVersion); cmp == 0 {
		res.Outcome = model.OutcomeVersionUnchanged
		res.Reason = "index version did not change"
		o.log.Warn(fmt.Sprintf("The index version did not change on core %s; the index may not have been created successfully", s.Core),
			logfields.Core(s.Core), logfields.Version(st.IndexVersion))
		if s.Swap {
			o.log.Warn("Swap skipped because the index did not change", logfields.Core(s.Core), logfields.LiveCore(s.LiveCore))
		}
		return res, nil
	}

	res.Outcome = model.OutcomeSucceeded
	if !s.Swap {
		return res, nil
	}
	sw, err := o.swap(ctx, s.LiveCore, st)
	res.Swap = sw
	if err != nil {
		res.Outcome = OutcomeOf(err)
		res.Reason = err.Error()
		return res, err
	}
	return res, nil
}

func (o *Orchestrator) fail(s *model.Session, st *model.CoreStatus, outcome model.Outcome, err *Error) (*model.Result, error) {
	o.log.Error(err.Error(), logfields.Core(err.Core), logfields.Outcome(string(outcome)))
	return &model.Result{Outcome: outcome, Reason: err.Message, Session: s, Final: st}, err
}

func (o *Orchestrator) reject(s *model.Session, st *model.CoreStatus, err error) (*model.Result, error) {
	o.log.Error(err.Error())
	return &model.Result{Outcome: model.OutcomeRejected, Reason: err.Error(), Session: s, Final: st}, err
}

func (o *Orchestrator) observe(s *model.Session, res *model.Result) {
	if res == nil {
		return
	}
	mode := s.Mode.String()
	o.recorder.ObserveBuildDuration(mode, o.now().Sub(s.StartedAt))
	o.recorder.IncBuildOutcome(mode, string(res.Outcome))
	if res.Final != nil {
		v, _ := strconv.ParseFloat(res.Final.IndexVersion, 64)
		o.recorder.SetCoreStatus(res.Final.Core, res.Final.DocumentCount, v)
	}
}
