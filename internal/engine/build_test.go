package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/model"
)

func newTestOrchestrator(f *fakeSolr, clock *fakeClock, opts ...Option) (*Orchestrator, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	all := append([]Option{WithClock(clock.Now), WithSleeper(clock.Sleep)}, opts...)
	return New(f, zap.New(core), all...), logs
}

func idle(version string, docs int64, processed string) step {
	return step{Status: "idle", Version: version, Docs: docs, Processed: processed}
}

func busy(elapsed string) step {
	return step{Status: "busy", Elapsed: elapsed, Fetched: "10", Processed: "5", Docs: 1000}
}

func TestBuild_GuardRejectsNonIdle(t *testing.T) {
	for _, status := range []string{"busy", "Error: write lock held", ""} {
		t.Run("status="+status, func(t *testing.T) {
			f := newFakeSolr()
			f.core("stage", step{Status: status, Version: "5", Docs: 1000})
			o, _ := newTestOrchestrator(f, newFakeClock())

			res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeDelta})
			require.Error(t, err)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, KindPrecondition, kind)
			assert.Equal(t, model.OutcomeRejected, res.Outcome)
			assert.Contains(t, err.Error(), "try again later")
			assert.Empty(t, f.sent("", ""), "no command may be issued")
			assert.Equal(t, 0, f.readTextHits)
		})
	}
}

func TestGuard_RejectsBackupAndIncrementWhenBusy(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", busy("0:1:0"))
	o, _ := newTestOrchestrator(f, newFakeClock())

	err := o.Backup(context.Background(), "stage")
	kind, _ := KindOf(err)
	assert.Equal(t, KindPrecondition, kind)

	bump, err := o.IncrementVersion(context.Background(), "stage")
	assert.Nil(t, bump)
	kind, _ = KindOf(err)
	assert.Equal(t, KindPrecondition, kind)

	assert.Empty(t, f.sent("", ""))
}

func TestGuard_FetchFailureRejects(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", step{Err: errMockFailure})
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.Error(t, err)
	assert.ErrorIs(t, err, errMockFailure)
	assert.Equal(t, model.OutcomeRejected, res.Outcome)
	assert.Empty(t, f.imports())
}

func TestBuild_ValidatesRequest(t *testing.T) {
	f := newFakeSolr()
	o, _ := newTestOrchestrator(f, newFakeClock())

	cases := []BuildRequest{
		{Mode: model.ModeFull},
		{Core: "stage", Mode: model.ModeWatch},
		{Core: "stage", Mode: model.ModeFull, Swap: true},
		{Core: "stage", LiveCore: "stage", Mode: model.ModeFull, Swap: true},
	}
	for _, req := range cases {
		res, err := o.Build(context.Background(), req)
		kind, _ := KindOf(err)
		assert.Equal(t, KindPrecondition, kind, "%+v", req)
		assert.Equal(t, model.OutcomeRejected, res.Outcome)
	}
	assert.Empty(t, f.sent("", ""))
}

func TestBuild_FullSucceeds(t *testing.T) {
	f := newFakeSolr()
	f.core("stage",
		idle("5", 1000, "0"),
		busy("0:0:30"),
		idle("6", 1200, "1200"),
	)
	clock := newFakeClock()
	o, _ := newTestOrchestrator(f, clock)

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", Mode: model.ModeFull, Optimize: true,
		MaxDuration: 10 * time.Minute, PollInterval: 30 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, "6", res.Final.IndexVersion)
	assert.Equal(t, "5", res.Session.Baseline.IndexVersion)
	assert.Equal(t, 2, res.Session.Polls)
	assert.Equal(t, []time.Duration{30 * time.Second}, clock.sleeps)

	imports := f.imports()
	require.Len(t, imports, 1)
	q := imports[0].Params
	assert.Equal(t, "full-import", q.Get("command"))
	assert.Equal(t, "true", q.Get("clean"))
	assert.Equal(t, "true", q.Get("optimize"))
	assert.Equal(t, "true", q.Get("commit"))
	assert.Equal(t, model.EpochCursor, q.Get("last_index_time"))
	assert.Equal(t, 0, f.readTextHits, "full builds do not read the cursor")
}

func TestBuild_DeltaUsesCursor(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), idle("6", 1010, "10"))
	f.properties = []string{"#Thu May 03\nlast_index_time=2012-05-03 10\\:11\\:12\nitem.last_index_time=2012-05-03 10\\:11\\:00\n"}
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeDelta})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSucceeded, res.Outcome)

	imports := f.imports()
	require.Len(t, imports, 1)
	assert.Equal(t, "delta-import", imports[0].Params.Get("command"))
	assert.Equal(t, "false", imports[0].Params.Get("clean"))
	assert.Equal(t, "false", imports[0].Params.Get("optimize"))
	assert.Equal(t, "2012-05-03 10:11:12", imports[0].Params.Get("last_index_time"))
}

func TestBuild_DeltaMissingCursorFallsBackToEpoch(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), idle("6", 1010, "10"))
	f.readTextErr = errMockFailure
	o, logs := newTestOrchestrator(f, newFakeClock())

	_, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeDelta})
	require.NoError(t, err)
	imports := f.imports()
	require.Len(t, imports, 1)
	assert.Equal(t, model.EpochCursor, imports[0].Params.Get("last_index_time"))
	assert.NotZero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestBuild_FastDeltaReusesCapturedCursor(t *testing.T) {
	f := newFakeSolr()
	f.core("stage",
		idle("5", 1000, "0"), // guard
		busy("0:1:0"),        // phase 1 running
		idle("6", 1000, "3"), // phase 1 done
		busy("0:0:10"),       // phase 2 running
		idle("7", 1003, "3"), // phase 2 done
	)
	f.properties = []string{
		"last_index_time=2012-05-03 10\\:00\\:00\n",
		"last_index_time=2012-05-03 11\\:30\\:00\n", // written by phase 1
	}
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", Mode: model.ModeFastDelta, Optimize: true,
		MaxDuration: time.Hour, PollInterval: time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, f.readTextHits, "cursor is read once, before phase 1")
	assert.False(t, res.Session.PhaseOnePending)
	assert.Equal(t, "5", res.Session.Baseline.IndexVersion, "baseline is captured before phase 1")

	imports := f.imports()
	require.Len(t, imports, 2)

	phase1, phase2 := imports[0].Params, imports[1].Params
	assert.Equal(t, "delta-import", phase1.Get("command"))
	assert.Equal(t, "false", phase1.Get("optimize"), "optimize is deferred to phase 2")
	assert.Equal(t, "false", phase1.Get("clean"))

	assert.Equal(t, "full-import", phase2.Get("command"))
	assert.Equal(t, "false", phase2.Get("clean"))
	assert.Equal(t, "true", phase2.Get("optimize"))

	assert.Equal(t, "2012-05-03 10:00:00", phase1.Get("last_index_time"))
	assert.Equal(t, phase1.Get("last_index_time"), phase2.Get("last_index_time"))
}

func TestBuild_FastDeltaSharesOneTimeBudget(t *testing.T) {
	f := newFakeSolr()
	f.core("stage",
		idle("5", 1000, "0"),
		busy("0:4:0"), busy("0:8:0"), // phase 1: 8 minutes
		idle("6", 1000, "3"),
		busy("0:4:0"), busy("0:8:0"), // phase 2 would need 8 more
		idle("7", 1003, "3"),
	)
	clock := newFakeClock()
	o, _ := newTestOrchestrator(f, clock)

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", Mode: model.ModeFastDelta,
		MaxDuration: 10 * time.Minute, PollInterval: 4 * time.Minute,
	})
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindTimeout, kind)
	assert.Equal(t, model.OutcomeTimeout, res.Outcome)

	// phase 1 polls at 0, 4 and 8; phase 2 at 8 and 12, which is past 10
	assert.Equal(t, 5, res.Session.Polls)
	assert.Len(t, f.imports(), 2, "phase 2 was issued before the budget ran out")
}

func TestBuild_NumericallyEqualVersionIsUnchanged(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("0005", 1000, "0"), idle("5", 1000, "1000"))
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeVersionUnchanged, res.Outcome)
}

func TestBuild_ZeroDocumentsIsRollbackNotTimeout(t *testing.T) {
	f := newFakeSolr()
	f.core("stage",
		idle("5", 1000, "0"),
		busy("0:1:0"),
		busy("0:5:0"),
		idle("6", 0, "1000"),
	)
	clock := newFakeClock()
	o, _ := newTestOrchestrator(f, clock)

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", Mode: model.ModeFull,
		MaxDuration: 10 * time.Minute, PollInterval: 2 * time.Minute,
	})
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindBuild, kind)
	assert.Equal(t, model.OutcomeRollback, res.Outcome)
	assert.Contains(t, res.Reason, "zero documents")
	assert.Equal(t, 3, res.Session.Polls)
}

func TestBuild_TimeoutStopsPolling(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), busy("0:1:0"))
	clock := newFakeClock()
	o, _ := newTestOrchestrator(f, clock)

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", Mode: model.ModeFull,
		MaxDuration: 10 * time.Minute, PollInterval: 3 * time.Minute,
	})
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindTimeout, kind)
	assert.Equal(t, model.OutcomeTimeout, res.Outcome)
	assert.Contains(t, err.Error(), "10 minutes")

	// polls at 0, 3, 6, 9 and 12 minutes; the last one exceeds the limit
	assert.Equal(t, 5, res.Session.Polls)
	assert.Len(t, clock.sleeps, 4)
	assert.Equal(t, 6, f.statusCalls["stage"], "guard plus five polls, nothing after the timeout")
}

func TestBuild_NoDocumentsProcessedIsNoop(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), idle("5", 1000, "0"))
	f.core("live", idle("4", 900, "0"))
	o, logs := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", LiveCore: "live", Mode: model.ModeDelta, Swap: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeNoop, res.Outcome)
	assert.False(t, res.Outcome.Failed())
	assert.Nil(t, res.Swap)
	assert.Empty(t, f.sent("action", "SWAP"))
	assert.NotZero(t, logs.FilterMessage("We did not find any documents to process").Len())
}

func TestBuild_RolledbackMarker(t *testing.T) {
	f := newFakeSolr()
	rolled := idle("6", 1000, "10")
	rolled.Rolledback = "2012-05-03 10:12:00"
	f.core("stage", idle("5", 1000, "0"), rolled)
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.Error(t, err)
	assert.Equal(t, model.OutcomeRollback, res.Outcome)
	assert.Contains(t, res.Reason, "rolled back")
}

func TestBuild_ClassificationPriority(t *testing.T) {
	f := newFakeSolr()
	final := idle("6", 0, "0")
	final.Rolledback = "2012-05-03 10:12:00"
	f.core("stage", idle("5", 1000, "0"), final)
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.Error(t, err)
	assert.Equal(t, model.OutcomeRollback, res.Outcome)
	assert.Contains(t, res.Reason, "zero documents", "zero documents wins over the other markers")
}

func TestBuild_VersionUnchangedBlocksSwap(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), idle("5", 1000, "1000"))
	f.core("live", idle("3", 1000, "0"))
	o, logs := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", LiveCore: "live", Mode: model.ModeFull, Swap: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeVersionUnchanged, res.Outcome)
	assert.Nil(t, res.Swap)
	assert.Empty(t, f.sent("action", "SWAP"))
	assert.NotZero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestBuild_SwapBumpsStageAboveLive(t *testing.T) {
	f := newFakeSolr()
	stage := f.core("stage",
		idle("5", 1000, "0"),
		busy("0:1:0"),
		idle("", 1000, "1000"),
	)
	stage.version = 7
	stage.bumpBy = 1
	f.core("live", idle("7", 900, "0"))
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{
		Core: "stage", LiveCore: "live", Mode: model.ModeFull, Swap: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSucceeded, res.Outcome)
	require.NotNil(t, res.Swap)
	assert.True(t, res.Swap.Swapped)
	require.Len(t, res.Swap.Bumps, 1)
	assert.Equal(t, "7", res.Swap.Bumps[0].Before)
	assert.Equal(t, "9", res.Swap.Bumps[0].After)

	swaps := f.sent("action", "SWAP")
	require.Len(t, swaps, 1)
	assert.Equal(t, "live", swaps[0].Params.Get("core"))
	assert.Equal(t, "stage", swaps[0].Params.Get("other"))

	all := f.sent("", "")
	assert.Equal(t, "SWAP", all[len(all)-1].Params.Get("action"), "swap is issued after the bump")
}

func TestBuild_DispatchErrorStillPolls(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), idle("6", 1001, "1"))
	f.executeErr = func(_ client.Command) error { return errMockFailure }
	o, logs := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSucceeded, res.Outcome)
	assert.NotZero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestBuild_FetchFailureDuringPollIsServerError(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), step{Err: errMockFailure})
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindTransport, kind)
	assert.Equal(t, model.OutcomeServerError, res.Outcome)
	assert.Equal(t, 1, res.Session.Polls)
}

func TestBuild_UnexpectedStatusIsServerError(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), step{Status: "Error: lock obtain timed out", Docs: 1000})
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.Error(t, err)
	assert.Equal(t, model.OutcomeServerError, res.Outcome)
	assert.Contains(t, err.Error(), "lock obtain timed out")
}

func TestBuild_ContextCancelledWhileSleeping(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), busy("0:1:0"))
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	o, _ := newTestOrchestrator(f, clock, WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	res, err := o.Build(ctx, BuildRequest{Core: "stage", Mode: model.ModeFull})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.OutcomeServerError, res.Outcome)
}

func TestWatch_UsesCurrentSnapshotAsBaseline(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", busy("0:1:0"), busy("0:2:0"), idle("8", 2000, "2000"))
	o, _ := newTestOrchestrator(f, newFakeClock())

	res, err := o.Watch(context.Background(), WatchRequest{Core: "stage", MaxDuration: time.Hour, PollInterval: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSucceeded, res.Outcome)
	assert.Equal(t, model.ModeWatch, res.Session.Mode)
	assert.Empty(t, f.imports(), "watch issues no commands")
}

func TestWatch_RecordsMetrics(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", busy("0:1:0"), busy("0:2:0"), idle("8", 2000, "2000"))
	rec := &recordingRecorder{}
	o, _ := newTestOrchestrator(f, newFakeClock(), WithRecorder(rec))

	_, err := o.Watch(context.Background(), WatchRequest{Core: "stage", PollInterval: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.polls)
	assert.Equal(t, []string{"watch/succeeded"}, rec.outcomes)
	assert.Equal(t, int64(2000), rec.docs)
}

func TestBuild_RecordsMetrics(t *testing.T) {
	f := newFakeSolr()
	f.core("stage", idle("5", 1000, "0"), busy("0:0:10"), idle("6", 1001, "1"))
	rec := &recordingRecorder{}
	o, _ := newTestOrchestrator(f, newFakeClock(), WithRecorder(rec))

	_, err := o.Build(context.Background(), BuildRequest{Core: "stage", Mode: model.ModeDelta})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.polls)
	assert.Equal(t, []string{"delta/succeeded"}, rec.outcomes)
	assert.Equal(t, int64(1001), rec.docs)
}

type recordingRecorder struct {
	polls    int
	outcomes []string
	docs     int64
	bumps    int
	swaps    []bool
}

func (r *recordingRecorder) ObserveBuildDuration(string, time.Duration) {}
func (r *recordingRecorder) IncBuildOutcome(mode, outcome string) {
	r.outcomes = append(r.outcomes, mode+"/"+outcome)
}
func (r *recordingRecorder) IncPolls(string) { r.polls++ }
func (r *recordingRecorder) SetCoreStatus(_ string, docs int64, _ float64) {
	r.docs = docs
}
func (r *recordingRecorder) IncVersionBump(string, bool) { r.bumps++ }
func (r *recordingRecorder) IncSwap(swapped bool)       { r.swaps = append(r.swaps, swapped) }
