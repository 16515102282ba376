package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/metrics"
	"github.com/dm/solrctl/internal/model"
)

const (
	DefaultMaxVersionBumps = 10
	DefaultSentinelID      = "changeMe"
	DefaultCursorKey       = "last_index_time"
	DefaultPollInterval    = 30 * time.Second
	DefaultMaxDuration     = 240 * time.Minute
)

// Orchestrator runs administrative operations against one Solr server.
// It holds no per-build state; each Build or Watch owns its own Session.
type Orchestrator struct {
	client   client.SolrClient
	log      *zap.Logger
	recorder metrics.Recorder

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	maxBumps       int
	sentinelID     string
	sentinelFields map[string]string
	cursorKey      string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock used for session timing.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleeper replaces the wait between polls.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithMaxVersionBumps bounds the increments a swap may issue.
func WithMaxVersionBumps(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxBumps = n
		}
	}
}

// WithSentinel sets the id and extra fields of the document used to bump
// the index version.
func WithSentinel(id string, fields map[string]string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.sentinelID = id
		}
		o.sentinelFields = fields
	}
}

// WithCursorKey sets the dataimport.properties key holding the last index time.
func WithCursorKey(key string) Option {
	return func(o *Orchestrator) {
		if key != "" {
			o.cursorKey = key
		}
	}
}

// New returns an Orchestrator using c. A nil logger discards output.
func New(c client.SolrClient, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		client:     c,
		log:        logger,
		recorder:   metrics.NoopRecorder{},
		now:        time.Now,
		sleep:      sleepContext,
		maxBumps:   DefaultMaxVersionBumps,
		sentinelID: DefaultSentinelID,
		cursorKey:  DefaultCursorKey,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status fetches a fresh snapshot of core.
func (o *Orchestrator) Status(ctx context.Context, core string) (*model.CoreStatus, error) {
	if core == "" {
		return nil, preconditionError("", "core name is required")
	}
	st, err := FetchCoreStatus(ctx, o.client, core)
	if err != nil {
		return nil, transportError(core, "could not determine core status", err)
	}
	return st, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
