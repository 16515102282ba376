package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dm/solrctl/internal/client"
	"github.com/dm/solrctl/internal/config"
	"github.com/dm/solrctl/internal/engine"
	"github.com/dm/solrctl/internal/format"
	"github.com/dm/solrctl/internal/history"
	"github.com/dm/solrctl/internal/logfields"
	"github.com/dm/solrctl/internal/logging"
	"github.com/dm/solrctl/internal/metrics"
	"github.com/dm/solrctl/internal/notify"
)

// newNotifier builds the mailer of an invocation. Tests replace it.
var newNotifier = notify.New

// Runtime is bound into every command's Run method. It carries the merged
// configuration and records the exit code of the invocation.
type Runtime struct {
	ctx    context.Context
	cli    *CLI
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	code   int
}

func newRuntime(ctx context.Context, cli *CLI, stdout, stderr io.Writer) (*Runtime, error) {
	cfg := config.Default()
	if cli.Config != "" {
		loaded, err := config.Load(cli.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cli.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runtime{ctx: ctx, cli: cli, cfg: cfg, stdout: stdout, stderr: stderr}, nil
}

// newClient builds a client for serverURI with the resolved credentials.
func (rt *Runtime) newClient(serverURI string) (*client.DefaultClient, error) {
	if serverURI == "" {
		return nil, fmt.Errorf("server URI is required (--server, SOLR_URI or the server key of the configuration file)")
	}
	base, user, pass, err := parseServerURI(serverURI)
	if err != nil {
		return nil, err
	}
	user, pass = resolveCredentials(user, pass, rt.cfg.Username, rt.cfg.Password, rt.cli.User, rt.cli.Password)
	return client.NewDefaultClient(client.ClientConfig{
		BaseURL:            base,
		Username:           user,
		Password:           pass,
		InsecureSkipVerify: rt.cfg.InsecureSkipVerify,
		RequestTimeout:     rt.cfg.RequestTimeout,
		UserAgent:          "solrctl/" + version,
	})
}

func (rt *Runtime) engineOptions() []engine.Option {
	var opts []engine.Option
	if rt.cfg.MaxVersionBumps > 0 {
		opts = append(opts, engine.WithMaxVersionBumps(rt.cfg.MaxVersionBumps))
	}
	if rt.cfg.Sentinel.ID != "" || len(rt.cfg.Sentinel.Fields) > 0 {
		opts = append(opts, engine.WithSentinel(rt.cfg.Sentinel.ID, rt.cfg.Sentinel.Fields))
	}
	if rt.cfg.CursorKey != "" {
		opts = append(opts, engine.WithCursorKey(rt.cfg.CursorKey))
	}
	return opts
}

func (rt *Runtime) logOptions(console io.Writer) logging.Options {
	return logging.Options{
		Level:      rt.cfg.Log.Level,
		Console:    console,
		File:       rt.cfg.Log.File,
		MaxSizeMB:  rt.cfg.Log.MaxSizeMB,
		MaxBackups: rt.cfg.Log.MaxBackups,
		MaxAgeDays: rt.cfg.Log.MaxAgeDays,
		Compress:   rt.cfg.Log.Compress,
	}
}

// params fills the invocation settings shown in notification mails.
func (rt *Runtime) params(p format.Params) format.Params {
	p.PollInterval = rt.cfg.PollInterval
	p.Timeout = rt.cfg.Timeout
	p.Notify = rt.cfg.Notify.Policy
	p.NotifyTo = rt.cfg.Notify.To
	p.NotifyFrom = rt.cfg.Notify.From
	p.SMTPHost = rt.cfg.Notify.SMTPHost
	return p
}

// session is one administrative invocation against a Solr server.
type session struct {
	log    *logging.Log
	logger *zap.Logger
	orch   *engine.Orchestrator
	client client.SolrClient

	pollInterval time.Duration
	timeout      time.Duration

	// targets is the subject suffix of the notification mail.
	targets string
	// outcome overrides the succeeded/failed classification in run history.
	outcome string
}

// summary logs a titled block of text, the way status tables are reported.
func (s *session) summary(title, body string) {
	s.log.Blank()
	s.logger.Info(title)
	s.logger.Info(strings.Repeat("-", len(title)) + body)
}

// task is the body of an administrative command.
type task func(ctx context.Context, s *session) error

// invoke runs fn with a fresh log and orchestrator, then notifies, records
// the run and writes metrics. A failure of fn sets exit code 4; invoke itself
// only returns errors that prevented the run from starting.
func (rt *Runtime) invoke(p format.Params, fn task) error {
	started := time.Now()

	log, err := logging.New(rt.logOptions(rt.stderr))
	if err != nil {
		return err
	}
	defer log.Close()

	runID := history.NewRunID()
	logger := log.Logger
	logger.Info("Solr Command Utility "+version, logfields.RunID(runID), logfields.Command(p.Command))

	var recorder *metrics.PrometheusRecorder
	opts := rt.engineOptions()
	if rt.cfg.Metrics.Textfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, engine.WithRecorder(recorder))
	}

	p = rt.params(p)
	s := &session{
		log:          log,
		logger:       logger,
		pollInterval: rt.cfg.PollInterval,
		timeout:      rt.cfg.Timeout,
	}

	c, err := rt.newClient(rt.cfg.Server)
	if err == nil {
		p.Server = c.BaseURL()
		s.client = c
		s.orch = engine.New(c, logger, opts...)
		err = fn(rt.ctx, s)
	}
	if err != nil && !log.HasError() {
		logger.Error(err.Error())
	}

	failed := err != nil || log.HasError()
	rt.code = exitOK
	if failed {
		rt.code = exitFailure
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(rt.cfg.Metrics.Textfile, time.Now()); err != nil {
			logger.Warn("Failed to write metrics", logfields.Path(rt.cfg.Metrics.Textfile), logfields.Error(err))
		}
	}

	if s.targets == "" {
		s.targets = targets(p)
	}
	rt.notify(s, p, failed)

	outcome := s.outcome
	if outcome == "" {
		outcome = "succeeded"
		if failed {
			outcome = "failed"
		}
	}
	rt.record(&history.Run{
		ID:         runID,
		Command:    p.Command,
		Server:     p.Server,
		Cores:      cores(p),
		Outcome:    outcome,
		ExitCode:   rt.code,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Log:        log.Text(),
	}, logger)
	return nil
}

func (rt *Runtime) notify(s *session, p format.Params, failed bool) {
	policy, err := notify.ParsePolicy(rt.cfg.Notify.Policy)
	if err != nil {
		s.logger.Warn(err.Error() + "; using All")
	}
	n := newNotifier(notify.Config{
		From:        rt.cfg.Notify.From,
		To:          rt.cfg.Notify.To,
		Host:        rt.cfg.Notify.SMTPHost,
		Port:        rt.cfg.Notify.SMTPPort,
		Credentials: rt.cfg.Notify.Credentials,
		Policy:      policy,
	})
	sent, err := n.Notify(notify.Message{
		Command:      p.Command,
		Targets:      s.targets,
		Failed:       failed,
		Warned:       s.log.Warnings() > 0,
		ParamSummary: format.ParamSummary(p),
		Log:          s.log.Text(),
	})
	switch {
	case err != nil && failed:
		s.logger.Error("Error sending error email", logfields.Error(err))
	case err != nil:
		s.logger.Error("Error sending confirmation email", logfields.Error(err))
	case sent:
		s.logger.Info("Notification sent to " + rt.cfg.Notify.To)
	}
}

func (rt *Runtime) record(run *history.Run, logger *zap.Logger) {
	if rt.cfg.History.Path == "" {
		return
	}
	store, err := history.Open(rt.cfg.History.Path)
	if err != nil {
		logger.Warn("Failed to open run history", logfields.Path(rt.cfg.History.Path), logfields.Error(err))
		return
	}
	defer store.Close()
	if err := store.Record(context.WithoutCancel(rt.ctx), run); err != nil {
		logger.Warn("Failed to record run", logfields.RunID(run.ID), logfields.Error(err))
	}
}

func cores(p format.Params) string {
	var out []string
	for _, c := range []string{p.Core, p.StageCore, p.LiveCore, p.Core2} {
		if c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, ", ")
}

func targets(p format.Params) string {
	return strings.TrimSpace(p.Server + " " + cores(p))
}
