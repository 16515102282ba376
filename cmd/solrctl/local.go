package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-co-op/gocron/v2"

	"github.com/dm/solrctl/internal/history"
	"github.com/dm/solrctl/internal/logging"
	"github.com/dm/solrctl/internal/schedule"
	"github.com/dm/solrctl/internal/tui"
)

func (c *MonitorCmd) Run(rt *Runtime) error {
	if len(c.Cores) == 0 || len(c.Cores) > 2 {
		return fmt.Errorf("monitor takes one or two cores, got %d", len(c.Cores))
	}
	if c.Interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	cl, err := rt.newClient(rt.cfg.Server)
	if err != nil {
		return err
	}
	app := tui.NewApp(cl, c.Interval, c.Cores...)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(rt.ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && rt.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}

func (c *HistoryCmd) Run(rt *Runtime) error {
	if rt.cfg.History.Path == "" {
		return fmt.Errorf("no history database configured (--history or history.path)")
	}
	store, err := history.Open(rt.cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if c.ID != "" {
		run, err := store.Get(rt.ctx, c.ID)
		if err != nil {
			return err
		}
		writeRun(rt.stdout, run)
		return nil
	}

	runs, err := store.Recent(rt.ctx, c.Limit)
	if err != nil {
		return err
	}
	writeRuns(rt.stdout, runs)
	return nil
}

func writeRuns(w io.Writer, runs []history.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tCOMMAND\tCORES\tOUTCOME\tEXIT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Duration().Round(time.Second),
			r.Command, r.Cores, r.Outcome, r.ExitCode)
	}
	tw.Flush()
}

func writeRun(w io.Writer, r *history.Run) {
	fmt.Fprintf(w, "Run %s: %s on %s (%s)\n", r.ID, r.Command, r.Server, r.Cores)
	fmt.Fprintf(w, "Started %s, finished %s, outcome %s, exit code %d\n\n",
		r.StartedAt.Format("2006-01-02 15:04:05"), r.FinishedAt.Format("2006-01-02 15:04:05"), r.Outcome, r.ExitCode)
	fmt.Fprint(w, r.Log)
}

// Run registers the configured jobs and runs them until the context ends.
// Each job is a full invocation with its own log, mail and history entry.
func (c *ScheduleCmd) Run(rt *Runtime) error {
	if len(rt.cfg.Jobs) == 0 {
		return fmt.Errorf("no jobs configured")
	}

	log, err := logging.New(rt.logOptions(rt.stderr))
	if err != nil {
		return err
	}
	defer log.Close()

	globals := rt.cli.globalArgs()
	run := func(ctx context.Context, args []string) int {
		return execute(ctx, append(append([]string{}, globals...), args...), rt.stdout, rt.stderr)
	}

	sched, err := schedule.New(rt.ctx, run, log.Logger, gocron.WithStopTimeout(rt.cfg.Timeout))
	if err != nil {
		return err
	}
	for _, j := range rt.cfg.Jobs {
		if err := sched.Add(schedule.Job{Name: j.Name, Cron: j.Cron, Args: j.Args}); err != nil {
			return err
		}
	}

	if c.List {
		fmt.Fprintln(rt.stdout, strings.Join(sched.Names(), "\n"))
		return sched.Stop()
	}

	sched.Start()
	if c.RunNow {
		if err := sched.RunAll(); err != nil {
			_ = sched.Stop()
			return err
		}
	}
	<-rt.ctx.Done()
	return sched.Stop()
}
