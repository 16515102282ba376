// Package schedule runs configured invocations on cron schedules.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/dm/solrctl/internal/logfields"
)

// Job is one scheduled invocation: a cron expression and the command line
// arguments to run.
type Job struct {
	Name string
	Cron string
	Args []string
}

// RunFunc executes the arguments of a job and returns its exit code.
type RunFunc func(ctx context.Context, args []string) int

// Scheduler wraps a gocron scheduler. Jobs never overlap: at most one
// invocation runs at a time across all jobs.
type Scheduler struct {
	scheduler gocron.Scheduler
	run       RunFunc
	log       *zap.Logger
	ctx       context.Context
}

// New creates a scheduler that hands due jobs to run.
func New(ctx context.Context, run RunFunc, log *zap.Logger, opts ...gocron.SchedulerOption) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts = append([]gocron.SchedulerOption{gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait)}, opts...)
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, run: run, log: log, ctx: ctx}, nil
}

// Add registers jobs. A job whose cron expression does not parse is an error.
func (s *Scheduler) Add(jobs ...Job) error {
	for _, j := range jobs {
		if len(j.Args) == 0 {
			return fmt.Errorf("job %s: no arguments", j.Name)
		}
		_, err := s.scheduler.NewJob(
			gocron.CronJob(j.Cron, false),
			gocron.NewTask(s.execute, j),
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", j.Name, err)
		}
		s.log.Info("Scheduled job", logfields.Job(j.Name), zap.String("cron", j.Cron),
			logfields.Command(strings.Join(j.Args, " ")))
	}
	return nil
}

// Names returns the registered job names, sorted.
func (s *Scheduler) Names() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.log.Info("Starting scheduler", zap.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// RunAll queues every job for immediate execution.
func (s *Scheduler) RunAll() error {
	for _, j := range s.scheduler.Jobs() {
		if err := j.RunNow(); err != nil {
			return fmt.Errorf("run job %s: %w", j.Name(), err)
		}
	}
	return nil
}

// Stop waits for a running job to finish and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	s.log.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) execute(j Job) {
	if err := s.ctx.Err(); err != nil {
		return
	}
	s.log.Info("Executing scheduled job", logfields.Job(j.Name), logfields.Command(strings.Join(j.Args, " ")))
	code := s.run(s.ctx, j.Args)
	if code != 0 {
		s.log.Error("Scheduled job failed", logfields.Job(j.Name), zap.Int("exit_code", code))
		return
	}
	s.log.Info("Scheduled job finished", logfields.Job(j.Name))
}
