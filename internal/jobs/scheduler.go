// Package jobs runs the periodic background tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named task with a cron schedule ("@every 1m", "0 6 * * *", ...).
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]Job
	log     zerolog.Logger
	timeout time.Duration
	started bool
}

// NewScheduler returns an empty scheduler. Each run gets timeout as deadline.
func NewScheduler(l zerolog.Logger, timeout time.Duration) *Scheduler {
	l = l.With().Str("component", "jobs").Logger()
	cl := cronLogger{l}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		jobs:    make(map[string]Job),
		log:     l,
		timeout: timeout,
	}
}

// Register adds a job. Names are unique and must be registered before Start.
func (s *Scheduler) Register(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("jobs: scheduler already started, cannot register %q", j.Name)
	}
	if _, ok := s.jobs[j.Name]; ok {
		return fmt.Errorf("jobs: duplicate job %q", j.Name)
	}
	if _, err := cron.ParseStandard(j.Schedule); err != nil {
		return fmt.Errorf("jobs: invalid schedule %q for %q: %w", j.Schedule, j.Name, err)
	}
	if _, err := s.cron.AddFunc(j.Schedule, func() { s.execute(j) }); err != nil {
		return err
	}
	s.jobs[j.Name] = j
	return nil
}

// Jobs lists the registered jobs by name.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// RunOnce executes one job immediately, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("jobs: unknown job %q", name)
	}
	return j.Run(ctx)
}

func (s *Scheduler) execute(j Job) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Error().Err(err).Str("job", j.Name).Msg("job falló")
		return
	}
	s.log.Debug().Str("job", j.Name).Dur("took", time.Since(start)).Msg("job completado")
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.jobs)).Msg("scheduler iniciado")
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("jobs en curso no terminaron antes del apagado")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
