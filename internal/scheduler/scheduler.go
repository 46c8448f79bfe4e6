package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a scheduled task. Its context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

// New creates a scheduler evaluating specs in loc.
func New(loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
}

// Add registers job under spec. An empty spec disables the job.
func (s *Scheduler) Add(spec, name string, job Job) error {
	if spec == "" {
		s.log.Info("⏸️ job disabled", zap.String("job", name))
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("💥 scheduled job panicked", zap.String("job", name), zap.Any("panic", p))
		}
	}()
	s.log.Info("🕘 running scheduled job", zap.String("job", name))
	if err := job(s.ctx); err != nil {
		s.log.Warn("❌ scheduled job failed", zap.String("job", name), zap.Error(err))
	}
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("📅 scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs and cancels their context.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	s.log.Info("📅 scheduler stopped")
}

// IsRunning reports whether any job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
