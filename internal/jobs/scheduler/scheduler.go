package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/redisx"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

// Config is the `schedule` config section.
type Config struct {
	Enabled   bool          `koanf:"enabled"`
	SweepCron string        `koanf:"sweep_cron"`
	LeaseKey  string        `koanf:"lease_key"`
	LeaseTTL  time.Duration `koanf:"lease_ttl" validate:"gte=0"`
	// RunTimeout bounds a single sweep.
	RunTimeout time.Duration `koanf:"run_timeout" validate:"gte=0"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SweepCron) == "" {
		c.SweepCron = "15 3 * * *"
	}
	if strings.TrimSpace(c.LeaseKey) == "" {
		c.LeaseKey = "mastery:lease:decay-sweep"
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 30 * time.Minute
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = c.LeaseTTL
	}
	return c
}

// Scheduler runs the decay sweep in-process on a cron schedule. It is used when
// Temporal is not configured. A redis lease keeps replicas from sweeping at the
// same time; without redis every replica sweeps and the per-row CAS absorbs
// the overlap.
type Scheduler struct {
	log     *logger.Logger
	cfg     Config
	sweeper services.DecaySweeper
	lease   *redisx.Lease

	cron *gocron.Scheduler

	mu      sync.Mutex
	baseCtx context.Context
}

func New(baseLog *logger.Logger, cfg Config, sweeper services.DecaySweeper, lease *redisx.Lease) *Scheduler {
	return &Scheduler{
		log:     baseLog.With("component", "DecayScheduler"),
		cfg:     cfg.withDefaults(),
		sweeper: sweeper,
		lease:   lease,
		cron:    gocron.NewScheduler(time.UTC),
		baseCtx: context.Background(),
	}
}

// LeaseOwner identifies this process as a lease holder.
func LeaseOwner() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "mastery"
	}
	return host + ":" + uuid.NewString()
}

// Start registers the sweep job and starts the cron loop. The loop stops when
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.sweeper == nil {
		return fmt.Errorf("decay scheduler: sweeper is required")
	}
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.cron.SingletonModeAll()
	if _, err := s.cron.Cron(s.cfg.SweepCron).Do(s.tick); err != nil {
		return fmt.Errorf("decay scheduler: register cron %q: %w", s.cfg.SweepCron, err)
	}
	s.cron.StartAsync()
	s.log.Info("decay scheduler started", "cron", s.cfg.SweepCron)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron.IsRunning() {
		s.cron.Stop()
		s.log.Info("decay scheduler stopped")
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if _, ran, err := s.RunOnce(ctx); err != nil {
		s.log.Warn("scheduled decay sweep failed", "error", err)
	} else if !ran {
		s.log.Debug("decay sweep lease held elsewhere; skipping")
	}
}

// RunOnce sweeps under the lease. ran is false when another holder owns the
// lease.
func (s *Scheduler) RunOnce(ctx context.Context) (report services.SweepReport, ran bool, err error) {
	ok, err := s.lease.Acquire(ctx)
	if err != nil {
		return services.SweepReport{}, false, fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !ok {
		return services.SweepReport{}, false, nil
	}
	defer func() {
		if rerr := s.lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			s.log.Warn("release sweep lease failed", "error", rerr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("decay sweep panic", "panic", r)
			err = fmt.Errorf("decay sweep panic: %v", r)
		}
	}()
	runID := uuid.NewString()
	runCtx = ctxutil.WithCorrelation(runCtx, ctxutil.Correlation{Source: ctxutil.SourceDecaySweep, RequestID: runID})
	s.log.Info("decay sweep starting", "run_id", runID)
	ran = true
	report, err = s.sweeper.Sweep(runCtx)
	return report, ran, err
}
