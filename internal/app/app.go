package app

import (
	"context"
	"fmt"
	"time"

	types "github.com/yungbote/neurobridge-mastery/internal/domain"
	httpx "github.com/yungbote/neurobridge-mastery/internal/http"
	"github.com/yungbote/neurobridge-mastery/internal/jobs/scheduler"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/platform/redisx"
	"github.com/yungbote/neurobridge-mastery/internal/services"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  *Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

type Options struct {
	// WithTemporal dials Temporal when it is configured. Only serve needs it.
	WithTemporal bool
	// Migrate runs AutoMigrate before wiring.
	Migrate bool
}

func New(ctx context.Context, cfg Config, opts Options) (*App, error) {
	log, err := logger.NewWithLevel(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log, cfg.Metrics)

	clients, err := wireClients(ctx, log, cfg, opts.WithTemporal)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if opts.Migrate {
		if err := clients.DB.AutoMigrateAll(); err != nil {
			clients.Close(ctx)
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	db := clients.DB.DB()
	reposet := wireRepos(db, log)
	serviceset := wireServices(db, log, cfg, reposet, clients, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Serve runs the HTTP API and the decay schedule until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if err := a.Cfg.ValidateAuth(); err != nil {
		return err
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.Clients.DB.DB())
	if rdb := a.Clients.redisUniversal(); rdb != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, rdb)
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.Metrics.Addr)

	if err := a.startSweepSchedule(ctx); err != nil {
		return err
	}

	srv := httpx.NewServer(a.Cfg.HTTP, wireRouterConfig(a.Log, a.Cfg, a.Services, a.Clients, a.Metrics))
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
	return srv.Run(ctx)
}

// startSweepSchedule hands the daily sweep to Temporal when it is configured,
// and to the in-process cron otherwise.
func (a *App) startSweepSchedule(ctx context.Context) error {
	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Services.Sweeper)
		if err != nil {
			return err
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		return runner.EnsureSchedule(ctx)
	}
	if !a.Cfg.Scheduler.Enabled {
		a.Log.Warn("decay sweep schedule disabled")
		return nil
	}
	var lease *redisx.Lease
	if rdb := a.Clients.redisUniversal(); rdb != nil {
		lease = redisx.NewLease(rdb, a.Cfg.Scheduler.LeaseKey, scheduler.LeaseOwner(), a.Cfg.Scheduler.LeaseTTL)
	}
	return scheduler.New(a.Log, a.Cfg.Scheduler, a.Services.Sweeper, lease).Start(ctx)
}

// SweepOnce runs a single decay pass under the sweep lease.
func (a *App) SweepOnce(ctx context.Context) (services.SweepReport, bool, error) {
	var lease *redisx.Lease
	if rdb := a.Clients.redisUniversal(); rdb != nil {
		lease = redisx.NewLease(rdb, a.Cfg.Scheduler.LeaseKey, scheduler.LeaseOwner(), a.Cfg.Scheduler.LeaseTTL)
	}
	return scheduler.New(a.Log, a.Cfg.Scheduler, a.Services.Sweeper, lease).RunOnce(ctx)
}

// TriggerSweep asks the Temporal worker pool to run one sweep and waits for it.
func (a *App) TriggerSweep(ctx context.Context) (services.SweepReport, error) {
	if a.Clients.Temporal == nil {
		return services.SweepReport{}, fmt.Errorf("temporal is not configured")
	}
	runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Cfg.Temporal, a.Services.Sweeper)
	if err != nil {
		return services.SweepReport{}, err
	}
	res, err := runner.TriggerSweep(ctx)
	if err != nil {
		return services.SweepReport{}, err
	}
	return services.SweepReport{
		StartedAt: res.StartedAt,
		Scanned:   res.Scanned,
		Decayed:   res.Decayed,
		Skipped:   res.Skipped,
		Conflicts: res.Conflicts,
		Failed:    res.Failed,
		Duration:  time.Duration(res.DurationMS) * time.Millisecond,
	}, nil
}

// Migrate creates or updates every table the engine owns.
func (a *App) Migrate() error {
	a.Log.Info("Running migrations", "tables", len(types.Models()))
	return a.Clients.DB.AutoMigrateAll()
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.Clients.Close(ctx)
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
