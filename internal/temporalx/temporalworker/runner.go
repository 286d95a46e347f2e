package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx"
	"github.com/yungbote/neurobridge-mastery/internal/temporalx/decaysweep"
)

// Runner owns the Temporal worker that executes the decay sweep workflow.
type Runner struct {
	log *logger.Logger

	tc      temporalsdkclient.Client
	cfg     temporalx.Config
	sweeper services.DecaySweeper
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, sweeper services.DecaySweeper) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:     log.With("component", "TemporalWorker"),
		tc:      tc,
		cfg:     cfg.WithDefaults(),
		sweeper: sweeper,
	}, nil
}

// Start polls the task queue until ctx is done. Start failures are retried
// until DialMaxWait elapses.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	deadline := time.Now().Add(cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", cfg.Namespace, "error", err)
			}
		}

		if cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(temporalx.ClampBackoff(cfg.DialBackoff, cfg.DialBackoffMax, attempt)):
		}
	}
}

// EnsureSchedule starts the cron workflow for the decay sweep. An already
// running schedule is left in place.
func (r *Runner) EnsureSchedule(ctx context.Context) error {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:           decaysweep.ScheduleWorkflowID,
		TaskQueue:    r.cfg.TaskQueue,
		CronSchedule: r.cfg.SweepCron,
	}
	run, err := r.tc.ExecuteWorkflow(ctx, opts, decaysweep.WorkflowName)
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			r.log.Debug("decay sweep schedule already running", "workflow_id", decaysweep.ScheduleWorkflowID)
			return nil
		}
		return fmt.Errorf("start decay sweep schedule: %w", err)
	}
	r.log.Info("decay sweep schedule started", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "cron", r.cfg.SweepCron)
	return nil
}

// TriggerSweep starts a one-off sweep outside the cron schedule and waits for it.
func (r *Runner) TriggerSweep(ctx context.Context) (decaysweep.SweepResult, error) {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("%s-manual-%d", decaysweep.ScheduleWorkflowID, time.Now().UnixNano()),
		TaskQueue: r.cfg.TaskQueue,
	}
	run, err := r.tc.ExecuteWorkflow(ctx, opts, decaysweep.WorkflowName)
	if err != nil {
		return decaysweep.SweepResult{}, fmt.Errorf("start decay sweep: %w", err)
	}
	var res decaysweep.SweepResult
	if err := run.Get(ctx, &res); err != nil {
		return decaysweep.SweepResult{}, err
	}
	return res, nil
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})
	acts := &decaysweep.Activities{Log: r.log, Sweeper: r.sweeper}
	w.RegisterWorkflowWithOptions(decaysweep.Workflow, workflow.RegisterOptions{Name: decaysweep.WorkflowName})
	w.RegisterActivityWithOptions(acts.Sweep, activity.RegisterOptions{Name: decaysweep.ActivitySweep})
	return w
}
