package decaysweep

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs a single decay sweep. It is started as a cron workflow, so each
// scheduled firing is a fresh run with its own history.
func Workflow(ctx workflow.Context) (SweepResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var res SweepResult
	if err := workflow.ExecuteActivity(ctx, ActivitySweep).Get(ctx, &res); err != nil {
		return SweepResult{}, err
	}
	workflow.GetLogger(ctx).Info("decay sweep finished",
		"scanned", res.Scanned,
		"decayed", res.Decayed,
		"conflicts", res.Conflicts,
		"failed", res.Failed,
	)
	return res, nil
}
