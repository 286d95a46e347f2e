package decaysweep

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type Activities struct {
	Log     *logger.Logger
	Sweeper services.DecaySweeper
}

// Sweep runs one full decay pass. Non-retryable domain errors are surfaced as
// application errors so the workflow does not loop on them.
func (a *Activities) Sweep(ctx context.Context) (SweepResult, error) {
	if a == nil || a.Sweeper == nil {
		return SweepResult{}, temporal.NewNonRetryableApplicationError("decay sweeper not configured", "configuration", nil)
	}
	info := activity.GetInfo(ctx)
	if a.Log != nil {
		a.Log.Info("decay sweep activity started", "workflow_id", info.WorkflowExecution.ID, "attempt", info.Attempt)
	}

	ctx = ctxutil.WithCorrelation(ctx, ctxutil.Correlation{
		Source:    ctxutil.SourceDecaySweep,
		RequestID: info.WorkflowExecution.RunID,
	})
	report, err := a.Sweeper.Sweep(ctx)
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeConfiguration) || domainagg.IsCode(err, domainagg.CodeValidation) {
			return SweepResult{}, temporal.NewNonRetryableApplicationError(err.Error(), string(domainagg.CodeOf(err)), err)
		}
		return SweepResult{}, fmt.Errorf("decay sweep: %w", err)
	}
	return SweepResult{
		Scanned:    report.Scanned,
		Decayed:    report.Decayed,
		Skipped:    report.Skipped,
		Conflicts:  report.Conflicts,
		Failed:     report.Failed,
		DurationMS: report.Duration.Milliseconds(),
		StartedAt:  report.StartedAt,
		Duration:   report.Duration,
	}, nil
}
