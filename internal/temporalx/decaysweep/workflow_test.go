package decaysweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type stubSweeper struct {
	report services.SweepReport
	errs   []error
	calls  int
}

func (s *stubSweeper) Sweep(context.Context) (services.SweepReport, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return services.SweepReport{}, err
		}
	}
	return s.report, nil
}

func newEnv(t *testing.T, sw services.DecaySweeper) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	acts := &Activities{Log: logger.Nop(), Sweeper: sw}
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Sweep, activity.RegisterOptions{Name: ActivitySweep})
	return env
}

func TestWorkflowReturnsSweepCounts(t *testing.T) {
	sw := &stubSweeper{report: services.SweepReport{Scanned: 4, Decayed: 3, Skipped: 1, Duration: 1500 * time.Millisecond}}
	env := newEnv(t, sw)

	env.ExecuteWorkflow(WorkflowName)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res SweepResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, 3, res.Decayed)
	assert.Equal(t, int64(1500), res.DurationMS)
}

func TestWorkflowRetriesTransientFailures(t *testing.T) {
	sw := &stubSweeper{
		report: services.SweepReport{Scanned: 1, Decayed: 1},
		errs:   []error{errors.New("connection reset")},
	}
	env := newEnv(t, sw)

	env.ExecuteWorkflow(WorkflowName)
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, 2, sw.calls)
}

func TestWorkflowDoesNotRetryConfigurationErrors(t *testing.T) {
	sw := &stubSweeper{errs: []error{
		domainagg.NewError(domainagg.CodeConfiguration, "sweep", "bad params", nil),
	}}
	env := newEnv(t, sw)

	env.ExecuteWorkflow(WorkflowName)
	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
	assert.Equal(t, 1, sw.calls)
}
