package decaysweep

import "time"

const (
	WorkflowName  = "decay_sweep"
	ActivitySweep = "decay_sweep_run"

	// ScheduleWorkflowID is the fixed ID of the cron workflow, so restarts attach
	// to the running schedule instead of starting a second one.
	ScheduleWorkflowID = "mastery-decay-sweep"
)

type SweepResult struct {
	Scanned    int           `json:"scanned"`
	Decayed    int           `json:"decayed"`
	Skipped    int           `json:"skipped"`
	Conflicts  int           `json:"conflicts"`
	Failed     int           `json:"failed"`
	DurationMS int64         `json:"duration_ms"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"-"`
}
