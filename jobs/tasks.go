package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAutoCheckSweep runs every auto-check for in-progress periods.
	TaskAutoCheckSweep = "checklist:auto_check_sweep"
)

// AutoCheckSweepPayload carries scheduling metadata. A zero PeriodID means
// sweep every in-progress period.
type AutoCheckSweepPayload struct {
	PeriodID     int64     `json:"period_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewAutoCheckSweepTask constructs an Asynq task for the nightly sweep.
func NewAutoCheckSweepTask(payload AutoCheckSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoCheckSweep, body, asynq.Queue(QueueDefault)), nil
}
