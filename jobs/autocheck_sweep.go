package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian/internal/checklist"
)

// CheckRunner runs the advisory auto-checks for one period.
type CheckRunner interface {
	RunAllAutoChecks(ctx context.Context, periodID int64) ([]checklist.CheckOutcome, error)
}

// AutoCheckSweepJob refreshes auto-check results for in-progress periods so
// the morning dashboard shows overnight reconciliation movement. Results are
// advisory; the sweep never changes item status.
type AutoCheckSweepJob struct {
	runner CheckRunner
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAutoCheckSweepJob constructs the sweep job.
func NewAutoCheckSweepJob(runner CheckRunner, pool *pgxpool.Pool, logger *slog.Logger) *AutoCheckSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoCheckSweepJob{runner: runner, pool: pool, logger: logger}
}

// Handle processes TaskAutoCheckSweep tasks.
func (j *AutoCheckSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AutoCheckSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	periodIDs := []int64{payload.PeriodID}
	if payload.PeriodID == 0 {
		ids, err := j.inProgressPeriods(ctx)
		if err != nil {
			return err
		}
		periodIDs = ids
	}

	for _, periodID := range periodIDs {
		outcomes, err := j.runner.RunAllAutoChecks(ctx, periodID)
		if err != nil {
			// One period failing must not starve the rest of the sweep.
			j.logger.Error("auto check sweep", slog.Int64("period_id", periodID), slog.Any("error", err))
			continue
		}
		passed := 0
		for _, o := range outcomes {
			if o.Err == nil && o.Result.Passed {
				passed++
			}
		}
		j.logger.Info("auto check sweep",
			slog.Int64("period_id", periodID),
			slog.Int("checks", len(outcomes)),
			slog.Int("passed", passed))
	}
	return nil
}

func (j *AutoCheckSweepJob) inProgressPeriods(ctx context.Context) ([]int64, error) {
	rows, err := j.pool.Query(ctx, `SELECT id FROM accounting_periods WHERE status = 'IN_PROGRESS' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
