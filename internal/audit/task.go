package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskRecord is the asynq task type carrying one audit event.
const TaskRecord = "audit:record"

// recordQueue keeps audit persistence ahead of housekeeping jobs.
const recordQueue = "critical"

// NewRecordTask wraps an event into an asynq task.
func NewRecordTask(event Event) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecord, payload), nil
}

// TaskPrune is the periodic retention task.
const TaskPrune = "audit:prune"

type prunePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewPruneTask builds the retention task for the scheduler.
func NewPruneTask(retentionDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(prunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPrune, payload), nil
}

// PruneTaskHandler deletes events past the retention window.
func PruneTaskHandler(store Store, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p prunePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return asynq.SkipRetry
		}
		if p.RetentionDays <= 0 {
			p.RetentionDays = 90
		}
		cutoff := time.Now().AddDate(0, 0, -p.RetentionDays)
		removed, err := store.PruneBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("audit retention sweep",
				slog.Int64("removed", removed),
				slog.Time("cutoff", cutoff),
			)
		}
		return nil
	}
}

// RecordTaskHandler returns the worker handler persisting queued events.
func RecordTaskHandler(store Store) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event Event
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		if !event.Valid() {
			return asynq.SkipRetry
		}
		return store.Insert(ctx, event)
	}
}
