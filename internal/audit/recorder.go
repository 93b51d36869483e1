package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder appends audit events. Record never returns an error and never
// blocks the security decision: a logging outage degrades forensics, it
// must not degrade availability or open a bypass.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// AsyncRecorder hands events to the asynq queue where the worker persists
// them with bounded retries. When the queue is unreachable it falls back
// to a direct best-effort insert; events lost on both paths increment the
// dropped counter so silent audit loss stays observable.
type AsyncRecorder struct {
	client  *asynq.Client
	store   Store
	logger  *slog.Logger
	dropped prometheus.Counter
}

// NewAsyncRecorder constructs an AsyncRecorder. The store may be nil when
// no direct fallback is available.
func NewAsyncRecorder(client *asynq.Client, store Store, logger *slog.Logger, dropped prometheus.Counter) *AsyncRecorder {
	return &AsyncRecorder{client: client, store: store, logger: logger, dropped: dropped}
}

// Record enqueues the event. Invalid events are dropped and counted.
func (r *AsyncRecorder) Record(ctx context.Context, event Event) {
	event.Fill(time.Now())
	if !event.Valid() {
		r.drop("invalid event", event, nil)
		return
	}
	// The decision has already been made at this point; a request abort
	// must not lose its trail.
	ctx = context.WithoutCancel(ctx)

	task, err := NewRecordTask(event)
	if err != nil {
		r.drop("encode", event, err)
		return
	}
	if r.client != nil {
		if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(recordQueue), asynq.MaxRetry(5), asynq.Timeout(10*time.Second)); err == nil {
			return
		} else {
			r.log("enqueue audit event", event, err)
		}
	}
	if r.store == nil {
		r.drop("no fallback store", event, nil)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := r.store.Insert(ctx, event); err != nil {
			r.drop("fallback insert", event, err)
		}
	}()
}

func (r *AsyncRecorder) drop(stage string, event Event, err error) {
	if r.dropped != nil {
		r.dropped.Inc()
	}
	r.log("audit event dropped: "+stage, event, err)
}

func (r *AsyncRecorder) log(msg string, event Event, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Error(msg,
		slog.String("action", event.Action),
		slog.String("actor", event.ActorID),
		slog.Any("error", err),
	)
}

// StoreRecorder writes events synchronously. Used in tests and in
// deployments that run without the worker.
type StoreRecorder struct {
	store   Store
	logger  *slog.Logger
	dropped prometheus.Counter
}

// NewStoreRecorder constructs a StoreRecorder.
func NewStoreRecorder(store Store, logger *slog.Logger, dropped prometheus.Counter) *StoreRecorder {
	return &StoreRecorder{store: store, logger: logger, dropped: dropped}
}

// Record inserts the event directly, swallowing failures into the counter.
func (r *StoreRecorder) Record(ctx context.Context, event Event) {
	event.Fill(time.Now())
	if !event.Valid() {
		r.count()
		return
	}
	if err := r.store.Insert(context.WithoutCancel(ctx), event); err != nil {
		r.count()
		if r.logger != nil {
			r.logger.Error("audit insert", slog.String("action", event.Action), slog.Any("error", err))
		}
	}
}

func (r *StoreRecorder) count() {
	if r.dropped != nil {
		r.dropped.Inc()
	}
}

var (
	_ Recorder = (*AsyncRecorder)(nil)
	_ Recorder = (*StoreRecorder)(nil)
)
