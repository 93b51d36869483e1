package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists and reads audit events.
type Store interface {
	Insert(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actorID string, limit int, ascending bool) ([]Event, error)
	ListByActionPrefix(ctx context.Context, prefix string, limit int) ([]Event, error)
	RecentFailuresByActor(ctx context.Context, actorID string, window time.Duration) ([]Event, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// querier is the slice of pgxpool.Pool the store needs.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db querier
}

// NewStore constructs a PostgreSQL-backed audit store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool}
}

const eventColumns = `id, action, actor_id, target_id, status, reason, route, metadata, created_at`

// Insert appends an event row.
func (s *PGStore) Insert(ctx context.Context, event Event) error {
	if !event.Valid() {
		return errors.New("audit: event requires action/actor/status")
	}
	event.Fill(time.Now())
	metaJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO audit_events (id, action, actor_id, target_id, status, reason, route, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.Action, event.ActorID, nullable(event.TargetID), string(event.Status),
		nullable(event.Reason), nullable(event.Route), metaJSON, event.CreatedAt)
	return err
}

// ListByActor returns events for one actor ordered by creation time.
// Ascending order serves forensic replay, descending the latest-N view.
func (s *PGStore) ListByActor(ctx context.Context, actorID string, limit int, ascending bool) ([]Event, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	return s.list(ctx, `SELECT `+eventColumns+` FROM audit_events
WHERE actor_id = $1 ORDER BY created_at `+order+`, id `+order+` LIMIT $2`, actorID, clampLimit(limit))
}

// ListByActionPrefix returns the most recent events whose action starts
// with the given prefix.
func (s *PGStore) ListByActionPrefix(ctx context.Context, prefix string, limit int) ([]Event, error) {
	return s.list(ctx, `SELECT `+eventColumns+` FROM audit_events
WHERE action LIKE $1 || '%' ORDER BY created_at DESC, id DESC LIMIT $2`, prefix, clampLimit(limit))
}

// RecentFailuresByActor returns non-success events for an actor inside the
// given look-back window, most recent first. The cutoff is computed here
// and bound as a timestamp; pgx has no plan for encoding a time.Duration
// into a Postgres interval.
func (s *PGStore) RecentFailuresByActor(ctx context.Context, actorID string, window time.Duration) ([]Event, error) {
	cutoff := time.Now().Add(-window)
	return s.list(ctx, `SELECT `+eventColumns+` FROM audit_events
WHERE actor_id = $1 AND status <> 'success' AND created_at >= $2
ORDER BY created_at DESC, id DESC`, actorID, cutoff)
}

// PruneBefore deletes events older than the cutoff and reports how many
// rows went away. Retention is a worker concern, not a request concern.
func (s *PGStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var (
			e                     Event
			target, reason, route *string
			status                string
			metaJSON              []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorID, &target, &status, &reason, &route, &metaJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		if target != nil {
			e.TargetID = *target
		}
		if reason != nil {
			e.Reason = *reason
		}
		if route != nil {
			e.Route = *route
		}
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &e.Metadata)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

var _ Store = (*PGStore)(nil)
