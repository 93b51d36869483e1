package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Service menyediakan kontrak baca untuk operator di atas audit log.
type Service struct {
	store Store
}

// NewService membuat service audit baru.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// EventsForActor mengambil jejak audit satu aktor.
func (s *Service) EventsForActor(ctx context.Context, actorID string, limit int, ascending bool) ([]Event, error) {
	if s.store == nil {
		return nil, fmt.Errorf("audit: store not configured")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, fmt.Errorf("audit: actor id required")
	}
	return s.store.ListByActor(ctx, actorID, limit, ascending)
}

// EventsByActionPrefix mengambil event terbaru berdasarkan prefiks aksi.
func (s *Service) EventsByActionPrefix(ctx context.Context, prefix string, limit int) ([]Event, error) {
	if s.store == nil {
		return nil, fmt.Errorf("audit: store not configured")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("audit: action prefix required")
	}
	return s.store.ListByActionPrefix(ctx, prefix, limit)
}

// RecentFailuresForActor mengambil kegagalan aktor dalam jendela waktu.
func (s *Service) RecentFailuresForActor(ctx context.Context, actorID string, windowMinutes int) ([]Event, error) {
	if s.store == nil {
		return nil, fmt.Errorf("audit: store not configured")
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, fmt.Errorf("audit: actor id required")
	}
	if windowMinutes <= 0 {
		windowMinutes = 60
	}
	return s.store.RecentFailuresByActor(ctx, actorID, time.Duration(windowMinutes)*time.Minute)
}
