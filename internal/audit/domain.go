package audit

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Status classifies the outcome of a security-relevant decision.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusUnauthorized Status = "unauthorized"
	StatusForbidden    Status = "forbidden"
)

// Event is one append-only audit record. Action, ActorID and Status are
// mandatory; the rest is optional context. Events are never updated or
// deleted by normal operation.
type Event struct {
	ID        string
	Action    string
	ActorID   string
	TargetID  string
	Status    Status
	Reason    string
	Route     string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Fill assigns the identifier and timestamp when the producer left them
// empty. ULIDs keep the append-only log time-ordered without a sequence.
func (e *Event) Fill(now time.Time) {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
}

// Valid reports whether the mandatory fields are present.
func (e Event) Valid() bool {
	return e.Action != "" && e.ActorID != "" && e.Status != ""
}
