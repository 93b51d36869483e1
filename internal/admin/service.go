// Package admin owns the profile state transitions: the approval workflow
// and account suspension. The authorization core only classifies profile
// state; every mutation of that state funnels through here, behind the
// admin route guard, and leaves an audit trail.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/platform/httpx"
	"github.com/pasarhub/pasarhub/internal/profile"
)

// ErrNotApprovable is returned when the target role has no approval
// workflow.
var ErrNotApprovable = fmt.Errorf("role does not require approval: %w", httpx.ErrValidation)

// SessionRevoker cuts all live sessions of a user.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) error
}

// Service executes administrator transitions on profiles.
type Service struct {
	profiles profile.Store
	sessions SessionRevoker
	recorder audit.Recorder
	logger   *slog.Logger
}

// NewService constructs the admin Service. sessions may be nil.
func NewService(profiles profile.Store, sessions SessionRevoker, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{profiles: profiles, sessions: sessions, recorder: recorder, logger: logger}
}

// PendingApprovals lists vendor/technician profiles awaiting review.
func (s *Service) PendingApprovals(ctx context.Context, limit int) ([]profile.Profile, error) {
	return s.profiles.ListByApproval(ctx, profile.ApprovalPending, limit)
}

// Approve moves a pending vendor/technician to approved.
func (s *Service) Approve(ctx context.Context, actorID, targetID string) error {
	return s.setApproval(ctx, actorID, targetID, profile.ApprovalApproved, "admin.approval.approve")
}

// Reject moves a pending vendor/technician to rejected.
func (s *Service) Reject(ctx context.Context, actorID, targetID string) error {
	return s.setApproval(ctx, actorID, targetID, profile.ApprovalRejected, "admin.approval.reject")
}

// Suspend blocks the account and revokes its live sessions so the
// suspension takes effect immediately, not at the next claims refresh.
func (s *Service) Suspend(ctx context.Context, actorID, targetID string) error {
	if err := s.profiles.SetAccountStatus(ctx, targetID, profile.AccountSuspended); err != nil {
		return err
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeUserSessions(ctx, targetID); err != nil && s.logger != nil {
			// The profile flip already blocks re-login; keep going.
			s.logger.Warn("revoke sessions on suspend", slog.String("target", targetID), slog.Any("error", err))
		}
	}
	s.record(ctx, "admin.account.suspend", actorID, targetID, "")
	return nil
}

// Reinstate reactivates a suspended account.
func (s *Service) Reinstate(ctx context.Context, actorID, targetID string) error {
	if err := s.profiles.SetAccountStatus(ctx, targetID, profile.AccountActive); err != nil {
		return err
	}
	s.record(ctx, "admin.account.reinstate", actorID, targetID, "")
	return nil
}

// SetRole changes the identity class of an account. A move into an
// approval-gated role restarts the workflow at pending.
func (s *Service) SetRole(ctx context.Context, actorID, targetID string, role profile.Role) error {
	if !role.Valid() {
		return errors.New("admin: invalid role")
	}
	if err := s.profiles.SetRole(ctx, targetID, role); err != nil {
		return err
	}
	if err := s.profiles.SetApproval(ctx, targetID, profile.DefaultApprovalFor(role)); err != nil {
		return err
	}
	s.record(ctx, "admin.role.change", actorID, targetID, string(role))
	return nil
}

func (s *Service) setApproval(ctx context.Context, actorID, targetID string, status profile.ApprovalStatus, action string) error {
	target, err := s.profiles.Find(ctx, targetID)
	if err != nil {
		return err
	}
	if !target.Role.RequiresApproval() {
		return ErrNotApprovable
	}
	if err := s.profiles.SetApproval(ctx, targetID, status); err != nil {
		return err
	}
	s.record(ctx, action, actorID, targetID, string(status))
	return nil
}

func (s *Service) record(ctx context.Context, action, actorID, targetID, reason string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, audit.Event{
		Action:   action,
		ActorID:  actorID,
		TargetID: targetID,
		Status:   audit.StatusSuccess,
		Reason:   reason,
	})
}
