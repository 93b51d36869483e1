package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/pasarhub/pasarhub/internal/audit"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
	_ "github.com/pasarhub/pasarhub/testing"
)

type memoryProfiles struct {
	profiles map[string]*profile.Profile
}

func newMemoryProfiles(seed ...*profile.Profile) *memoryProfiles {
	m := &memoryProfiles{profiles: make(map[string]*profile.Profile)}
	for _, p := range seed {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *memoryProfiles) Find(ctx context.Context, id string) (*profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *memoryProfiles) ProvisionDefault(ctx context.Context, id, email string, requested profile.Role) (*profile.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		clone := *p
		return &clone, nil
	}
	if !requested.Valid() || requested == profile.RoleAdmin {
		requested = profile.RoleUser
	}
	p := &profile.Profile{ID: id, Email: email, Role: requested, ApprovalStatus: profile.DefaultApprovalFor(requested), AccountStatus: profile.AccountActive}
	m.profiles[id] = p
	clone := *p
	return &clone, nil
}

func (m *memoryProfiles) UpdateSelf(ctx context.Context, id string, name, phone, city string) (*profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	p.Name, p.Phone, p.City = name, phone, city
	clone := *p
	return &clone, nil
}

func (m *memoryProfiles) SetApproval(ctx context.Context, id string, status profile.ApprovalStatus) error {
	p, ok := m.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.ApprovalStatus = status
	return nil
}

func (m *memoryProfiles) SetAccountStatus(ctx context.Context, id string, status profile.AccountStatus) error {
	p, ok := m.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.AccountStatus = status
	return nil
}

func (m *memoryProfiles) SetRole(ctx context.Context, id string, role profile.Role) error {
	p, ok := m.profiles[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Role = role
	return nil
}

func (m *memoryProfiles) ListByApproval(ctx context.Context, status profile.ApprovalStatus, limit int) ([]profile.Profile, error) {
	var out []profile.Profile
	for _, p := range m.profiles {
		if p.ApprovalStatus == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

type stubRevoker struct {
	revoked []string
	err     error
}

func (s *stubRevoker) RevokeUserSessions(ctx context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return s.err
}

type recordSink struct {
	events []audit.Event
}

func (r *recordSink) Record(ctx context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func pendingVendor(id string) *profile.Profile {
	return &profile.Profile{ID: id, Role: profile.RoleVendor, ApprovalStatus: profile.ApprovalPending, AccountStatus: profile.AccountActive}
}

func TestApprovePendingVendor(t *testing.T) {
	profiles := newMemoryProfiles(pendingVendor("v-1"))
	sink := &recordSink{}
	svc := NewService(profiles, nil, sink, nil)

	if err := svc.Approve(context.Background(), "admin-1", "v-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := profiles.profiles["v-1"].ApprovalStatus; got != profile.ApprovalApproved {
		t.Fatalf("approval status = %s", got)
	}
	if len(sink.events) != 1 || sink.events[0].Action != "admin.approval.approve" || sink.events[0].TargetID != "v-1" {
		t.Fatalf("unexpected audit trail %+v", sink.events)
	}
}

func TestRejectPendingTechnician(t *testing.T) {
	profiles := newMemoryProfiles(&profile.Profile{ID: "t-1", Role: profile.RoleTechnician, ApprovalStatus: profile.ApprovalPending, AccountStatus: profile.AccountActive})
	sink := &recordSink{}
	svc := NewService(profiles, nil, sink, nil)

	if err := svc.Reject(context.Background(), "admin-1", "t-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := profiles.profiles["t-1"].ApprovalStatus; got != profile.ApprovalRejected {
		t.Fatalf("approval status = %s", got)
	}
}

func TestApproveRejectsRolesWithoutWorkflow(t *testing.T) {
	profiles := newMemoryProfiles(&profile.Profile{ID: "u-1", Role: profile.RoleUser, ApprovalStatus: profile.ApprovalApproved, AccountStatus: profile.AccountActive})
	svc := NewService(profiles, nil, nil, nil)

	if err := svc.Approve(context.Background(), "admin-1", "u-1"); !errors.Is(err, ErrNotApprovable) {
		t.Fatalf("expected ErrNotApprovable, got %v", err)
	}
	if err := svc.Approve(context.Background(), "admin-1", "ghost"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSuspendRevokesLiveSessions(t *testing.T) {
	profiles := newMemoryProfiles(pendingVendor("v-1"))
	revoker := &stubRevoker{}
	sink := &recordSink{}
	svc := NewService(profiles, revoker, sink, nil)

	if err := svc.Suspend(context.Background(), "admin-1", "v-1"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if got := profiles.profiles["v-1"].AccountStatus; got != profile.AccountSuspended {
		t.Fatalf("account status = %s", got)
	}
	if len(revoker.revoked) != 1 || revoker.revoked[0] != "v-1" {
		t.Fatalf("sessions not revoked: %v", revoker.revoked)
	}
	if len(sink.events) != 1 || sink.events[0].Action != "admin.account.suspend" {
		t.Fatalf("unexpected audit trail %+v", sink.events)
	}
}

func TestSuspendSucceedsWhenRevocationFails(t *testing.T) {
	profiles := newMemoryProfiles(pendingVendor("v-1"))
	revoker := &stubRevoker{err: errors.New("redis down")}
	svc := NewService(profiles, revoker, nil, nil)

	// The status flip is the security boundary; session cleanup is
	// best effort.
	if err := svc.Suspend(context.Background(), "admin-1", "v-1"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if got := profiles.profiles["v-1"].AccountStatus; got != profile.AccountSuspended {
		t.Fatalf("account status = %s", got)
	}
}

func TestReinstate(t *testing.T) {
	p := pendingVendor("v-1")
	p.AccountStatus = profile.AccountSuspended
	profiles := newMemoryProfiles(p)
	svc := NewService(profiles, nil, nil, nil)

	if err := svc.Reinstate(context.Background(), "admin-1", "v-1"); err != nil {
		t.Fatalf("reinstate: %v", err)
	}
	if got := profiles.profiles["v-1"].AccountStatus; got != profile.AccountActive {
		t.Fatalf("account status = %s", got)
	}
}

func TestSetRoleRestartsApprovalWorkflow(t *testing.T) {
	profiles := newMemoryProfiles(&profile.Profile{ID: "u-1", Role: profile.RoleUser, ApprovalStatus: profile.ApprovalApproved, AccountStatus: profile.AccountActive})
	sink := &recordSink{}
	svc := NewService(profiles, nil, sink, nil)

	if err := svc.SetRole(context.Background(), "admin-1", "u-1", profile.RoleVendor); err != nil {
		t.Fatalf("set role: %v", err)
	}
	p := profiles.profiles["u-1"]
	if p.Role != profile.RoleVendor || p.ApprovalStatus != profile.ApprovalPending {
		t.Fatalf("expected pending vendor, got %+v", p)
	}

	// Moving back to a role without a workflow approves immediately.
	if err := svc.SetRole(context.Background(), "admin-1", "u-1", profile.RoleUser); err != nil {
		t.Fatalf("set role back: %v", err)
	}
	if p.ApprovalStatus != profile.ApprovalApproved {
		t.Fatalf("expected approved user, got %+v", p)
	}

	if err := svc.SetRole(context.Background(), "admin-1", "u-1", "superuser"); err == nil {
		t.Fatalf("invalid role must be rejected")
	}
}

func TestPendingApprovals(t *testing.T) {
	profiles := newMemoryProfiles(
		pendingVendor("v-1"),
		pendingVendor("v-2"),
		&profile.Profile{ID: "u-1", Role: profile.RoleUser, ApprovalStatus: profile.ApprovalApproved, AccountStatus: profile.AccountActive},
	)
	svc := NewService(profiles, nil, nil, nil)

	pending, err := svc.PendingApprovals(context.Background(), 50)
	if err != nil {
		t.Fatalf("pending approvals: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
}
