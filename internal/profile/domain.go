package profile

import "time"

// Role classifies what kind of account an identity holds.
type Role string

const (
	RoleUser       Role = "user"
	RoleVendor     Role = "vendor"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// Valid reports whether the role is one of the known identity classes.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVendor, RoleTechnician, RoleAdmin:
		return true
	}
	return false
}

// RequiresApproval reports whether accounts of this role must pass the
// approval workflow before their dashboard is trusted.
func (r Role) RequiresApproval() bool {
	return r == RoleVendor || r == RoleTechnician
}

// ApprovalStatus tracks the vendor/technician approval workflow.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether the approval status is a known value.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// AccountStatus tracks whether an account may use the platform at all.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

// Valid reports whether the account status is a known value.
func (s AccountStatus) Valid() bool {
	return s == AccountActive || s == AccountSuspended
}

// Profile is the authoritative role/approval/status record for an identity.
// Exactly one profile exists per identity; role, approval status and account
// status are mutated only through administrator-privileged operations.
type Profile struct {
	ID             string
	Email          string
	Name           string
	Phone          string
	City           string
	Role           Role
	ApprovalStatus ApprovalStatus
	AccountStatus  AccountStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DefaultApprovalFor returns the approval status a freshly provisioned
// profile starts with. Vendors and technicians start pending; everyone
// else is approved immediately.
func DefaultApprovalFor(role Role) ApprovalStatus {
	if role.RequiresApproval() {
		return ApprovalPending
	}
	return ApprovalApproved
}
