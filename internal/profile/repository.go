package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pasarhub/pasarhub/internal/shared"
)

// Store defines persistence operations over profiles. Self-service and
// administrative mutations are separate methods on purpose: the self-service
// UPDATE statement never touches role, approval_status or account_status,
// so an owning identity cannot escalate itself regardless of what the
// handler layer lets through.
type Store interface {
	Find(ctx context.Context, id string) (*Profile, error)
	ProvisionDefault(ctx context.Context, id, email string, requested Role) (*Profile, error)
	UpdateSelf(ctx context.Context, id string, name, phone, city string) (*Profile, error)
	SetApproval(ctx context.Context, id string, status ApprovalStatus) error
	SetAccountStatus(ctx context.Context, id string, status AccountStatus) error
	SetRole(ctx context.Context, id string, role Role) error
	ListByApproval(ctx context.Context, status ApprovalStatus, limit int) ([]Profile, error)
}

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL-backed profile store.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const profileColumns = `id, email, name, phone, city, role, approval_status, account_status, created_at, updated_at`

// Find fetches a profile by identity id.
func (s *PGStore) Find(ctx context.Context, id string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

// ProvisionDefault creates the profile row for a freshly authenticated
// identity when none exists yet. The insert is an idempotent upsert: under
// concurrent first-request provisioning only one row wins and every caller
// reads back the authoritative row afterwards.
func (s *PGStore) ProvisionDefault(ctx context.Context, id, email string, requested Role) (*Profile, error) {
	if !requested.Valid() || requested == RoleAdmin {
		requested = RoleUser
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO profiles (id, email, role, approval_status, account_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (id) DO NOTHING`,
		id, strings.ToLower(strings.TrimSpace(email)), string(requested), string(DefaultApprovalFor(requested)), string(AccountActive))
	if err != nil {
		var pgErr *pgconn.PgError
		// Unique violations on secondary keys still mean the row exists.
		if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
			return nil, err
		}
	}
	return s.Find(ctx, id)
}

// UpdateSelf applies the identity's own non-sensitive fields.
func (s *PGStore) UpdateSelf(ctx context.Context, id string, name, phone, city string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `UPDATE profiles SET name = $2, phone = $3, city = $4, updated_at = NOW()
WHERE id = $1 RETURNING `+profileColumns, id, name, phone, city)
	return scanProfile(row)
}

// SetApproval moves a profile through the approval workflow.
func (s *PGStore) SetApproval(ctx context.Context, id string, status ApprovalStatus) error {
	return s.setColumn(ctx, id, `approval_status`, string(status))
}

// SetAccountStatus suspends or reinstates an account.
func (s *PGStore) SetAccountStatus(ctx context.Context, id string, status AccountStatus) error {
	return s.setColumn(ctx, id, `account_status`, string(status))
}

// SetRole changes the identity class of an account.
func (s *PGStore) SetRole(ctx context.Context, id string, role Role) error {
	return s.setColumn(ctx, id, `role`, string(role))
}

// ListByApproval returns profiles in the given approval state, oldest first,
// for the administrator review queue.
func (s *PGStore) ListByApproval(ctx context.Context, status ApprovalStatus, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles
WHERE approval_status = $1 AND role IN ('vendor', 'technician')
ORDER BY created_at ASC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

func (s *PGStore) setColumn(ctx context.Context, id, column, value string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE profiles SET `+column+` = $2, updated_at = NOW() WHERE id = $1`, id, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var (
		p                     Profile
		role, approval, state string
		name, phone, city     *string
		createdAt, updatedAt  time.Time
	)
	if err := row.Scan(&p.ID, &p.Email, &name, &phone, &city, &role, &approval, &state, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if name != nil {
		p.Name = *name
	}
	if phone != nil {
		p.Phone = *phone
	}
	if city != nil {
		p.City = *city
	}
	p.Role = Role(role)
	p.ApprovalStatus = ApprovalStatus(approval)
	p.AccountStatus = AccountStatus(state)
	p.CreatedAt = createdAt
	p.UpdatedAt = updatedAt
	return &p, nil
}

var _ Store = (*PGStore)(nil)
