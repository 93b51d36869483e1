package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pasarhub/pasarhub/internal/identity"
	"github.com/pasarhub/pasarhub/internal/profile"
	"github.com/pasarhub/pasarhub/internal/shared"
)

// SessionRevoker deletes live session state; implemented by the Redis
// session manager.
type SessionRevoker interface {
	Revoke(ctx context.Context, sessionID string) error
}

// Service wraps the local credential flow: it verifies passwords, keeps
// the profile store in step at signup, and issues identity tokens carrying
// the current profile claims.
type Service struct {
	repo     Repository
	profiles profile.Store
	tokens   *identity.JWTProvider
	revoker  SessionRevoker
}

// NewService constructs a new Service.
func NewService(repo Repository, profiles profile.Store, tokens *identity.JWTProvider, revoker SessionRevoker) *Service {
	return &Service{repo: repo, profiles: profiles, tokens: tokens, revoker: revoker}
}

// Authenticate validates email/password credentials and returns a fresh
// identity token embedding the current profile claims.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *profile.Profile, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, shared.ErrInvalidCredentials
	}
	prof, err := s.profiles.Find(ctx, account.ID)
	if err != nil {
		return "", nil, err
	}
	token, err := s.issueFor(account, prof)
	return token, prof, err
}

// SignUp registers new credentials and provisions the default profile for
// the requested role. Vendors and technicians start pending.
func (s *Service) SignUp(ctx context.Context, email, password string, requested profile.Role) (string, *profile.Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	if err := s.repo.CreateAccount(ctx, id, email, string(hash)); err != nil {
		return "", nil, err
	}
	prof, err := s.profiles.ProvisionDefault(ctx, id, email, requested)
	if err != nil {
		return "", nil, err
	}
	token, err := s.issueFor(&Account{ID: id, Email: email}, prof)
	return token, prof, err
}

// RegisterSession persists the session metadata for later revocation.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// RevokeUserSessions cuts every live session of a user, both the Redis
// state and the bookkeeping rows. Used by the administrator suspension
// flow so a suspended account cannot ride out a stale session.
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) error {
	ids, err := s.repo.SessionIDsForUser(ctx, userID)
	if err != nil {
		return err
	}
	if s.revoker != nil {
		for _, id := range ids {
			if err := s.revoker.Revoke(ctx, id); err != nil {
				return err
			}
		}
	}
	return s.repo.DeleteSessionsForUser(ctx, userID)
}

func (s *Service) issueFor(account *Account, prof *profile.Profile) (string, error) {
	return s.tokens.IssueToken(
		identity.Identity{Subject: account.ID, Email: account.Email},
		identity.Claims{
			Version:        identity.ClaimsVersion,
			Role:           string(prof.Role),
			ApprovalStatus: string(prof.ApprovalStatus),
			AccountStatus:  string(prof.AccountStatus),
		},
	)
}
