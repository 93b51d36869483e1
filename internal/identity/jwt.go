package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTProvider verifies HMAC-signed identity tokens. It also issues tokens
// for the local credential flow and for tests; production deployments that
// delegate issuance to a hosted provider only use the verify path.
type JWTProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type tokenClaims struct {
	Email          string `json:"email,omitempty"`
	Role           string `json:"role,omitempty"`
	ApprovalStatus string `json:"approval_status,omitempty"`
	AccountStatus  string `json:"account_status,omitempty"`
	ClaimsVer      int    `json:"cv,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTProvider constructs a provider for the given shared secret.
func NewJWTProvider(secret, issuer string, ttl time.Duration) *JWTProvider {
	return &JWTProvider{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// VerifyToken parses and validates a raw token and returns the subject
// along with whatever profile claims the token carries.
func (p *JWTProvider) VerifyToken(ctx context.Context, raw string) (Identity, Claims, error) {
	if raw == "" {
		return Identity{}, Claims{}, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithTimeFunc(p.now))
	if err != nil || !parsed.Valid {
		return Identity{}, Claims{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || claims.Subject == "" {
		return Identity{}, Claims{}, ErrInvalidToken
	}
	return Identity{Subject: claims.Subject, Email: claims.Email}, Claims{
		Version:        claims.ClaimsVer,
		Role:           claims.Role,
		ApprovalStatus: claims.ApprovalStatus,
		AccountStatus:  claims.AccountStatus,
	}, nil
}

// IssueToken signs a token for the subject embedding the given claims.
func (p *JWTProvider) IssueToken(ident Identity, claims Claims) (string, error) {
	now := p.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:          ident.Email,
		Role:           claims.Role,
		ApprovalStatus: claims.ApprovalStatus,
		AccountStatus:  claims.AccountStatus,
		ClaimsVer:      ClaimsVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.Subject,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	})
	return tok.SignedString(p.secret)
}

var _ Provider = (*JWTProvider)(nil)
