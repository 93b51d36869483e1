package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "github.com/pasarhub/pasarhub/testing"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	p := NewJWTProvider("secret", "pasarhub", time.Hour)

	token, err := p.IssueToken(Identity{Subject: "u-1", Email: "u@pasarhub.id"}, Claims{
		Role:           "vendor",
		ApprovalStatus: "approved",
		AccountStatus:  "active",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ident, claims, err := p.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ident.Subject != "u-1" || ident.Email != "u@pasarhub.id" {
		t.Fatalf("unexpected identity %+v", ident)
	}
	if claims.Role != "vendor" || claims.ApprovalStatus != "approved" || claims.AccountStatus != "active" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Version != ClaimsVersion {
		t.Fatalf("claims version = %d", claims.Version)
	}
	if !claims.Complete() {
		t.Fatalf("expected complete claims")
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	p := NewJWTProvider("secret", "pasarhub", time.Hour)

	if _, _, err := p.VerifyToken(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token: %v", err)
	}
	if _, _, err := p.VerifyToken(context.Background(), "not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: %v", err)
	}

	// Signed under a different secret.
	other := NewJWTProvider("other-secret", "pasarhub", time.Hour)
	token, err := other.IssueToken(Identity{Subject: "u-1"}, Claims{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := p.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: %v", err)
	}

	// Signed for a different issuer.
	foreign := NewJWTProvider("secret", "someone-else", time.Hour)
	token, err = foreign.IssueToken(Identity{Subject: "u-1"}, Claims{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := p.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign issuer: %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	p := NewJWTProvider("secret", "pasarhub", time.Minute)

	issued := time.Now()
	p.now = func() time.Time { return issued }
	token, err := p.IssueToken(Identity{Subject: "u-1"}, Claims{})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, _, err := p.VerifyToken(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestClaimsComplete(t *testing.T) {
	full := Claims{Role: "user", ApprovalStatus: "approved", AccountStatus: "active"}
	if !full.Complete() {
		t.Fatalf("full claims reported incomplete")
	}
	for _, partial := range []Claims{
		{ApprovalStatus: "approved", AccountStatus: "active"},
		{Role: "user", AccountStatus: "active"},
		{Role: "user", ApprovalStatus: "approved"},
		{},
	} {
		if partial.Complete() {
			t.Fatalf("partial claims %+v reported complete", partial)
		}
	}
}
