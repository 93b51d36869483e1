package auth

import "time"

// Account holds the local credentials for an identity. Deployments that
// delegate credentials to a hosted identity provider leave this table
// empty and only use the token verification path.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
