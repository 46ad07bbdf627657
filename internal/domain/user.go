package domain

import "time"

// User represents a registered account. TokensValidAfter is the revocation
// marker: bearer tokens issued strictly before it are rejected.
type User struct {
	UID              string    `json:"uid"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	PasswordHash     []byte    `json:"-"`
	TokensValidAfter time.Time `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
