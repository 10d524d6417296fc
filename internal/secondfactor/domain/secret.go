// Package domain holds the second-factor enrollment and elevation records.
package domain

import "time"

// Secret is a user's authenticator secret. Enabled stays false until the
// first successful verification; a disabled secret is replaced on the next
// enrollment, never trusted.
type Secret struct {
	Username  string
	Secret    string
	Enabled   bool
	UpdatedAt time.Time
}

// Grant is a short-lived elevation window opened by a verified authenticator
// code. Sensitive operations check for an unexpired grant.
type Grant struct {
	Username   string
	VerifiedAt time.Time
	ExpiresAt  time.Time
}

// Valid reports whether the grant is still within its window.
func (g *Grant) Valid(now time.Time) bool { return now.Before(g.ExpiresAt) }
