// Package domain holds the login throttling records.
package domain

import "time"

// Attempt tracks consecutive failed logins for one account. Reaching the
// failure threshold opens a lock window and resets the counter; only the lock
// window blocks logins.
type Attempt struct {
	Username    string
	FailCount   int
	LockedUntil *time.Time
	UpdatedAt   time.Time
}

// Locked reports whether the account's lock window is still open.
func (a *Attempt) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
