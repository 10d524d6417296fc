// Package domain holds the password-expiry notice records.
package domain

import "time"

// Notice statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notice is one attempted expiry notice. The (Username, DaysLeft, NotifyDate)
// triple is the idempotency key: the worker sends at most one notice per user
// per threshold per calendar day.
type Notice struct {
	ID         int64
	Username   string
	DaysLeft   int
	NotifyDate time.Time
	Status     string
	LastError  string
	CreatedAt  time.Time
}

// ListFilter narrows a notice query. Zero values apply no constraint.
type ListFilter struct {
	Username string
	Status   string
	Limit    int32
}
