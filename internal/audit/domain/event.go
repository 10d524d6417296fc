// Package domain holds the audit trail records.
package domain

import "time"

// Outcomes for an audited operation.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeDenied  = "denied"
)

// Event is one row of the append-only audit trail. Before and After carry
// JSON snapshots of the target object around a mutation; either may be empty.
type Event struct {
	ID        string
	Actor     string
	ActorRole string
	Action    string
	Target    string
	Outcome   string
	IP        string
	UserAgent string
	Detail    string
	Before    []byte
	After     []byte
	CreatedAt time.Time
}

// ListFilter narrows an audit trail query. Zero values apply no constraint.
type ListFilter struct {
	Actor   string
	Action  string
	Target  string
	Outcome string
	Since   time.Time
	Until   time.Time
	Limit   int32
	Offset  int32
}
