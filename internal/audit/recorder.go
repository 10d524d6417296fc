// Package audit records every state-changing console operation to the
// append-only trail.
package audit

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"

	"directory-console/backend/internal/audit/domain"
	auditrepo "directory-console/backend/internal/audit/repository"
)

// Entry is the caller-facing shape of one audited operation. Before and After
// are marshalled to JSON snapshots; either may be nil.
type Entry struct {
	Actor     string
	ActorRole string
	Action    string
	Target    string
	Outcome   string
	IP        string
	UserAgent string
	Detail    string
	Before    any
	After     any
}

// Recorder writes audit events. Record is best-effort: a trail write failure
// never fails the operation being audited.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// DBRecorder persists events through the audit repository.
type DBRecorder struct {
	repo auditrepo.Repository
	nowF func() time.Time
}

// NewRecorder returns a Recorder that persists to repo.
func NewRecorder(repo auditrepo.Repository) *DBRecorder {
	return &DBRecorder{repo: repo, nowF: func() time.Time { return time.Now().UTC() }}
}

// Record writes one audit event. Errors are logged and not returned.
func (r *DBRecorder) Record(ctx context.Context, entry Entry) {
	if r.repo == nil {
		return
	}
	outcome := entry.Outcome
	if outcome == "" {
		outcome = domain.OutcomeSuccess
	}
	e := &domain.Event{
		ID:        uuid.New().String(),
		Actor:     entry.Actor,
		ActorRole: entry.ActorRole,
		Action:    entry.Action,
		Target:    entry.Target,
		Outcome:   outcome,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Detail:    entry.Detail,
		Before:    marshalSnapshot(entry.Action, "before", entry.Before),
		After:     marshalSnapshot(entry.Action, "after", entry.After),
		CreatedAt: r.nowF(),
	}
	if err := r.repo.Create(ctx, e); err != nil {
		log.Printf("audit: failed to record %s on %s: %v", e.Action, e.Target, err)
	}
}

func marshalSnapshot(action, side string, v any) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("audit: failed to marshal %s snapshot for %s: %v", side, action, err)
		return nil
	}
	return b
}
