// Package notify runs the background delivery workers: the password-expiry
// scan and the failed-code redrive, under one supervisor.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"directory-console/backend/internal/audit"
	dirdomain "directory-console/backend/internal/directory/domain"
	"directory-console/backend/internal/notify/domain"
	"directory-console/backend/internal/notify/repository"
	"directory-console/backend/internal/obs"
)

// ExpiryScanner lists users whose password expires within the window.
type ExpiryScanner interface {
	ListPasswordExpiring(maxDays int) ([]dirdomain.ExpiringUser, error)
}

// NoticeSender delivers one expiry notice.
type NoticeSender interface {
	SendExpiryNotice(ctx context.Context, phone, name string, daysLeft int) error
}

// ExpiryWorker sends password-expiry notices on the configured day
// thresholds. A user is notified when their days-left value lands exactly on
// a threshold, at most once per threshold per calendar day.
type ExpiryWorker struct {
	scanner    ExpiryScanner
	notices    repository.NoticeRepository
	sender     NoticeSender
	recorder   audit.Recorder
	thresholds []int
	nowF       func() time.Time
}

// NewExpiryWorker returns the expiry worker. thresholds is the sorted list of
// days-left values that trigger a notice.
func NewExpiryWorker(scanner ExpiryScanner, notices repository.NoticeRepository, sender NoticeSender, recorder audit.Recorder, thresholds []int) *ExpiryWorker {
	return &ExpiryWorker{
		scanner:    scanner,
		notices:    notices,
		sender:     sender,
		recorder:   recorder,
		thresholds: thresholds,
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce executes one scan-and-notify pass. Per-user failures are recorded
// and do not stop the pass.
func (w *ExpiryWorker) RunOnce(ctx context.Context) error {
	if len(w.thresholds) == 0 {
		return nil
	}
	maxDays := w.thresholds[len(w.thresholds)-1]
	expiring, err := w.scanner.ListPasswordExpiring(maxDays)
	if err != nil {
		return fmt.Errorf("notify: expiry scan: %w", err)
	}
	now := w.nowF()
	notifyDate := now.Truncate(24 * time.Hour)

	for _, u := range expiring {
		if u.AccountName == "" || !w.onThreshold(u.DaysLeft) {
			continue
		}
		if u.Mobile == "" {
			continue
		}
		done, err := w.notices.Exists(ctx, u.AccountName, u.DaysLeft, notifyDate)
		if err != nil {
			log.Printf("notify: check notice for %s: %v", u.AccountName, err)
			continue
		}
		if done {
			continue
		}

		sendErr := w.sender.SendExpiryNotice(ctx, u.Mobile, u.AccountName, u.DaysLeft)
		n := &domain.Notice{
			Username:   u.AccountName,
			DaysLeft:   u.DaysLeft,
			NotifyDate: notifyDate,
			Status:     domain.StatusSent,
			CreatedAt:  now,
		}
		outcome := "success"
		detail := fmt.Sprintf("days_left=%d", u.DaysLeft)
		if sendErr != nil {
			n.Status = domain.StatusFailed
			n.LastError = sendErr.Error()
			outcome = "failed"
			detail = sendErr.Error()
		}
		if err := w.notices.Record(ctx, n); err != nil {
			log.Printf("notify: record notice for %s: %v", u.AccountName, err)
		}
		obs.ExpiryNoticesTotal.WithLabelValues(n.Status).Inc()
		if w.recorder != nil {
			w.recorder.Record(ctx, audit.Entry{
				Actor:     "system",
				ActorRole: "system",
				Action:    "password.expiry_notify",
				Target:    u.AccountName,
				Outcome:   outcome,
				Detail:    detail,
			})
		}
	}
	return nil
}

func (w *ExpiryWorker) onThreshold(daysLeft int) bool {
	for _, d := range w.thresholds {
		if d == daysLeft {
			return true
		}
	}
	return false
}
