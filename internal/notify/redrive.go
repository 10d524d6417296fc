package notify

import (
	"context"
	"fmt"
	"log"

	codedomain "directory-console/backend/internal/otpcode/domain"
	"directory-console/backend/internal/obs"
)

// redriveBatch bounds how many failed codes one cycle picks up.
const redriveBatch = 100

// RetryableCodes is the code-service surface the redrive worker drives.
type RetryableCodes interface {
	Retryable(ctx context.Context, limit int32) ([]*codedomain.Code, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, cause string) error
}

// CodeSender delivers one code to its destination.
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string) error
}

// RedriveWorker retries failed code deliveries for one channel until the
// per-code attempt cap or expiry stops them.
type RedriveWorker struct {
	channel string
	codes   RetryableCodes
	sender  CodeSender
}

// NewRedriveWorker returns a redrive worker. channel names the metric label.
func NewRedriveWorker(channel string, codes RetryableCodes, sender CodeSender) *RedriveWorker {
	return &RedriveWorker{channel: channel, codes: codes, sender: sender}
}

// RunOnce retries every eligible failed code once. Per-code failures are
// recorded and do not stop the pass.
func (w *RedriveWorker) RunOnce(ctx context.Context) error {
	items, err := w.codes.Retryable(ctx, redriveBatch)
	if err != nil {
		return fmt.Errorf("notify: list retryable: %w", err)
	}
	for _, c := range items {
		if err := w.sender.SendCode(ctx, c.Destination, c.Code); err != nil {
			if mErr := w.codes.MarkFailed(ctx, c.ID, err.Error()); mErr != nil {
				log.Printf("notify: mark %s code failed: %v", w.channel, mErr)
			}
			obs.CodeDeliveriesTotal.WithLabelValues(w.channel, "failed").Inc()
			continue
		}
		if err := w.codes.MarkSent(ctx, c.ID); err != nil {
			log.Printf("notify: mark %s code sent: %v", w.channel, err)
		}
		obs.CodeDeliveriesTotal.WithLabelValues(w.channel, "sent").Inc()
	}
	return nil
}
