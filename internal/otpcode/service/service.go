// Package service implements issuing and verifying one-time delivery codes.
package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"

	"directory-console/backend/internal/apperr"
	"directory-console/backend/internal/otpcode/domain"
	"directory-console/backend/internal/otpcode/repository"
)

const codeDigits = 6

// maxDeliveryAttempts bounds the initial send plus redrive retries per code.
const maxDeliveryAttempts = 3

// Service issues, verifies, and tracks delivery codes for one channel.
type Service struct {
	repo         repository.Repository
	ttl          time.Duration
	sendInterval time.Duration
	nowF         func() time.Time
	generateF    func() (string, error)
}

// NewService returns a code service. ttl bounds code validity; sendInterval
// is the minimum spacing between issues for the same user and scene.
func NewService(repo repository.Repository, ttl, sendInterval time.Duration) *Service {
	return &Service{
		repo:         repo,
		ttl:          ttl,
		sendInterval: sendInterval,
		nowF:         func() time.Time { return time.Now().UTC() },
		generateF:    generateCode,
	}
}

// CanSend reports whether a fresh code may be issued for the user and scene,
// false while the send interval since the last issue has not elapsed.
func (s *Service) CanSend(ctx context.Context, username, scene string) (bool, error) {
	prev, err := s.repo.Latest(ctx, username, scene)
	if err != nil {
		return false, fmt.Errorf("otpcode: load latest: %w", err)
	}
	return prev == nil || s.nowF().Sub(prev.CreatedAt) >= s.sendInterval, nil
}

// Issue creates and persists a fresh pending code. Issuing again for the same
// user and scene within the send interval is rejected as rate limited; the
// previous code stays valid until it expires or is consumed.
func (s *Service) Issue(ctx context.Context, username, destination, scene string) (*domain.Code, error) {
	if destination == "" {
		return nil, apperr.New(apperr.KindValidation, "no delivery destination on record")
	}
	now := s.nowF()
	ok, err := s.CanSend(ctx, username, scene)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindRateLimited, "code requested too soon, try again later")
	}

	value, err := s.generateF()
	if err != nil {
		return nil, fmt.Errorf("otpcode: generate: %w", err)
	}
	c := &domain.Code{
		ID:          uuid.New().String(),
		Username:    username,
		Destination: destination,
		Code:        value,
		Scene:       scene,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("otpcode: create: %w", err)
	}
	return c, nil
}

// Verify checks the submitted value against the most recent code for the
// user and scene, and consumes it on success. Older unconsumed codes are
// never accepted once a newer one exists.
func (s *Service) Verify(ctx context.Context, username, scene, submitted string) error {
	now := s.nowF()
	c, err := s.repo.Latest(ctx, username, scene)
	if err != nil {
		return fmt.Errorf("otpcode: load latest: %w", err)
	}
	if c == nil {
		return apperr.New(apperr.KindAuthInvalid, "no code was issued")
	}
	if c.Consumed() {
		return apperr.New(apperr.KindAuthInvalid, "code already used")
	}
	if c.Expired(now) {
		return apperr.New(apperr.KindAuthInvalid, "code expired")
	}
	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(submitted)) != 1 {
		return apperr.New(apperr.KindAuthInvalid, "incorrect code")
	}
	if err := s.repo.MarkConsumed(ctx, c.ID, now); err != nil {
		return fmt.Errorf("otpcode: consume: %w", err)
	}
	return nil
}

// MarkSent records a successful delivery and clears any prior error.
func (s *Service) MarkSent(ctx context.Context, id string) error {
	return s.repo.SetStatus(ctx, id, domain.StatusSent, "")
}

// MarkFailed records a failed delivery attempt and its cause, making the code
// eligible for redrive until the attempt cap is reached.
func (s *Service) MarkFailed(ctx context.Context, id, cause string) error {
	return s.repo.SetStatus(ctx, id, domain.StatusFailed, cause)
}

// Retryable lists failed, unexpired, unconsumed codes still under the
// delivery attempt cap, at most limit rows.
func (s *Service) Retryable(ctx context.Context, limit int32) ([]*domain.Code, error) {
	return s.repo.ListRetryable(ctx, maxDeliveryAttempts, s.nowF(), limit)
}

// History returns the user's recent codes, newest first.
func (s *Service) History(ctx context.Context, username string, limit int32) ([]*domain.Code, error) {
	return s.repo.ListByUser(ctx, username, limit)
}

// generateCode returns a zero-padded numeric code using crypto/rand.
func generateCode() (string, error) {
	b := make([]byte, codeDigits)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := make([]byte, codeDigits)
	for i := 0; i < codeDigits; i++ {
		s[i] = '0' + (b[i] % 10)
	}
	return string(s), nil
}
