// Package service implements authenticator enrollment, verification, and the
// elevation window for sensitive operations.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"directory-console/backend/internal/apperr"
	"directory-console/backend/internal/secondfactor/domain"
	"directory-console/backend/internal/secondfactor/repository"
)

// Enrollment is the material handed to the user when starting enrollment.
type Enrollment struct {
	Secret string
	// URL is the otpauth:// provisioning URI for authenticator apps.
	URL string
}

// Service manages authenticator secrets and elevation grants.
type Service struct {
	secrets repository.SecretRepository
	grants  repository.GrantRepository
	issuer  string
	// elevationTTL bounds a grant's validity. Zero or negative disables the
	// elevation requirement entirely.
	elevationTTL time.Duration
	nowF         func() time.Time
}

// NewService returns a second-factor service.
func NewService(secrets repository.SecretRepository, grants repository.GrantRepository, issuer string, elevationTTL time.Duration) *Service {
	return &Service{
		secrets:      secrets,
		grants:       grants,
		issuer:       issuer,
		elevationTTL: elevationTTL,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// Enabled reports whether the user has a confirmed authenticator.
func (s *Service) Enabled(ctx context.Context, username string) (bool, error) {
	sec, err := s.secrets.Get(ctx, username)
	if err != nil {
		return false, fmt.Errorf("secondfactor: load secret: %w", err)
	}
	return sec != nil && sec.Enabled, nil
}

// StartEnrollment generates and stores a fresh disabled secret, replacing any
// earlier unconfirmed one. An already confirmed authenticator is never
// silently replaced.
func (s *Service) StartEnrollment(ctx context.Context, username string) (*Enrollment, error) {
	existing, err := s.secrets.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("secondfactor: load secret: %w", err)
	}
	if existing != nil && existing.Enabled {
		return nil, apperr.New(apperr.KindValidation, "authenticator already enrolled")
	}
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: username})
	if err != nil {
		return nil, fmt.Errorf("secondfactor: generate secret: %w", err)
	}
	sec := &domain.Secret{
		Username:  username,
		Secret:    key.Secret(),
		Enabled:   false,
		UpdatedAt: s.nowF(),
	}
	if err := s.secrets.Upsert(ctx, sec); err != nil {
		return nil, fmt.Errorf("secondfactor: store secret: %w", err)
	}
	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// ConfirmEnrollment validates the first code against the pending secret and
// enables it.
func (s *Service) ConfirmEnrollment(ctx context.Context, username, code string) error {
	sec, err := s.secrets.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("secondfactor: load secret: %w", err)
	}
	if sec == nil {
		return apperr.New(apperr.KindValidation, "no enrollment in progress")
	}
	if sec.Enabled {
		return apperr.New(apperr.KindValidation, "authenticator already enrolled")
	}
	if !s.validate(code, sec.Secret) {
		return apperr.New(apperr.KindAuthInvalid, "incorrect authenticator code")
	}
	if err := s.secrets.Enable(ctx, username); err != nil {
		return fmt.Errorf("secondfactor: enable secret: %w", err)
	}
	return nil
}

// VerifyCode checks a code against the user's confirmed authenticator.
func (s *Service) VerifyCode(ctx context.Context, username, code string) error {
	sec, err := s.secrets.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("secondfactor: load secret: %w", err)
	}
	if sec == nil || !sec.Enabled {
		return apperr.New(apperr.KindValidation, "no confirmed authenticator")
	}
	if !s.validate(code, sec.Secret) {
		return apperr.New(apperr.KindAuthInvalid, "incorrect authenticator code")
	}
	return nil
}

// GrantElevation verifies the code and opens an elevation window.
func (s *Service) GrantElevation(ctx context.Context, username, code string) (*domain.Grant, error) {
	if err := s.VerifyCode(ctx, username, code); err != nil {
		return nil, err
	}
	now := s.nowF()
	g := &domain.Grant{Username: username, VerifiedAt: now, ExpiresAt: now.Add(s.elevationTTL)}
	if err := s.grants.Upsert(ctx, g); err != nil {
		return nil, fmt.Errorf("secondfactor: store grant: %w", err)
	}
	return g, nil
}

// RequireElevation fails with an OTP_REQUIRED error unless the user holds an
// unexpired grant. A non-positive TTL disables the requirement.
func (s *Service) RequireElevation(ctx context.Context, username string) error {
	if s.elevationTTL <= 0 {
		return nil
	}
	g, err := s.grants.Get(ctx, username)
	if err != nil {
		return fmt.Errorf("secondfactor: load grant: %w", err)
	}
	if g == nil || !g.Valid(s.nowF()) {
		return apperr.New(apperr.KindOtpRequired, "authenticator verification required")
	}
	return nil
}

func (s *Service) validate(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.nowF(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: otp.DigitsSix,
	})
	return err == nil && ok
}
