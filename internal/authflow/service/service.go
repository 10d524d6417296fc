// Package service implements the login flow: lockout throttling, role
// resolution, second-factor hand-off, and the self-service password paths.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"directory-console/backend/internal/apperr"
	"directory-console/backend/internal/audit"
	"directory-console/backend/internal/authflow/domain"
	"directory-console/backend/internal/authflow/repository"
	"directory-console/backend/internal/directory"
	dirdomain "directory-console/backend/internal/directory/domain"
	"directory-console/backend/internal/obs"
	codedomain "directory-console/backend/internal/otpcode/domain"
	sfdomain "directory-console/backend/internal/secondfactor/domain"
	sfservice "directory-console/backend/internal/secondfactor/service"
	"directory-console/backend/internal/security"
)

// Roles assigned at login.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Stages of a login. StageOK carries a session token; the other two carry a
// short-lived hand-off token for the second-factor step.
const (
	StageOK        = "ok"
	StageOtpSetup  = "otp_setup"
	StageOtpVerify = "otp_verify"
)

// Directory is the subset of the directory adapter the flow uses.
type Directory interface {
	Authenticate(username, password string) (bool, error)
	UserDN(username string) (string, error)
	LookupUser(username string) (*dirdomain.User, error)
	IsGroupMember(userDN, groupDN string) (bool, error)
	ResetPassword(userDN, newPassword string, forceChange bool) error
	ChangePassword(username, oldPassword, newPassword string) error
}

// SecondFactor is the authenticator surface the flow drives.
type SecondFactor interface {
	Enabled(ctx context.Context, username string) (bool, error)
	StartEnrollment(ctx context.Context, username string) (*sfservice.Enrollment, error)
	ConfirmEnrollment(ctx context.Context, username, code string) error
	VerifyCode(ctx context.Context, username, code string) error
	GrantElevation(ctx context.Context, username, code string) (*sfdomain.Grant, error)
	RequireElevation(ctx context.Context, username string) error
}

// CodeService issues and verifies delivery codes for one channel.
type CodeService interface {
	Issue(ctx context.Context, username, destination, scene string) (*codedomain.Code, error)
	Verify(ctx context.Context, username, scene, code string) error
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, cause string) error
}

// CodeSender delivers a code to a destination resolved from the directory.
type CodeSender interface {
	SendCode(ctx context.Context, destination, code string) error
}

// LoginResult is the outcome of a successful credential check. Token is a
// session token at StageOK, otherwise the hand-off token for the named stage.
type LoginResult struct {
	Stage     string
	Token     string
	ExpiresAt time.Time
	Role      string
	User      *dirdomain.User
}

// Service orchestrates the authentication flows.
type Service struct {
	dir          Directory
	attempts     repository.AttemptRepository
	tokens       *security.TokenProvider
	second       SecondFactor
	smsCodes     CodeService
	emailCodes   CodeService
	sms          CodeSender
	mail         CodeSender
	recorder     audit.Recorder
	adminGroupDN string
	maxFails     int
	lockDuration time.Duration
	nowF         func() time.Time
}

// NewService wires the login flow. sms and mail may be nil when the channel
// is not configured; issuing a code on a nil channel fails as a config error.
func NewService(
	dir Directory,
	attempts repository.AttemptRepository,
	tokens *security.TokenProvider,
	second SecondFactor,
	smsCodes, emailCodes CodeService,
	sms, mail CodeSender,
	recorder audit.Recorder,
	adminGroupDN string,
	maxFails int,
	lockDuration time.Duration,
) *Service {
	return &Service{
		dir:          dir,
		attempts:     attempts,
		tokens:       tokens,
		second:       second,
		smsCodes:     smsCodes,
		emailCodes:   emailCodes,
		sms:          sms,
		mail:         mail,
		recorder:     recorder,
		adminGroupDN: adminGroupDN,
		maxFails:     maxFails,
		lockDuration: lockDuration,
		nowF:         func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials against the directory, enforcing the lockout
// window first. roleHint is the role the caller asks for: requesting admin
// from a non-member account is rejected outright, never downgraded, and an
// eligible admin is handed off to the second-factor stage instead of
// receiving a session directly.
func (s *Service) Login(ctx context.Context, username, password, roleHint, ip, userAgent string) (*LoginResult, error) {
	now := s.nowF()
	att, err := s.attempts.Get(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("authflow: load attempts: %w", err)
	}
	if att != nil && att.Locked(now) {
		obs.LoginsTotal.WithLabelValues("locked").Inc()
		s.audit(ctx, username, "", "login", username, "denied", ip, userAgent, "account locked")
		return nil, &apperr.Error{
			Kind:        apperr.KindRateLimited,
			Message:     "account locked, try again later",
			LockedUntil: att.LockedUntil,
		}
	}

	ok, err := s.dir.Authenticate(username, password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDirectory, "directory unavailable", err)
	}
	if !ok {
		if err := s.recordFailure(ctx, att, username, now); err != nil {
			log.Printf("authflow: record failure for %s: %v", username, err)
		}
		obs.LoginsTotal.WithLabelValues("failed").Inc()
		s.audit(ctx, username, "", "login", username, "failed", ip, userAgent, "invalid credentials")
		return nil, apperr.New(apperr.KindAuthInvalid, "invalid username or password")
	}
	if err := s.clearFailures(ctx, username, now); err != nil {
		log.Printf("authflow: clear failures for %s: %v", username, err)
	}

	user, err := s.dir.LookupUser(username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDirectory, "directory unavailable", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.KindAuthInvalid, "invalid username or password")
	}

	if roleHint == RoleAdmin {
		isAdmin := false
		if s.adminGroupDN != "" {
			isAdmin, err = s.dir.IsGroupMember(user.DN, s.adminGroupDN)
			if err != nil {
				return nil, apperr.Wrap(apperr.KindDirectory, "directory unavailable", err)
			}
		}
		if !isAdmin {
			obs.LoginsTotal.WithLabelValues("denied").Inc()
			s.audit(ctx, username, "", "login", username, "denied", ip, userAgent, "admin role requested without membership")
			return nil, apperr.New(apperr.KindPermissionDenied, "account is not an administrator")
		}
		role := RoleAdmin
		enabled, err := s.second.Enabled(ctx, username)
		if err != nil {
			return nil, err
		}
		stage := StageOtpVerify
		purpose := security.PurposeOtpVerify
		if !enabled {
			stage = StageOtpSetup
			purpose = security.PurposeOtpSetup
		}
		token, expiresAt, err := s.tokens.IssueSetup(username, purpose)
		if err != nil {
			return nil, fmt.Errorf("authflow: issue token: %w", err)
		}
		obs.LoginsTotal.WithLabelValues("success").Inc()
		s.audit(ctx, username, role, "login", username, "success", ip, userAgent, "second factor "+stage)
		return &LoginResult{Stage: stage, Token: token, ExpiresAt: expiresAt, Role: role, User: user}, nil
	}

	token, expiresAt, err := s.tokens.IssueSession(username, RoleUser)
	if err != nil {
		return nil, fmt.Errorf("authflow: issue session: %w", err)
	}
	obs.LoginsTotal.WithLabelValues("success").Inc()
	s.audit(ctx, username, RoleUser, "login", username, "success", ip, userAgent, "")
	return &LoginResult{Stage: StageOK, Token: token, ExpiresAt: expiresAt, Role: RoleUser, User: user}, nil
}

// SecondFactorSetup exchanges an otp_setup hand-off token for fresh
// enrollment material.
func (s *Service) SecondFactorSetup(ctx context.Context, setupToken string) (*sfservice.Enrollment, error) {
	username, _, err := s.tokens.Validate(setupToken, security.PurposeOtpSetup)
	if err != nil {
		return nil, apperr.New(apperr.KindAuthInvalid, "invalid or expired setup token")
	}
	return s.second.StartEnrollment(ctx, username)
}

// SecondFactorVerify completes the admin login: an otp_setup token confirms
// the pending enrollment, an otp_verify token checks the confirmed
// authenticator. Either way a full admin session is issued on success.
func (s *Service) SecondFactorVerify(ctx context.Context, handoffToken, code, ip, userAgent string) (*LoginResult, error) {
	username, _, err := s.tokens.Validate(handoffToken, security.PurposeOtpSetup)
	if err == nil {
		if err := s.second.ConfirmEnrollment(ctx, username, code); err != nil {
			s.audit(ctx, username, RoleAdmin, "otp.enroll", username, "failed", ip, userAgent, "")
			return nil, err
		}
		s.audit(ctx, username, RoleAdmin, "otp.enroll", username, "success", ip, userAgent, "")
		return s.issueAdminSession(ctx, username, ip, userAgent)
	}

	username, _, err = s.tokens.Validate(handoffToken, security.PurposeOtpVerify)
	if err != nil {
		return nil, apperr.New(apperr.KindAuthInvalid, "invalid or expired token")
	}
	if err := s.second.VerifyCode(ctx, username, code); err != nil {
		s.audit(ctx, username, RoleAdmin, "login", username, "failed", ip, userAgent, "second factor rejected")
		return nil, err
	}
	return s.issueAdminSession(ctx, username, ip, userAgent)
}

func (s *Service) issueAdminSession(ctx context.Context, username, ip, userAgent string) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.IssueSession(username, RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("authflow: issue session: %w", err)
	}
	user, err := s.dir.LookupUser(username)
	if err != nil {
		log.Printf("authflow: lookup %s after second factor: %v", username, err)
	}
	s.audit(ctx, username, RoleAdmin, "login", username, "success", ip, userAgent, "second factor passed")
	return &LoginResult{Stage: StageOK, Token: token, ExpiresAt: expiresAt, Role: RoleAdmin, User: user}, nil
}

// VerifyElevation lets an admin session holder prove the second factor again,
// opening the elevation window that gates destructive operations.
func (s *Service) VerifyElevation(ctx context.Context, sessionToken, code, ip, userAgent string) (*sfdomain.Grant, error) {
	username, role, err := s.tokens.Validate(sessionToken, security.PurposeSession)
	if err != nil {
		return nil, apperr.New(apperr.KindAuthInvalid, "invalid or expired session")
	}
	if role != RoleAdmin {
		return nil, apperr.New(apperr.KindPermissionDenied, "elevation is for administrators only")
	}
	g, err := s.second.GrantElevation(ctx, username, code)
	if err != nil {
		s.audit(ctx, username, role, "otp.elevate", username, "failed", ip, userAgent, "")
		return nil, err
	}
	s.audit(ctx, username, role, "otp.elevate", username, "success", ip, userAgent, "")
	return g, nil
}

// RequireElevation reports whether the admin currently holds an unexpired
// elevation grant. Callers gate destructive operations on it.
func (s *Service) RequireElevation(ctx context.Context, username string) error {
	return s.second.RequireElevation(ctx, username)
}

// SendSMSCode issues a delivery code to the user's directory mobile number.
// scene must be "forgot" or "change".
func (s *Service) SendSMSCode(ctx context.Context, username, scene, ip, userAgent string) error {
	if scene != codedomain.SceneForgot && scene != codedomain.SceneChange {
		return apperr.New(apperr.KindValidation, "unknown scene")
	}
	if s.sms == nil {
		return apperr.New(apperr.KindConfig, "sms gateway is not configured")
	}
	user, err := s.lookupForRecovery(ctx, username)
	if err != nil {
		return err
	}
	code, err := s.smsCodes.Issue(ctx, username, user.Mobile, scene)
	if err != nil {
		return err
	}
	if err := s.sms.SendCode(ctx, code.Destination, code.Code); err != nil {
		if mErr := s.smsCodes.MarkFailed(ctx, code.ID, err.Error()); mErr != nil {
			log.Printf("authflow: mark sms failed: %v", mErr)
		}
		s.audit(ctx, username, "", "sms.send", username, "failed", ip, userAgent, scene)
		return apperr.Wrap(apperr.KindGateway, "sms delivery failed", err)
	}
	if err := s.smsCodes.MarkSent(ctx, code.ID); err != nil {
		log.Printf("authflow: mark sms sent: %v", err)
	}
	s.audit(ctx, username, "", "sms.send", username, "success", ip, userAgent, scene)
	return nil
}

// SendEmailCode issues a password-recovery code to the user's directory mail
// address. Email codes exist for the forgot scene only.
func (s *Service) SendEmailCode(ctx context.Context, username, ip, userAgent string) error {
	if s.mail == nil {
		return apperr.New(apperr.KindConfig, "mail delivery is not configured")
	}
	user, err := s.lookupForRecovery(ctx, username)
	if err != nil {
		return err
	}
	code, err := s.emailCodes.Issue(ctx, username, user.Mail, codedomain.SceneForgot)
	if err != nil {
		return err
	}
	if err := s.mail.SendCode(ctx, code.Destination, code.Code); err != nil {
		if mErr := s.emailCodes.MarkFailed(ctx, code.ID, err.Error()); mErr != nil {
			log.Printf("authflow: mark email failed: %v", mErr)
		}
		s.audit(ctx, username, "", "email.send", username, "failed", ip, userAgent, codedomain.SceneForgot)
		return apperr.Wrap(apperr.KindGateway, "mail delivery failed", err)
	}
	if err := s.emailCodes.MarkSent(ctx, code.ID); err != nil {
		log.Printf("authflow: mark email sent: %v", err)
	}
	s.audit(ctx, username, "", "email.send", username, "success", ip, userAgent, codedomain.SceneForgot)
	return nil
}

// ForgotResetSMS resets the password after verifying a forgot-scene SMS code.
func (s *Service) ForgotResetSMS(ctx context.Context, username, code, newPassword, ip, userAgent string) error {
	return s.forgotReset(ctx, s.smsCodes, username, code, newPassword, ip, userAgent)
}

// ForgotResetEmail resets the password after verifying a forgot-scene email code.
func (s *Service) ForgotResetEmail(ctx context.Context, username, code, newPassword, ip, userAgent string) error {
	return s.forgotReset(ctx, s.emailCodes, username, code, newPassword, ip, userAgent)
}

func (s *Service) forgotReset(ctx context.Context, codes CodeService, username, code, newPassword, ip, userAgent string) error {
	if err := codes.Verify(ctx, username, codedomain.SceneForgot, code); err != nil {
		s.audit(ctx, username, "", "password.forgot_reset", username, "failed", ip, userAgent, "code rejected")
		return err
	}
	userDN, err := s.dir.UserDN(username)
	if err != nil {
		return apperr.Wrap(apperr.KindDirectory, "directory unavailable", err)
	}
	if userDN == "" {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if err := s.dir.ResetPassword(userDN, newPassword, false); err != nil {
		s.audit(ctx, username, "", "password.forgot_reset", username, "failed", ip, userAgent, "")
		return apperr.FromDirectory(err)
	}
	if err := s.clearFailures(ctx, username, s.nowF()); err != nil {
		log.Printf("authflow: clear failures for %s: %v", username, err)
	}
	s.audit(ctx, username, "", "password.forgot_reset", username, "success", ip, userAgent, "")
	return nil
}

// ChangePassword verifies a change-scene SMS code and the old password, then
// writes the new one as the user.
func (s *Service) ChangePassword(ctx context.Context, username, code, oldPassword, newPassword, ip, userAgent string) error {
	if err := s.smsCodes.Verify(ctx, username, codedomain.SceneChange, code); err != nil {
		s.audit(ctx, username, "", "password.change", username, "failed", ip, userAgent, "code rejected")
		return err
	}
	if err := s.dir.ChangePassword(username, oldPassword, newPassword); err != nil {
		s.audit(ctx, username, "", "password.change", username, "failed", ip, userAgent, "")
		if errors.Is(err, directory.ErrOldPassword) {
			return apperr.New(apperr.KindAuthInvalid, "old password is incorrect")
		}
		return apperr.FromDirectory(err)
	}
	if err := s.clearFailures(ctx, username, s.nowF()); err != nil {
		log.Printf("authflow: clear failures for %s: %v", username, err)
	}
	s.audit(ctx, username, "", "password.change", username, "success", ip, userAgent, "")
	return nil
}

func (s *Service) lookupForRecovery(ctx context.Context, username string) (*dirdomain.User, error) {
	user, err := s.dir.LookupUser(username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDirectory, "directory unavailable", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	return user, nil
}

// recordFailure bumps the account's failure counter. Hitting the threshold
// opens the lock window and resets the counter, so the next failure after the
// window starts a fresh count.
func (s *Service) recordFailure(ctx context.Context, att *domain.Attempt, username string, now time.Time) error {
	if att == nil {
		att = &domain.Attempt{Username: username}
	}
	att.FailCount++
	if att.FailCount >= s.maxFails {
		until := now.Add(s.lockDuration)
		att.LockedUntil = &until
		att.FailCount = 0
	}
	att.UpdatedAt = now
	return s.attempts.Upsert(ctx, att)
}

func (s *Service) clearFailures(ctx context.Context, username string, now time.Time) error {
	return s.attempts.Upsert(ctx, &domain.Attempt{Username: username, UpdatedAt: now})
}

func (s *Service) audit(ctx context.Context, actor, role, action, target, outcome, ip, userAgent, detail string) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, audit.Entry{
		Actor:     actor,
		ActorRole: role,
		Action:    action,
		Target:    target,
		Outcome:   outcome,
		IP:        ip,
		UserAgent: userAgent,
		Detail:    detail,
	})
}
