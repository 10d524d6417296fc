// Package security issues and validates the console's bearer tokens.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or
	// presented for the wrong purpose.
	ErrInvalidToken = errors.New("invalid token")
)

// Token purposes. A token minted for one purpose never validates as another.
const (
	PurposeSession   = "session"
	PurposeOtpSetup  = "otp_setup"
	PurposeOtpVerify = "otp_verify"
)

// Claims holds the JWT claims for every console token. Purpose distinguishes
// full sessions from the short-lived second-factor hand-off tokens; Role is
// set only on session tokens.
type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
	Role    string `json:"role,omitempty"`
}

// TokenProvider issues and validates HS256 tokens signed with the shared
// application secret.
type TokenProvider struct {
	secret     []byte
	issuer     string
	sessionTTL time.Duration
	setupTTL   time.Duration
	nowF       func() time.Time
}

// NewTokenProvider returns a TokenProvider. sessionTTL bounds session tokens;
// setupTTL bounds the otp_setup and otp_verify hand-off tokens.
func NewTokenProvider(secret, issuer string, sessionTTL, setupTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:     []byte(secret),
		issuer:     issuer,
		sessionTTL: sessionTTL,
		setupTTL:   setupTTL,
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// IssueSession issues a session token carrying the subject's role.
func (p *TokenProvider) IssueSession(username, role string) (token string, expiresAt time.Time, err error) {
	return p.issue(username, PurposeSession, role, p.sessionTTL)
}

// IssueSetup issues a short-lived token for completing second-factor
// enrollment. purpose must be PurposeOtpSetup or PurposeOtpVerify.
func (p *TokenProvider) IssueSetup(username, purpose string) (token string, expiresAt time.Time, err error) {
	if purpose != PurposeOtpSetup && purpose != PurposeOtpVerify {
		return "", time.Time{}, ErrInvalidToken
	}
	return p.issue(username, purpose, "", p.setupTTL)
}

func (p *TokenProvider) issue(username, purpose, role string, ttl time.Duration) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.nowF()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   username,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
		Role:    role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

// Validate parses the token and checks signature, expiry, issuer, and
// purpose. Returns the subject username and, for session tokens, the role.
func (p *TokenProvider) Validate(tokenString, purpose string) (username, role string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.nowF))
	if err != nil {
		return "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", "", ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Role, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
