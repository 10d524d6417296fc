package security

import (
	"testing"
	"time"
)

func newTestProvider() *TokenProvider {
	return NewTokenProvider("test-secret", "directory-console", time.Hour, 10*time.Minute)
}

func TestSessionRoundTrip(t *testing.T) {
	p := newTestProvider()
	token, expiresAt, err := p.IssueSession("alice", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if expiresAt.Before(time.Now().Add(55 * time.Minute)) {
		t.Errorf("session expiry too soon: %v", expiresAt)
	}
	username, role, err := p.Validate(token, PurposeSession)
	if err != nil {
		t.Fatal(err)
	}
	if username != "alice" || role != "admin" {
		t.Errorf("got %q/%q, want alice/admin", username, role)
	}
}

func TestPurposeMismatchRejected(t *testing.T) {
	p := newTestProvider()
	token, _, err := p.IssueSetup("bob", PurposeOtpSetup)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Validate(token, PurposeSession); err == nil {
		t.Error("setup token must not validate as a session")
	}
	if _, _, err := p.Validate(token, PurposeOtpVerify); err == nil {
		t.Error("otp_setup token must not validate as otp_verify")
	}
	if _, _, err := p.Validate(token, PurposeOtpSetup); err != nil {
		t.Errorf("setup token should validate for its own purpose: %v", err)
	}
}

func TestIssueSetup_RejectsUnknownPurpose(t *testing.T) {
	p := newTestProvider()
	if _, _, err := p.IssueSetup("bob", "session"); err == nil {
		t.Error("IssueSetup must refuse the session purpose")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	p := newTestProvider()
	token, _, err := p.IssueSession("alice", "user")
	if err != nil {
		t.Fatal(err)
	}
	p.nowF = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	if _, _, err := p.Validate(token, PurposeSession); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	p := newTestProvider()
	token, _, err := p.IssueSession("alice", "user")
	if err != nil {
		t.Fatal(err)
	}
	other := NewTokenProvider("other-secret", "directory-console", time.Hour, 10*time.Minute)
	if _, _, err := other.Validate(token, PurposeSession); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
}

func TestWrongIssuerRejected(t *testing.T) {
	p := newTestProvider()
	token, _, err := p.IssueSession("alice", "user")
	if err != nil {
		t.Fatal(err)
	}
	other := NewTokenProvider("test-secret", "another-app", time.Hour, 10*time.Minute)
	if _, _, err := other.Validate(token, PurposeSession); err == nil {
		t.Error("token from a different issuer must be rejected")
	}
}
