package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SessionTTLSeconds != 1800 {
		t.Errorf("SessionTTLSeconds = %d, want 1800", cfg.SessionTTLSeconds)
	}
	if cfg.LoginMaxFails != 5 {
		t.Errorf("LoginMaxFails = %d, want 5", cfg.LoginMaxFails)
	}
	if cfg.PasswordExpiryDays != "7,3,1" {
		t.Errorf("PasswordExpiryDays = %q, want %q", cfg.PasswordExpiryDays, "7,3,1")
	}
	if !cfg.LDAPTLSVerify {
		t.Error("LDAPTLSVerify should default to true")
	}
}

func TestLoad_RejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_SECRET", "change-me")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject the default APP_SECRET in production")
	}
}

func TestSessionTTL(t *testing.T) {
	cfg := &Config{SessionTTLSeconds: 600}
	if got := cfg.SessionTTL(); got != 10*time.Minute {
		t.Errorf("SessionTTL = %v, want 10m", got)
	}
	cfg = &Config{}
	if got := cfg.SessionTTL(); got != 30*time.Minute {
		t.Errorf("SessionTTL fallback = %v, want 30m", got)
	}
}

func TestElevationTTL_DisabledWhenNonPositive(t *testing.T) {
	cfg := &Config{OTPActionTTLMinutes: 0}
	if got := cfg.ElevationTTL(); got != 0 {
		t.Errorf("ElevationTTL = %v, want 0", got)
	}
	cfg = &Config{OTPActionTTLMinutes: 10}
	if got := cfg.ElevationTTL(); got != 10*time.Minute {
		t.Errorf("ElevationTTL = %v, want 10m", got)
	}
}

func TestExpiryDayThresholds(t *testing.T) {
	cfg := &Config{PasswordExpiryDays: "7, 3,1,3, x ,"}
	got := cfg.ExpiryDayThresholds()
	want := []int{1, 3, 7}
	if len(got) != len(want) {
		t.Fatalf("thresholds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("thresholds = %v, want %v", got, want)
		}
	}
}

func TestExpiryDayThresholds_Empty(t *testing.T) {
	cfg := &Config{PasswordExpiryDays: ""}
	if got := cfg.ExpiryDayThresholds(); len(got) != 0 {
		t.Errorf("thresholds = %v, want empty", got)
	}
}
