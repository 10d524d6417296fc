package migrate

import (
	"errors"
	"strings"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", "up")
	if err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
	if !strings.Contains(err.Error(), "DB_URL") {
		t.Errorf("error = %q, should name the missing setting", err)
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		err := Run("postgres://localhost/test", direction)
		if err == nil {
			t.Errorf("Run with direction %q should return error", direction)
			continue
		}
		if !strings.Contains(err.Error(), "direction") {
			t.Errorf("direction %q: error = %q", direction, err)
		}
	}
}

func TestErrNoChangeExported(t *testing.T) {
	if ErrNoChange == nil {
		t.Fatal("ErrNoChange should not be nil")
	}
	if !errors.Is(ErrNoChange, ErrNoChange) {
		t.Error("ErrNoChange should be errors.Is compatible")
	}
}
