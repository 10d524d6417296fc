package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindAuthInvalid, "bad code")
	if KindOf(err) != KindAuthInvalid {
		t.Errorf("KindOf = %q, want %q", KindOf(err), KindAuthInvalid)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("KindOf should be empty for untagged errors")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := New(KindRateLimited, "locked")
	outer := fmt.Errorf("login: %w", inner)
	if !Is(outer, KindRateLimited) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestFromDirectory_PolicyHeuristic(t *testing.T) {
	err := FromDirectory(errors.New("0000052D: Constraint violation - the Password does not meet requirements"))
	if err.Kind != KindDirectoryPolicy {
		t.Errorf("Kind = %q, want %q", err.Kind, KindDirectoryPolicy)
	}
}

func TestFromDirectory_NonLeaf(t *testing.T) {
	err := FromDirectory(errors.New("NDS error: CANT_ON_NON_LEAF"))
	if err.Kind != KindDirectoryNonLeaf {
		t.Errorf("Kind = %q, want %q", err.Kind, KindDirectoryNonLeaf)
	}
}

func TestFromDirectory_Generic(t *testing.T) {
	err := FromDirectory(errors.New("server unwilling to perform"))
	if err.Kind != KindDirectory {
		t.Errorf("Kind = %q, want %q", err.Kind, KindDirectory)
	}
}

func TestFromDirectory_PreservesExistingKind(t *testing.T) {
	orig := New(KindNotFound, "user not found")
	err := FromDirectory(orig)
	if err.Kind != KindNotFound {
		t.Errorf("Kind = %q, want %q", err.Kind, KindNotFound)
	}
}

func TestFromDirectory_Nil(t *testing.T) {
	if FromDirectory(nil) != nil {
		t.Error("FromDirectory(nil) should be nil")
	}
}
