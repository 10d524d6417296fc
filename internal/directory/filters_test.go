package directory

import (
	"strings"
	"testing"
)

func TestUserSearchFilter_NoQuery(t *testing.T) {
	got := userSearchFilter("", nil)
	want := "(&(objectClass=user)(objectClass=person)(!(objectClass=computer)))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUserSearchFilter_QueryEscaped(t *testing.T) {
	got := userSearchFilter("a*(b)", nil)
	if strings.Contains(got, "*b") || strings.Contains(got, "a*(") {
		t.Errorf("wildcards and parens should be stripped/escaped: %q", got)
	}
	if !strings.Contains(got, "(sAMAccountName=*a") {
		t.Errorf("missing substring clause: %q", got)
	}
	for _, attr := range []string{"displayName", "cn", "mail", "mobile"} {
		if !strings.Contains(got, "("+attr+"=*") {
			t.Errorf("missing %s clause: %q", attr, got)
		}
	}
}

func TestUserSearchFilter_EnabledFlag(t *testing.T) {
	enabled := true
	got := userSearchFilter("", &enabled)
	if !strings.Contains(got, "(!(userAccountControl:1.2.840.113556.1.4.803:=2))") {
		t.Errorf("enabled filter should exclude the disabled bit: %q", got)
	}

	enabled = false
	got = userSearchFilter("", &enabled)
	if !strings.Contains(got, "(userAccountControl:1.2.840.113556.1.4.803:=2)") ||
		strings.Contains(got, "(!(userAccountControl") {
		t.Errorf("disabled filter should require the disabled bit: %q", got)
	}
}

func TestAccountNameFilter_Escapes(t *testing.T) {
	got := accountNameFilter("jo(hn)*")
	if strings.Contains(got, "(h") || strings.Contains(got, "*)") {
		t.Errorf("special characters must be escaped: %q", got)
	}
	if !strings.HasPrefix(got, "(sAMAccountName=") {
		t.Errorf("unexpected shape: %q", got)
	}
}

func TestMemberFilter(t *testing.T) {
	got := memberFilter("CN=Jane,OU=Staff,DC=corp,DC=example,DC=com")
	if !strings.HasPrefix(got, "(member=CN=Jane") {
		t.Errorf("unexpected shape: %q", got)
	}
}
