package attr

import (
	"testing"
	"time"
)

func TestTicksToTime_NotSet(t *testing.T) {
	if TicksToTime(0) != nil {
		t.Error("TicksToTime(0) should be nil")
	}
	if TicksToTime(-1) != nil {
		t.Error("TicksToTime(negative) should be nil")
	}
	if TicksToTime(0x7FFFFFFFFFFFFFFF) != nil {
		t.Error("TicksToTime(never sentinel) should be nil")
	}
}

func TestTicksToTime_KnownValue(t *testing.T) {
	// 1601-01-01 + exactly one day.
	got := TicksToTime(864_000_000_000)
	if got == nil {
		t.Fatal("expected a timestamp")
	}
	want := time.Date(1601, 1, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTicksRoundTrip(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 3, 15, 12, 30, 45, 0, time.UTC),
		time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, want := range times {
		got := TicksToTime(TimeToTicks(want))
		if got == nil || !got.Equal(want) {
			t.Errorf("round trip of %v = %v", want, got)
		}
	}
}

func TestTimeToTicks_MidnightUTC(t *testing.T) {
	// An expiry date written by an admin is interpreted at midnight UTC.
	d := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)
	ticks := TimeToTicks(d)
	back := TicksToTime(ticks)
	if back == nil || !back.Equal(d) {
		t.Fatalf("round trip of %v = %v", d, back)
	}
	if ticks%864_000_000_000 != 0 {
		t.Errorf("midnight date should be a whole number of day-ticks, got %d", ticks)
	}
}

func TestIntervalTicksToDays(t *testing.T) {
	if IntervalTicksToDays(0) != nil {
		t.Error("zero interval means never, want nil")
	}
	// maxPwdAge of 42 days is stored as a negative interval.
	got := IntervalTicksToDays(-42 * 864_000_000_000)
	if got == nil || *got != 42 {
		t.Errorf("got %v, want 42", got)
	}
	// Positive values are accepted too.
	got = IntervalTicksToDays(90 * 864_000_000_000)
	if got == nil || *got != 90 {
		t.Errorf("got %v, want 90", got)
	}
}

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	if d := DaysLeft(now.Add(72*time.Hour), now); d != 3 {
		t.Errorf("DaysLeft = %d, want 3", d)
	}
	if d := DaysLeft(now.Add(-25*time.Hour), now); d != -1 {
		t.Errorf("DaysLeft = %d, want -1", d)
	}
	// Expired within the last day still counts as past, not zero.
	if d := DaysLeft(now.Add(-12*time.Hour), now); d != -1 {
		t.Errorf("DaysLeft = %d, want -1", d)
	}
	if d := DaysLeft(now.Add(12*time.Hour), now); d != 0 {
		t.Errorf("DaysLeft = %d, want 0", d)
	}
}

func TestUACBits(t *testing.T) {
	mask := NormalizeUAC(0)
	if mask != UACNormalAccount {
		t.Fatalf("NormalizeUAC(0) = %#x, want %#x", mask, UACNormalAccount)
	}
	if IsDisabled(mask) {
		t.Error("normal account should not be disabled")
	}
	mask = WithDisabled(mask, true)
	if !IsDisabled(mask) {
		t.Error("disabled bit should be set")
	}
	// Setting twice is idempotent.
	if again := WithDisabled(mask, true); again != mask {
		t.Errorf("WithDisabled twice = %#x, want %#x", again, mask)
	}
	mask = WithDisabled(mask, false)
	if IsDisabled(mask) {
		t.Error("disabled bit should be cleared")
	}

	mask = WithNeverExpires(mask, true)
	if !NeverExpires(mask) {
		t.Error("never-expires bit should be set")
	}
	mask = WithNeverExpires(mask, false)
	if NeverExpires(mask) {
		t.Error("never-expires bit should be cleared")
	}
}

func TestEncodePassword(t *testing.T) {
	got := EncodePassword("abc")
	// "abc" quoted, little-endian UTF-16.
	want := []byte{'"', 0, 'a', 0, 'b', 0, 'c', 0, '"', 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

func TestDomainFromBaseDN(t *testing.T) {
	got := DomainFromBaseDN("ou=Staff,dc=corp,dc=example,dc=com")
	if got != "corp.example.com" {
		t.Errorf("got %q, want %q", got, "corp.example.com")
	}
}

func TestPrincipalName(t *testing.T) {
	got := PrincipalName("alice", "DC=corp,DC=example,DC=com")
	if got != "alice@corp.example.com" {
		t.Errorf("got %q, want %q", got, "alice@corp.example.com")
	}
}

func TestFirstRDNAndParent(t *testing.T) {
	dn := "CN=Jane Doe,OU=Staff,DC=corp,DC=example,DC=com"
	if got := FirstRDN(dn); got != "CN=Jane Doe" {
		t.Errorf("FirstRDN = %q", got)
	}
	if got := ParentDN(dn); got != "OU=Staff,DC=corp,DC=example,DC=com" {
		t.Errorf("ParentDN = %q", got)
	}
	if got := ParentDN("DC=com"); got != "" {
		t.Errorf("ParentDN of top-level = %q, want empty", got)
	}
}
