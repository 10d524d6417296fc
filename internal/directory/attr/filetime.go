// Package attr converts between directory-native attribute encodings and
// domain values. Pure functions, no I/O.
package attr

import (
	"math"
	"time"
)

// Directory time attributes count 100-nanosecond ticks since 1601-01-01T00:00:00Z.
const (
	ticksPerSecond = 10_000_000
	// epochOffsetSeconds is the gap between the directory epoch and the Unix epoch.
	epochOffsetSeconds int64 = 11_644_473_600
	// neverTicks is the sentinel some attributes use for "no expiry".
	neverTicks int64 = 0x7FFFFFFFFFFFFFFF
)

// TicksToTime converts a tick count to a UTC timestamp. Values <= 0 and the
// never-expires sentinel mean "not set" and return nil.
func TicksToTime(raw int64) *time.Time {
	if raw <= 0 || raw >= neverTicks {
		return nil
	}
	secs := raw/ticksPerSecond - epochOffsetSeconds
	rem := raw % ticksPerSecond
	t := time.Unix(secs, rem*100).UTC()
	return &t
}

// TimeToTicks converts a timestamp to a tick count. Date-only inputs should be
// passed at midnight UTC.
func TimeToTicks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()+epochOffsetSeconds)*ticksPerSecond + int64(t.Nanosecond()/100)
}

// IntervalTicksToDays converts a negative tick interval (directory "age"
// attributes such as maxPwdAge) to whole days. Zero means "never" and returns nil.
func IntervalTicksToDays(raw int64) *int {
	if raw == 0 {
		return nil
	}
	if raw < 0 {
		raw = -raw
	}
	days := int(raw / ticksPerSecond / 86_400)
	return &days
}

// DaysLeft returns the number of whole days from now until expiry, rounded
// toward negative infinity. An expiry in the past is always negative, even
// within the first day, so callers can filter expired entries.
func DaysLeft(expiry, now time.Time) int {
	return int(math.Floor(expiry.Sub(now).Hours() / 24))
}
