// Package timezone centralizes IANA timezone handling so every part of
// the pipeline resolves user timezones the same way.
package timezone

import (
	"fmt"
	"time"
)

// Parse resolves an IANA timezone identifier (e.g. "America/New_York").
// An empty identifier means UTC. Returns UTC alongside the error when
// the identifier is invalid.
func Parse(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// Resolve is the lenient variant used on request paths: unknown
// identifiers silently degrade to UTC.
func Resolve(tz string) *time.Location {
	loc, _ := Parse(tz)
	return loc
}

// IsValid reports whether the identifier names a loadable timezone.
func IsValid(tz string) bool {
	_, err := Parse(tz)
	return err == nil
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).Add(24*time.Hour - time.Nanosecond)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
