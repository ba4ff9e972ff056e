package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	loc, err := Parse("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	loc, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = Parse("Not/AZone")
	assert.Error(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, time.UTC, Resolve("Not/AZone"))
	assert.Equal(t, "Asia/Tokyo", Resolve("Asia/Tokyo").String())
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("UTC"))
	assert.True(t, IsValid(""))
	assert.True(t, IsValid("Europe/Paris"))
	assert.False(t, IsValid("Mars/Olympus"))
}

func TestDayBounds(t *testing.T) {
	loc, _ := Parse("America/New_York")
	// 2026-09-01 03:30 UTC is still 2026-08-31 in New York.
	instant := time.Date(2026, 9, 1, 3, 30, 0, 0, time.UTC)

	start := StartOfDay(instant, loc)
	assert.Equal(t, 31, start.Day())
	assert.Equal(t, 0, start.Hour())

	end := EndOfDay(instant, loc)
	assert.Equal(t, 31, end.Day())
	assert.Equal(t, 23, end.Hour())
}

func TestSameDay(t *testing.T) {
	loc, _ := Parse("America/New_York")
	a := time.Date(2026, 9, 1, 3, 30, 0, 0, time.UTC)  // Aug 31 in NY
	b := time.Date(2026, 8, 31, 22, 0, 0, 0, time.UTC) // Aug 31 in NY

	assert.True(t, SameDay(a, b, loc))
	assert.False(t, SameDay(a, b, time.UTC))
}
