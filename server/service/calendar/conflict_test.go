package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkEvent(title string, start, end time.Time) CandidateEvent {
	return CandidateEvent{
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Category:  CategoryOther,
		Priority:  PriorityMedium,
	}
}

func at(h, m int) time.Time {
	return time.Date(2026, 9, 1, h, m, 0, 0, time.UTC)
}

func TestDetectConflicts_OverlapSeverity(t *testing.T) {
	tests := []struct {
		name     string
		aStart   time.Time
		aEnd     time.Time
		bStart   time.Time
		bEnd     time.Time
		severity Severity
	}{
		{
			name:   "overlap of 29 minutes is low",
			aStart: at(14, 0), aEnd: at(15, 0),
			bStart: at(14, 31), bEnd: at(15, 30),
			severity: SeverityLow,
		},
		{
			name:   "overlap of exactly 30 minutes is medium",
			aStart: at(14, 0), aEnd: at(15, 0),
			bStart: at(14, 30), bEnd: at(15, 30),
			severity: SeverityMedium,
		},
		{
			name:   "overlap of exactly 60 minutes is medium",
			aStart: at(14, 0), aEnd: at(15, 0),
			bStart: at(14, 0), bEnd: at(15, 0),
			severity: SeverityMedium,
		},
		{
			name:   "overlap of 61 minutes is high",
			aStart: at(14, 0), aEnd: at(15, 1),
			bStart: at(14, 0), bEnd: at(16, 0),
			severity: SeverityHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := []CandidateEvent{
				mkEvent("a", tt.aStart, tt.aEnd),
				mkEvent("b", tt.bStart, tt.bEnd),
			}
			conflicts := DetectConflicts(events)
			require.NotEmpty(t, conflicts)
			assert.Equal(t, ConflictOverlap, conflicts[0].Type)
			assert.Equal(t, tt.severity, conflicts[0].Severity)
		})
	}
}

func TestDetectConflicts_PartialOverlapSingleConflict(t *testing.T) {
	// 2:00-3:00 vs 2:30-3:30: one overlap conflict, 30 minutes, medium.
	events := []CandidateEvent{
		mkEvent("standup", at(14, 0), at(15, 0)),
		mkEvent("review", at(14, 30), at(15, 30)),
	}

	conflicts := DetectConflicts(events)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictOverlap, conflicts[0].Type)
	assert.Equal(t, SeverityMedium, conflicts[0].Severity)
}

func TestDetectConflicts_SameStartFiresBothTypes(t *testing.T) {
	events := []CandidateEvent{
		mkEvent("a", at(9, 0), at(10, 0)),
		mkEvent("b", at(9, 0), at(9, 30)),
	}

	conflicts := DetectConflicts(events)
	require.Len(t, conflicts, 2)
	assert.Equal(t, ConflictOverlap, conflicts[0].Type)
	assert.Equal(t, ConflictSameTime, conflicts[1].Type)
	assert.Equal(t, SeverityHigh, conflicts[1].Severity)
}

func TestDetectConflicts_BackToBackIsNotOverlap(t *testing.T) {
	events := []CandidateEvent{
		mkEvent("a", at(9, 0), at(10, 0)),
		mkEvent("b", at(10, 0), at(11, 0)),
	}

	assert.Empty(t, DetectConflicts(events))
}

func TestDetectConflicts_InsufficientBreak(t *testing.T) {
	a := mkEvent("sync", at(9, 0), at(10, 0))
	b := mkEvent("planning", at(10, 0), at(11, 0))
	a.Category = CategoryMeeting
	b.Category = CategoryMeeting

	conflicts := DetectConflicts([]CandidateEvent{a, b})
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictInsufficientBreak, conflicts[0].Type)
	assert.Equal(t, SeverityLow, conflicts[0].Severity)
}

func TestDetectConflicts_TravelTime(t *testing.T) {
	tests := []struct {
		name      string
		gap       time.Duration
		locA      string
		locB      string
		conflicts int
	}{
		{"10 minute gap, different locations", 10 * time.Minute, "Office A", "Office B", 1},
		{"exactly 15 minute gap is enough", 15 * time.Minute, "Office A", "Office B", 0},
		{"same location never fires", 10 * time.Minute, "Office A", "Office A", 0},
		{"missing location never fires", 10 * time.Minute, "", "Office B", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mkEvent("first", at(9, 0), at(10, 0))
			b := mkEvent("second", at(10, 0).Add(tt.gap), at(11, 30))
			a.Location = tt.locA
			b.Location = tt.locB

			conflicts := DetectConflicts([]CandidateEvent{a, b})
			require.Len(t, conflicts, tt.conflicts)
			if tt.conflicts > 0 {
				assert.Equal(t, ConflictTravelTime, conflicts[0].Type)
				assert.Equal(t, SeverityMedium, conflicts[0].Severity)
			}
		})
	}
}

func TestDetectConflicts_AllDayEventsSkipped(t *testing.T) {
	allDay := mkEvent("holiday", at(0, 0), at(0, 0))
	allDay.IsAllDay = true
	meeting := mkEvent("meeting", at(10, 0), at(11, 0))

	assert.Empty(t, DetectConflicts([]CandidateEvent{allDay, meeting}))
}

func TestDetectConflicts_OrderIsStable(t *testing.T) {
	events := []CandidateEvent{
		mkEvent("a", at(9, 0), at(12, 0)),
		mkEvent("b", at(9, 30), at(10, 30)),
		mkEvent("c", at(11, 0), at(13, 0)),
	}

	conflicts := DetectConflicts(events)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "a", conflicts[0].EventA.Title)
	assert.Equal(t, "b", conflicts[0].EventB.Title)
	assert.Equal(t, "a", conflicts[1].EventA.Title)
	assert.Equal(t, "c", conflicts[1].EventB.Title)
}

func TestOverlapDuration(t *testing.T) {
	a := mkEvent("a", at(14, 0), at(15, 0))
	b := mkEvent("b", at(14, 30), at(15, 30))

	assert.Equal(t, 30*time.Minute, overlapDuration(&a, &b))
	assert.Equal(t, 30*time.Minute, overlapDuration(&b, &a))
}
