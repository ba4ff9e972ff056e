package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryMeeting, ParseCategory("meeting"))
	assert.Equal(t, CategoryFocus, ParseCategory("focus"))
	assert.Equal(t, CategoryOther, ParseCategory("standup"))
	assert.Equal(t, CategoryOther, ParseCategory(""))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityUrgent, ParsePriority("urgent"))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityMedium, ParsePriority("critical"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
}

func TestCandidateEvent_Duration(t *testing.T) {
	ev := mkEvent("focus block", at(9, 0), at(10, 30))
	assert.Equal(t, 90*time.Minute, ev.Duration())

	allDay := mkEvent("holiday", at(0, 0), at(0, 0))
	allDay.IsAllDay = true
	assert.Equal(t, 24*time.Hour, allDay.Duration())
}

func TestCandidateEvent_Overlaps(t *testing.T) {
	a := mkEvent("a", at(9, 0), at(10, 0))
	b := mkEvent("b", at(9, 30), at(10, 30))
	touching := mkEvent("c", at(10, 0), at(11, 0))

	assert.True(t, a.Overlaps(&b))
	assert.True(t, b.Overlaps(&a))
	assert.False(t, a.Overlaps(&touching))
	assert.False(t, touching.Overlaps(&a))
}
