package calendar

import (
	"sort"
	"time"

	"github.com/hrygo/tempo/server/timezone"
)

// TimeSlot represents a free period that can host a rescheduled event.
type TimeSlot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Score      int       `json:"score"`
	IsOriginal bool      `json:"isOriginal"`
}

// WorkingHours bounds the daily window considered for alternatives.
type WorkingHours struct {
	StartHour int
	EndHour   int
}

// DefaultWorkingHours covers 8:00 to 22:00.
var DefaultWorkingHours = WorkingHours{StartHour: 8, EndHour: 22}

// SuggestAlternatives finds free slots for an event of the given duration on
// the requested day, scored by proximity to the requested time. When the
// requested slot itself is free it is returned alone with the top score.
func SuggestAlternatives(requested time.Time, duration time.Duration, existing []CandidateEvent, hours WorkingHours) []TimeSlot {
	if hours.EndHour <= hours.StartHour {
		hours = DefaultWorkingHours
	}

	requestedEnd := requested.Add(duration)
	probe := CandidateEvent{StartTime: requested, EndTime: requestedEnd}
	busyAtRequested := false
	for i := range existing {
		if existing[i].IsAllDay {
			continue
		}
		if probe.Overlaps(&existing[i]) {
			busyAtRequested = true
			break
		}
	}

	if !busyAtRequested {
		return []TimeSlot{{Start: requested, End: requestedEnd, Score: 1000, IsOriginal: true}}
	}

	slots := freeSlotsInDay(requested, duration, existing, hours)
	for i := range slots {
		slots[i].Score = scoreSlot(requested, slots[i])
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Score > slots[j].Score
	})
	return slots
}

// freeSlotsInDay walks the gaps between busy ranges within working hours.
func freeSlotsInDay(day time.Time, duration time.Duration, existing []CandidateEvent, hours WorkingHours) []TimeSlot {
	loc := day.Location()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), hours.StartHour, 0, 0, 0, loc)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), hours.EndHour, 0, 0, 0, loc)

	var busy []CandidateEvent
	for _, ev := range existing {
		if ev.IsAllDay {
			continue
		}
		if ev.EndTime.After(dayStart) && ev.StartTime.Before(dayEnd) {
			busy = append(busy, ev)
		}
	}
	sort.Slice(busy, func(i, j int) bool {
		return busy[i].StartTime.Before(busy[j].StartTime)
	})

	var slots []TimeSlot
	current := dayStart
	for _, b := range busy {
		if !b.EndTime.After(current) {
			continue
		}
		if b.StartTime.After(current) && b.StartTime.Sub(current) >= duration {
			slots = append(slots, TimeSlot{Start: current, End: current.Add(duration)})
		}
		if b.EndTime.After(current) {
			current = b.EndTime
		}
	}
	if dayEnd.Sub(current) >= duration {
		slots = append(slots, TimeSlot{Start: current, End: current.Add(duration)})
	}
	return slots
}

// scoreSlot ranks an alternative by closeness to the requested time and
// business-hours preference. Deterministic so suggestions are reproducible.
func scoreSlot(requested time.Time, slot TimeSlot) int {
	score := 0

	if timezone.SameDay(slot.Start, requested, requested.Location()) {
		score += 100
	}

	hourDiff := slot.Start.Hour() - requested.Hour()
	if hourDiff < 0 {
		hourDiff = -hourDiff
	}
	if hourDiff == 0 {
		score += 50
	} else {
		score += (24 - hourDiff) * 2
	}

	if (slot.Start.Hour() < 12) == (requested.Hour() < 12) {
		score += 20
	}

	switch h := slot.Start.Hour(); {
	case h >= 9 && h <= 11:
		score += 15
	case h >= 14 && h <= 16:
		score += 15
	case h >= 11 && h <= 13:
		score += 10
	}

	return score
}
