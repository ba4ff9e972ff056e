package calendar

import "time"

// ConflictType classifies a detected scheduling collision.
type ConflictType string

const (
	ConflictOverlap           ConflictType = "overlap"
	ConflictSameTime          ConflictType = "same_time"
	ConflictInsufficientBreak ConflictType = "insufficient_break"
	ConflictTravelTime        ConflictType = "travel_time"
)

// Severity ranks how disruptive a conflict is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Conflict is a detected collision between two events. Derived, never
// stored; recomputed whenever the event set changes.
type Conflict struct {
	EventA   CandidateEvent `json:"eventA"`
	EventB   CandidateEvent `json:"eventB"`
	Type     ConflictType   `json:"type"`
	Severity Severity       `json:"severity"`
}

// minTravelGap is the minimum gap between events at different locations
// before a travel_time conflict fires.
const minTravelGap = 15 * time.Minute

// DetectConflicts finds pairwise conflicts in the given event set. The
// caller passes candidates and existing events merged into one slice.
//
// Output ordering is insertion order (i ascending, then j ascending) so
// results are reproducible. All-day events never conflict on time.
func DetectConflicts(events []CandidateEvent) []Conflict {
	var conflicts []Conflict

	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			a, b := &events[i], &events[j]
			if a.IsAllDay || b.IsAllDay {
				continue
			}

			if a.Overlaps(b) {
				conflicts = append(conflicts, Conflict{
					EventA:   *a,
					EventB:   *b,
					Type:     ConflictOverlap,
					Severity: overlapSeverity(a, b),
				})
			}

			// Identical start instants fire in addition to overlap.
			if a.StartTime.Equal(b.StartTime) {
				conflicts = append(conflicts, Conflict{
					EventA:   *a,
					EventB:   *b,
					Type:     ConflictSameTime,
					Severity: SeverityHigh,
				})
			}

			if gap, ok := gapBetween(a, b); ok {
				if gap == 0 && a.Category == CategoryMeeting && b.Category == CategoryMeeting {
					conflicts = append(conflicts, Conflict{
						EventA:   *a,
						EventB:   *b,
						Type:     ConflictInsufficientBreak,
						Severity: SeverityLow,
					})
				}
				if gap > 0 && gap < minTravelGap &&
					a.Location != "" && b.Location != "" && a.Location != b.Location {
					conflicts = append(conflicts, Conflict{
						EventA:   *a,
						EventB:   *b,
						Type:     ConflictTravelTime,
						Severity: SeverityMedium,
					})
				}
			}
		}
	}

	return conflicts
}

// overlapSeverity maps overlap duration to severity: more than 60 minutes
// is high, 30 minutes or more is medium, anything else low. The 30-minute
// boundary is inclusive so a half-hour collision already rates medium.
func overlapSeverity(a, b *CandidateEvent) Severity {
	overlap := overlapDuration(a, b)
	switch {
	case overlap > time.Hour:
		return SeverityHigh
	case overlap >= 30*time.Minute:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func overlapDuration(a, b *CandidateEvent) time.Duration {
	start := a.StartTime
	if b.StartTime.After(start) {
		start = b.StartTime
	}
	end := a.EndTime
	if b.EndTime.Before(end) {
		end = b.EndTime
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// gapBetween returns the gap between the earlier event's end and the later
// event's start. ok is false when the intervals overlap.
func gapBetween(a, b *CandidateEvent) (time.Duration, bool) {
	if a.Overlaps(b) {
		return 0, false
	}
	if !a.EndTime.After(b.StartTime) {
		return b.StartTime.Sub(a.EndTime), true
	}
	return a.StartTime.Sub(b.EndTime), true
}
