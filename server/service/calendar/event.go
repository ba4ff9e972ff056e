// Package calendar holds the event model and conflict analysis for the
// natural-language scheduling pipeline.
package calendar

import "time"

// Category classifies an event.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryMeeting  Category = "meeting"
	CategoryBreak    Category = "break"
	CategoryFocus    Category = "focus"
	CategoryOther    Category = "other"
)

// ParseCategory maps a raw string to a Category, defaulting to other for
// unrecognized values.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryWork, CategoryPersonal, CategoryMeeting, CategoryBreak, CategoryFocus, CategoryOther:
		return Category(s)
	default:
		return CategoryOther
	}
}

// Priority ranks an event's importance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority maps a raw string to a Priority, defaulting to medium for
// unrecognized values.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return Priority(s)
	default:
		return PriorityMedium
	}
}

// CandidateEvent is a structured event extracted from natural language,
// not yet persisted by the caller. Immutable once produced.
type CandidateEvent struct {
	Title          string    `json:"title"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	IsAllDay       bool      `json:"isAllDay"`
	RecurrenceRule string    `json:"recurrenceRule,omitempty"`
	Location       string    `json:"location,omitempty"`
	Description    string    `json:"description,omitempty"`
	Category       Category  `json:"category"`
	Priority       Priority  `json:"priority"`
	Confidence     float64   `json:"confidence"`
}

// Duration returns the event's length. All-day events report 24 hours.
func (e *CandidateEvent) Duration() time.Duration {
	if e.IsAllDay {
		return 24 * time.Hour
	}
	return e.EndTime.Sub(e.StartTime)
}

// Overlaps reports whether the event's interval strictly intersects other's.
func (e *CandidateEvent) Overlaps(other *CandidateEvent) bool {
	return e.StartTime.Before(other.EndTime) && other.StartTime.Before(e.EndTime)
}
