// Package extract turns raw model output into validated candidate events.
package extract

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hrygo/tempo/internal/errors"
	"github.com/hrygo/tempo/server/service/calendar"
)

// ParsedResponse is the validated form of one model reply.
type ParsedResponse struct {
	Events      []calendar.CandidateEvent
	Message     string
	Suggestions []string
}

// rawResponse mirrors the JSON shape the model is instructed to emit.
type rawResponse struct {
	Events      []rawEvent `json:"events"`
	Message     string     `json:"message"`
	Suggestions []string   `json:"suggestions"`
}

type rawEvent struct {
	Title          string   `json:"title"`
	StartTime      string   `json:"startTime"`
	EndTime        string   `json:"endTime"`
	IsAllDay       bool     `json:"isAllDay"`
	RecurrenceRule string   `json:"recurrenceRule"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Priority       string   `json:"priority"`
	Confidence     *float64 `json:"confidence"`
}

// timestamp layouts tolerated from the model, tried in order.
var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Validate parses untrusted model JSON into a ParsedResponse. Field-level
// anomalies are repaired in place: confidence is clamped to [0,1], unknown
// categories default to other, unknown priorities to medium, and invalid
// recurrence rules are cleared. Batch-level anomalies — a missing events
// array, unparsable dates, a missing title — reject the whole response with
// an error naming the offending field.
//
// Timestamps without zone information are interpreted in loc.
func Validate(raw string, loc *time.Location) (*ParsedResponse, error) {
	if loc == nil {
		loc = time.UTC
	}

	cleaned := stripCodeFences(raw)

	var resp rawResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, errors.SchemaValidationCause("", "model output is not valid JSON", err)
	}
	if resp.Events == nil {
		return nil, errors.SchemaValidation("events", "model output is missing the events array")
	}

	result := &ParsedResponse{
		Events:      make([]calendar.CandidateEvent, 0, len(resp.Events)),
		Message:     resp.Message,
		Suggestions: resp.Suggestions,
	}

	for i, ev := range resp.Events {
		event, err := validateEvent(i, ev, loc)
		if err != nil {
			return nil, err
		}
		result.Events = append(result.Events, event)
	}

	return result, nil
}

func validateEvent(index int, ev rawEvent, loc *time.Location) (calendar.CandidateEvent, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return calendar.CandidateEvent{}, errors.SchemaValidation("title", "event title is empty")
	}

	start, err := parseEventTime(ev.StartTime, loc)
	if err != nil {
		return calendar.CandidateEvent{}, errors.SchemaValidationCause("startTime", "unparsable start time", err)
	}
	end, err := parseEventTime(ev.EndTime, loc)
	if err != nil {
		return calendar.CandidateEvent{}, errors.SchemaValidationCause("endTime", "unparsable end time", err)
	}
	if !ev.IsAllDay && !end.After(start) {
		return calendar.CandidateEvent{}, errors.SchemaValidation("endTime", "event ends before it starts")
	}

	confidence := 0.5
	if ev.Confidence != nil {
		confidence = clamp01(*ev.Confidence)
	}

	rule := strings.TrimSpace(ev.RecurrenceRule)
	if rule != "" {
		if _, err := rrule.StrToRRule(rule); err != nil {
			slog.Warn("dropping invalid recurrence rule",
				"event_index", index,
				"rule", rule,
				"error", err)
			rule = ""
		}
	}

	return calendar.CandidateEvent{
		Title:          strings.TrimSpace(ev.Title),
		StartTime:      start,
		EndTime:        end,
		IsAllDay:       ev.IsAllDay,
		RecurrenceRule: rule,
		Location:       ev.Location,
		Description:    ev.Description,
		Category:       calendar.ParseCategory(ev.Category),
		Priority:       calendar.ParsePriority(ev.Priority),
		Confidence:     confidence,
	}, nil
}

func parseEventTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range eventTimeLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// stripCodeFences removes a surrounding markdown code fence. Models in
// JSON mode occasionally wrap output in ```json blocks anyway.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
