package prompt

import (
	"fmt"
	"strings"
	"time"
)

// ExistingEvent is the minimal view of an already-scheduled event passed
// into the prompt context.
type ExistingEvent struct {
	Title string
	Start time.Time
	End   time.Time
}

// Context is the bag of request-scoped facts bound into a template.
// Missing fields serialize to an empty representation.
type Context struct {
	Timezone       string
	CurrentDate    time.Time
	WorkingHours   string
	ExistingEvents []ExistingEvent
	Preferences    string
	Input          string
}

// FormattedPrompt is the result of binding a template with a context.
type FormattedPrompt struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Format substitutes every named placeholder in the template's prompt text
// with the serialized context field. Unresolved placeholders are left
// verbatim; downstream validation absorbs the quality loss. Pure function,
// never fails.
func Format(tmpl *Template, ctx Context) FormattedPrompt {
	replacer := strings.NewReplacer(
		"{{timezone}}", ctx.Timezone,
		"{{current_date}}", serializeDate(ctx.CurrentDate),
		"{{working_hours}}", ctx.WorkingHours,
		"{{existing_events}}", serializeEvents(ctx.ExistingEvents),
		"{{user_preferences}}", ctx.Preferences,
		"{{user_input}}", ctx.Input,
	)

	return FormattedPrompt{
		SystemPrompt: replacer.Replace(tmpl.SystemPrompt),
		UserPrompt:   replacer.Replace(tmpl.UserPrompt),
		Model:        tmpl.Model,
		Temperature:  tmpl.Temperature,
		MaxTokens:    tmpl.MaxTokens,
	}
}

func serializeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 (Monday)")
}

func serializeEvents(events []ExistingEvent) string {
	if len(events) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "- %s: %s to %s\n",
			ev.Title,
			ev.Start.Format(time.RFC3339),
			ev.End.Format(time.RFC3339))
	}
	return strings.TrimRight(b.String(), "\n")
}
