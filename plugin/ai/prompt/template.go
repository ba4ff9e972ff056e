// Package prompt provides named prompt templates and context binding for
// the scheduling pipeline.
package prompt

import "sync"

// Template is a named, immutable prompt configuration. Loaded once at
// startup and never mutated at runtime.
type Template struct {
	Name         string
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Registry holds the process-wide template set. Constructed once at service
// start and injected; lookups are read-only after construction.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry creates a registry preloaded with the given templates.
func NewRegistry(templates ...*Template) *Registry {
	r := &Registry{templates: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		r.templates[t.Name] = t
	}
	return r
}

// Get returns the template by name, or nil when unknown.
func (r *Registry) Get(name string) *Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[name]
}

// Register adds or replaces a template. Intended for startup wiring only.
func (r *Registry) Register(t *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.Name] = t
}

// Names returns the registered template names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// TemplateCalendarParsing is the default template for turning free text
// into structured calendar events.
const TemplateCalendarParsing = "calendar_parsing"

const calendarParsingSystem = `You are a calendar assistant that extracts structured events from natural language.

Current date: {{current_date}}
Timezone: {{timezone}}
Working hours: {{working_hours}}

Existing events:
{{existing_events}}

User preferences: {{user_preferences}}

Respond with JSON only, in this exact shape:
{"events":[{"title":"...","startTime":"RFC3339","endTime":"RFC3339","isAllDay":false,"category":"work|personal|meeting|break|focus|other","priority":"low|medium|high|urgent","location":"","description":"","recurrenceRule":"","confidence":0.0}],"message":"short summary","suggestions":["..."]}

Rules:
- startTime and endTime are RFC3339 timestamps in the user's timezone.
- confidence is your certainty in [0,1] that the event matches intent.
- Omit events you cannot ground in the input. Never invent times.`

const calendarParsingUser = `{{user_input}}`

// DefaultTemplates returns the built-in template set. The model and token
// budget come from per-process configuration; callers override them before
// registering when the profile specifies different values.
func DefaultTemplates(model string, maxTokens int) []*Template {
	return []*Template{
		{
			Name:         TemplateCalendarParsing,
			SystemPrompt: calendarParsingSystem,
			UserPrompt:   calendarParsingUser,
			Model:        model,
			Temperature:  0.2,
			MaxTokens:    maxTokens,
		},
	}
}
