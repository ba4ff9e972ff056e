package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/tempo/internal/errors"
	"github.com/hrygo/tempo/plugin/ai"
	"github.com/hrygo/tempo/plugin/ai/prompt"
	"github.com/hrygo/tempo/server/service/calendar"
	"github.com/hrygo/tempo/server/timezone"
)

// CompletionService is the slice of the completion client the extractor
// needs. Tests substitute a fake.
type CompletionService interface {
	Complete(ctx context.Context, messages []ai.Message, cfg ai.ModelConfig) (*ai.Completion, error)
}

// Result is the structured outcome of one extraction run. Usage is
// reported so the caller can record it with the token tracker; the
// extractor itself has no side effects.
type Result struct {
	Events      []calendar.CandidateEvent
	Message     string
	Suggestions []string
	Model       string
	Usage       ai.Usage
}

// Extractor orchestrates prompt formatting, model completion and schema
// validation to turn one utterance into candidate events.
type Extractor struct {
	registry *prompt.Registry
	client   CompletionService
	logger   *slog.Logger
}

// NewExtractor creates an event extractor.
func NewExtractor(registry *prompt.Registry, client CompletionService) *Extractor {
	return &Extractor{
		registry: registry,
		client:   client,
		logger:   slog.Default(),
	}
}

// Extract runs the pipeline for one utterance: template lookup, context
// binding, JSON-mode completion, validation, and conversion of parsed
// instants into the caller's timezone. Confidence scores pass through from
// the model unchanged.
func (e *Extractor) Extract(ctx context.Context, templateName, utterance string, pctx prompt.Context) (*Result, error) {
	tmpl := e.registry.Get(templateName)
	if tmpl == nil {
		return nil, errors.TemplateNotFound(templateName)
	}

	pctx.Input = utterance
	formatted := prompt.Format(tmpl, pctx)

	messages := []ai.Message{
		ai.SystemMessage(formatted.SystemPrompt),
		ai.UserMessage(formatted.UserPrompt),
	}

	completion, err := e.client.Complete(ctx, messages, ai.ModelConfig{
		Model:       formatted.Model,
		Temperature: formatted.Temperature,
		MaxTokens:   formatted.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	loc := e.resolveLocation(pctx.Timezone)
	parsed, err := Validate(completion.Content, loc)
	if err != nil {
		return nil, err
	}

	events := make([]calendar.CandidateEvent, len(parsed.Events))
	for i, ev := range parsed.Events {
		ev.StartTime = ev.StartTime.In(loc)
		ev.EndTime = ev.EndTime.In(loc)
		events[i] = ev
	}

	e.logger.Debug("extraction complete",
		"template", templateName,
		"event_count", len(events),
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens)

	return &Result{
		Events:      events,
		Message:     parsed.Message,
		Suggestions: parsed.Suggestions,
		Model:       completion.Model,
		Usage:       completion.Usage,
	}, nil
}

func (e *Extractor) resolveLocation(tz string) *time.Location {
	loc, err := timezone.Parse(tz)
	if err != nil {
		e.logger.Warn("unknown timezone, falling back to UTC", "timezone", tz)
	}
	return loc
}
