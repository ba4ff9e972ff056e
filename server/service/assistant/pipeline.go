// Package assistant orchestrates the scheduling pipeline: extraction,
// conflict detection, conversation persistence and usage accounting.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hrygo/tempo/internal/errors"
	"github.com/hrygo/tempo/plugin/ai"
	"github.com/hrygo/tempo/plugin/ai/extract"
	"github.com/hrygo/tempo/plugin/ai/prompt"
	"github.com/hrygo/tempo/plugin/ai/session"
	"github.com/hrygo/tempo/server/finops"
	"github.com/hrygo/tempo/server/internal/observability"
	"github.com/hrygo/tempo/server/service/calendar"
	"github.com/hrygo/tempo/server/timezone"
)

// CompletionStreamer is the streaming slice of the completion client.
type CompletionStreamer interface {
	Stream(ctx context.Context, messages []ai.Message, cfg ai.ModelConfig) (<-chan ai.StreamChunk, <-chan error)
}

// Request is one utterance to run through the pipeline. Existing events
// and the user identity are resolved by the caller; the pipeline trusts
// them as given.
type Request struct {
	UserID       string
	Utterance    string
	TemplateName string
	Timezone     string
	WorkingHours string
	Preferences  string
	SessionID    string
	ThreadID     string

	ExistingEvents []calendar.CandidateEvent
}

// Response is the annotated result of one pipeline run.
type Response struct {
	Events      []calendar.CandidateEvent `json:"events"`
	Message     string                    `json:"message"`
	Suggestions []string                  `json:"suggestions"`
	Conflicts   []calendar.Conflict       `json:"conflicts"`
	SessionID   string                    `json:"sessionId"`
	ThreadID    string                    `json:"threadId"`
	Usage       ai.Usage                  `json:"usage"`
}

// StreamEventType labels frames on the streaming path.
type StreamEventType string

const (
	StreamEventChunk    StreamEventType = "chunk"
	StreamEventComplete StreamEventType = "complete"
	StreamEventError    StreamEventType = "error"
)

// StreamEvent is one frame delivered to a streaming caller.
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Delta    string          `json:"delta,omitempty"`
	Response *Response       `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Pipeline binds the pipeline components. The conversation store and the
// usage tracker are the only shared mutable state it touches; each run
// owns its data until results are published into them.
type Pipeline struct {
	registry  *prompt.Registry
	extractor *extract.Extractor
	streamer  CompletionStreamer
	store     *session.Store
	tracker   *finops.Tracker
	logger    *slog.Logger
}

// NewPipeline creates the pipeline orchestrator.
func NewPipeline(
	registry *prompt.Registry,
	extractor *extract.Extractor,
	streamer CompletionStreamer,
	store *session.Store,
	tracker *finops.Tracker,
) *Pipeline {
	return &Pipeline{
		registry:  registry,
		extractor: extractor,
		streamer:  streamer,
		store:     store,
		tracker:   tracker,
		logger:    slog.Default(),
	}
}

// Process runs one utterance through the full pipeline. Exactly one usage
// record and at most one persisted assistant message result from one
// logical request; completion-client retries are invisible here.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Response, error) {
	reqCtx := observability.NewRequestContext(p.logger, "parse", req.UserID)

	threadID, sessionID, err := p.ensureThread(req)
	if err != nil {
		return nil, err
	}

	if _, err := p.store.AddMessage(threadID, session.RoleUser, req.Utterance, nil); err != nil {
		return nil, err
	}

	result, err := p.extractor.Extract(ctx, req.TemplateName, req.Utterance, p.promptContext(req))
	if err != nil {
		reqCtx.Error("extraction failed", err,
			slog.String(observability.LogFieldTemplate, req.TemplateName))
		return nil, err
	}

	conflicts := p.detectConflicts(result.Events, req.ExistingEvents)
	response := p.publish(reqCtx, req, sessionID, threadID, result, conflicts)

	reqCtx.Info("pipeline run complete",
		slog.Int(observability.LogFieldEventCount, len(response.Events)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))

	return response, nil
}

// ProcessStream runs the pipeline with incremental delivery. Chunks are
// relayed in real time; the assistant message is persisted exactly once,
// after the terminal chunk. A canceled stream persists nothing.
func (p *Pipeline) ProcessStream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	tmpl := p.registry.Get(req.TemplateName)
	if tmpl == nil {
		return nil, errors.TemplateNotFound(req.TemplateName)
	}

	threadID, sessionID, err := p.ensureThread(req)
	if err != nil {
		return nil, err
	}

	reqCtx := observability.NewRequestContext(p.logger, "parse_stream", req.UserID)

	if _, err := p.store.AddMessage(threadID, session.RoleUser, req.Utterance, nil); err != nil {
		return nil, err
	}

	pctx := p.promptContext(req)
	pctx.Input = req.Utterance
	formatted := prompt.Format(tmpl, pctx)
	messages := []ai.Message{
		ai.SystemMessage(formatted.SystemPrompt),
		ai.UserMessage(formatted.UserPrompt),
	}

	chunks, errs := p.streamer.Stream(ctx, messages, ai.ModelConfig{
		Model:       formatted.Model,
		Temperature: formatted.Temperature,
		MaxTokens:   formatted.MaxTokens,
		JSONMode:    true,
	})

	events := make(chan StreamEvent)
	go func() {
		defer close(events)

		var buf strings.Builder
		var usage ai.Usage
		for chunk := range chunks {
			if chunk.Final {
				usage = chunk.Usage
				continue
			}
			buf.WriteString(chunk.Delta)
			select {
			case events <- StreamEvent{Type: StreamEventChunk, Delta: chunk.Delta}:
			case <-ctx.Done():
				return
			}
		}
		if err := <-errs; err != nil {
			reqCtx.Error("stream failed", err)
			p.emit(ctx, events, StreamEvent{Type: StreamEventError, Error: err.Error()})
			return
		}

		loc := p.resolveLocation(req.Timezone)
		parsed, err := extract.Validate(buf.String(), loc)
		if err != nil {
			reqCtx.Error("stream validation failed", err)
			p.emit(ctx, events, StreamEvent{Type: StreamEventError, Error: err.Error()})
			return
		}

		for i := range parsed.Events {
			parsed.Events[i].StartTime = parsed.Events[i].StartTime.In(loc)
			parsed.Events[i].EndTime = parsed.Events[i].EndTime.In(loc)
		}

		result := &extract.Result{
			Events:      parsed.Events,
			Message:     parsed.Message,
			Suggestions: parsed.Suggestions,
			Model:       formatted.Model,
			Usage:       usage,
		}
		conflicts := p.detectConflicts(result.Events, req.ExistingEvents)
		response := p.publish(reqCtx, req, sessionID, threadID, result, conflicts)

		p.emit(ctx, events, StreamEvent{Type: StreamEventComplete, Response: response})
	}()

	return events, nil
}

func (p *Pipeline) emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// ensureThread resolves or creates the session and thread for a request.
func (p *Pipeline) ensureThread(req Request) (threadID, sessionID string, err error) {
	sessionID = req.SessionID
	if sessionID == "" {
		sess := p.store.CreateSession(req.UserID, sessionTitle(req.Utterance))
		sessionID = sess.ID
	} else if p.store.GetSession(sessionID) == nil {
		return "", "", errors.NotFound("session", sessionID)
	}

	threadID = req.ThreadID
	if threadID == "" {
		thread, err := p.store.CreateThread(sessionID, "", session.ThreadMetadata{})
		if err != nil {
			return "", "", err
		}
		threadID = thread.ID
	} else if p.store.GetThread(threadID) == nil {
		return "", "", errors.NotFound("thread", threadID)
	}

	return threadID, sessionID, nil
}

// detectConflicts analyzes candidates against the existing set. Candidates
// come first so conflict ordering is stable for reproducible responses.
func (p *Pipeline) detectConflicts(candidates, existing []calendar.CandidateEvent) []calendar.Conflict {
	merged := make([]calendar.CandidateEvent, 0, len(candidates)+len(existing))
	merged = append(merged, candidates...)
	merged = append(merged, existing...)
	return calendar.DetectConflicts(merged)
}

// publish records usage and appends the assistant message atomically with
// its metadata, then builds the caller-facing response.
func (p *Pipeline) publish(
	reqCtx *observability.RequestContext,
	req Request,
	sessionID, threadID string,
	result *extract.Result,
	conflicts []calendar.Conflict,
) *Response {
	record, err := p.tracker.Track(req.UserID,
		result.Usage.PromptTokens, result.Usage.CompletionTokens,
		result.Model, reqCtx.RequestID)
	if err != nil {
		// Negative counts cannot come from a real completion; log and move on.
		reqCtx.Warn("usage tracking rejected", slog.String("error", err.Error()))
	}

	meta := &session.MessageMetadata{
		Events:           result.Events,
		Suggestions:      result.Suggestions,
		Conflicts:        conflicts,
		Model:            result.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
	}
	if record != nil {
		meta.Cost = record.Cost
	}
	if len(result.Events) > 0 {
		meta.Confidence = result.Events[0].Confidence
	}

	if _, err := p.store.AddMessage(threadID, session.RoleAssistant, result.Message, meta); err != nil {
		reqCtx.Error("failed to persist assistant message", err)
	}

	return &Response{
		Events:      result.Events,
		Message:     result.Message,
		Suggestions: result.Suggestions,
		Conflicts:   conflicts,
		SessionID:   sessionID,
		ThreadID:    threadID,
		Usage:       result.Usage,
	}
}

func (p *Pipeline) promptContext(req Request) prompt.Context {
	loc := p.resolveLocation(req.Timezone)
	existing := make([]prompt.ExistingEvent, 0, len(req.ExistingEvents))
	for _, ev := range req.ExistingEvents {
		existing = append(existing, prompt.ExistingEvent{
			Title: ev.Title,
			Start: ev.StartTime,
			End:   ev.EndTime,
		})
	}
	return prompt.Context{
		Timezone:       req.Timezone,
		CurrentDate:    time.Now().In(loc),
		WorkingHours:   req.WorkingHours,
		ExistingEvents: existing,
		Preferences:    req.Preferences,
	}
}

func (p *Pipeline) resolveLocation(tz string) *time.Location {
	return timezone.Resolve(tz)
}

// sessionTitle derives a session title from the first utterance. The cut
// backs up to a rune boundary so multi-byte text is never split mid-rune.
func sessionTitle(utterance string) string {
	const maxTitle = 48
	title := strings.TrimSpace(utterance)
	if len(title) <= maxTitle {
		return title
	}
	cut := maxTitle
	for cut > 0 && !utf8.RuneStart(title[cut]) {
		cut--
	}
	return title[:cut]
}
