package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tempo/plugin/ai"
	"github.com/hrygo/tempo/plugin/ai/extract"
	"github.com/hrygo/tempo/plugin/ai/prompt"
	"github.com/hrygo/tempo/plugin/ai/session"
	"github.com/hrygo/tempo/server/finops"
	"github.com/hrygo/tempo/server/middleware"
	"github.com/hrygo/tempo/server/service/assistant"
)

const modelOutput = `{
	"events": [{
		"title": "Meeting with Sam",
		"startTime": "2026-09-02T14:00:00Z",
		"endTime": "2026-09-02T15:00:00Z",
		"category": "meeting",
		"priority": "medium",
		"confidence": 0.9
	}],
	"message": "Scheduled.",
	"suggestions": []
}`

type fakeModel struct{ content string }

func (f *fakeModel) Complete(_ context.Context, _ []ai.Message, _ ai.ModelConfig) (*ai.Completion, error) {
	return &ai.Completion{
		Content: f.content,
		Model:   "gpt-4o-mini",
		Usage:   ai.Usage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130},
	}, nil
}

func (f *fakeModel) Stream(_ context.Context, _ []ai.Message, _ ai.ModelConfig) (<-chan ai.StreamChunk, <-chan error) {
	chunks := make(chan ai.StreamChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		chunks <- ai.StreamChunk{Delta: f.content}
		chunks <- ai.StreamChunk{Final: true, Usage: ai.Usage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130}}
	}()
	return chunks, errs
}

func newTestServer(rps int) (*echo.Echo, *session.Store) {
	model := &fakeModel{content: modelOutput}
	registry := prompt.NewRegistry(prompt.DefaultTemplates("gpt-4o-mini", 2048)...)
	store := session.NewStore()
	tracker := finops.NewTracker()
	pipeline := assistant.NewPipeline(registry, extract.NewExtractor(registry, model), model, store, tracker)

	e := echo.New()
	NewAPIV1Service(pipeline, store, tracker, middleware.NewRateLimiter(rps, 0)).RegisterRoutes(e)
	return e, store
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-User-ID", "alice")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestParse(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/parse",
		`{"utterance":"Meeting with Sam tomorrow 2pm","timezone":"UTC"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp assistant.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Meeting with Sam", resp.Events[0].Title)
	assert.NotEmpty(t, resp.SessionID)
}

func TestParse_MissingUtterance(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/parse", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParse_UnknownTemplateIsBadRequest(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/parse",
		`{"utterance":"hi","template":"missing"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseStream_EmitsSSE(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/parse/stream",
		`{"utterance":"Meeting with Sam tomorrow 2pm"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))

	body := rec.Body.String()
	assert.Contains(t, body, `"type":"chunk"`)
	assert.Contains(t, body, `"type":"complete"`)
	assert.True(t, strings.HasPrefix(body, "data: "))
}

func TestParse_ConflictReported(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/parse", `{
		"utterance": "Meeting with Sam tomorrow 2pm",
		"existingEvents": [{
			"title": "Standup",
			"start": "2026-09-02T14:30:00Z",
			"end": "2026-09-02T15:30:00Z"
		}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp assistant.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "Standup", resp.Conflicts[0].EventB.Title)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/sessions", `{"title":"planning"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	rec = doJSON(e, http.MethodGet, "/api/v1/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/threads", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var thread session.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))

	rec = doJSON(e, http.MethodGet, "/api/v1/threads/"+thread.ID+"/messages", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = doJSON(e, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/v1/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsageEndpoints(t *testing.T) {
	e, _ := newTestServer(100)

	rec := doJSON(e, http.MethodPost, "/api/v1/parse", `{"utterance":"Meeting with Sam"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/usage?timeframe=today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats finops.UsageStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Requests)
	assert.Equal(t, int64(130), stats.TotalTokens)

	rec = doJSON(e, http.MethodGet, "/api/v1/usage?timeframe=fortnight", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/usage/limits", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status finops.LimitStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.DailyExceeded)
}

func TestRateLimit(t *testing.T) {
	e, _ := newTestServer(1) // burst 2

	codes := make(map[int]int)
	for i := 0; i < 3; i++ {
		rec := doJSON(e, http.MethodGet, "/api/v1/usage", "")
		codes[rec.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 1, codes[http.StatusTooManyRequests])
}
