package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tempo/internal/errors"
	"github.com/hrygo/tempo/server/service/assistant"
	"github.com/hrygo/tempo/server/service/calendar"
)

// parseRequest is the JSON body for both parse endpoints.
type parseRequest struct {
	Utterance    string `json:"utterance"`
	Template     string `json:"template"`
	Timezone     string `json:"timezone"`
	WorkingHours string `json:"workingHours"`
	Preferences  string `json:"preferences"`
	SessionID    string `json:"sessionId"`
	ThreadID     string `json:"threadId"`

	ExistingEvents []existingEvent `json:"existingEvents"`
}

type existingEvent struct {
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location"`
}

func (r *parseRequest) toPipelineRequest(user string) assistant.Request {
	template := r.Template
	if template == "" {
		template = "calendar_parsing"
	}
	existing := make([]calendar.CandidateEvent, 0, len(r.ExistingEvents))
	for _, ev := range r.ExistingEvents {
		existing = append(existing, calendar.CandidateEvent{
			Title:     ev.Title,
			StartTime: ev.Start,
			EndTime:   ev.End,
			Location:  ev.Location,
			Category:  calendar.CategoryOther,
			Priority:  calendar.PriorityMedium,
		})
	}
	return assistant.Request{
		UserID:         user,
		Utterance:      r.Utterance,
		TemplateName:   template,
		Timezone:       r.Timezone,
		WorkingHours:   r.WorkingHours,
		Preferences:    r.Preferences,
		SessionID:      r.SessionID,
		ThreadID:       r.ThreadID,
		ExistingEvents: existing,
	}
}

func (s *APIV1Service) parse(c echo.Context) error {
	var req parseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Utterance == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "utterance is required")
	}

	resp, err := s.pipeline.Process(c.Request().Context(), req.toPipelineRequest(userID(c)))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *APIV1Service) parseStream(c echo.Context) error {
	var req parseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Utterance == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "utterance is required")
	}

	events, err := s.pipeline.ProcessStream(c.Request().Context(), req.toPipelineRequest(userID(c)))
	if err != nil {
		return httpError(err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
			return nil // client went away
		}
		resp.Flush()
	}
	return nil
}

// httpError maps pipeline error codes onto HTTP statuses: "fix your
// input" is 400, "not available" 404, "try again" 503.
func httpError(err error) *echo.HTTPError {
	switch errors.CodeOf(err, errors.ErrCodeTransientModel) {
	case errors.ErrCodeTemplateNotFound, errors.ErrCodeSchemaValidation, errors.ErrCodeInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.ErrCodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.ErrCodeModelAuthOrRequest, errors.ErrCodeEmptyCompletion:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
}
