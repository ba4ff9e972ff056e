// Package v1 exposes the scheduling pipeline over a thin HTTP surface.
// Handlers only decode requests, call the core and encode responses; the
// caller's identity and existing events arrive resolved in the request.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/tempo/plugin/ai/session"
	"github.com/hrygo/tempo/server/finops"
	"github.com/hrygo/tempo/server/middleware"
	"github.com/hrygo/tempo/server/service/assistant"
)

// APIV1Service wires the pipeline into the echo router.
type APIV1Service struct {
	pipeline *assistant.Pipeline
	store    *session.Store
	tracker  *finops.Tracker
	limiter  *middleware.RateLimiter
}

// NewAPIV1Service creates the v1 API service.
func NewAPIV1Service(
	pipeline *assistant.Pipeline,
	store *session.Store,
	tracker *finops.Tracker,
	limiter *middleware.RateLimiter,
) *APIV1Service {
	return &APIV1Service{
		pipeline: pipeline,
		store:    store,
		tracker:  tracker,
		limiter:  limiter,
	}
}

// RegisterRoutes mounts the v1 routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1", s.rateLimitMiddleware)

	g.POST("/parse", s.parse)
	g.POST("/parse/stream", s.parseStream)

	g.GET("/usage", s.usageStats)
	g.GET("/usage/limits", s.usageLimits)

	g.POST("/sessions", s.createSession)
	g.GET("/sessions", s.listSessions)
	g.GET("/sessions/:id", s.getSession)
	g.DELETE("/sessions/:id", s.deleteSession)
	g.GET("/sessions/:id/export", s.exportSession)
	g.POST("/sessions/import", s.importSession)
	g.GET("/sessions/:id/messages/search", s.searchMessages)

	g.POST("/sessions/:id/threads", s.createThread)
	g.GET("/threads/:id/messages", s.listMessages)
}

// userID resolves the caller identity placed on the request by the
// upstream auth collaborator.
func userID(c echo.Context) string {
	if id := c.Request().Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

func (s *APIV1Service) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.limiter.Allow(userID(c)) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		}
		return next(c)
	}
}
