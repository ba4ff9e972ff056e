// Package server wires the scheduling pipeline into an HTTP process with
// an explicitly supervised maintenance schedule.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/tempo/internal/profile"
	"github.com/hrygo/tempo/plugin/ai"
	"github.com/hrygo/tempo/plugin/ai/extract"
	"github.com/hrygo/tempo/plugin/ai/prompt"
	"github.com/hrygo/tempo/plugin/ai/session"
	"github.com/hrygo/tempo/server/finops"
	"github.com/hrygo/tempo/server/middleware"
	apiv1 "github.com/hrygo/tempo/server/router/api/v1"
	"github.com/hrygo/tempo/server/service/assistant"
)

// Server owns the process-wide state: the conversation store, the usage
// tracker, the HTTP surface and the maintenance schedule. All of it is
// constructed here, injected downward, and torn down in Shutdown; nothing
// starts as a side effect of package import.
type Server struct {
	profile *profile.Profile
	echo    *echo.Echo
	cron    *cron.Cron

	Store   *session.Store
	Tracker *finops.Tracker
}

// New builds a fully wired server from the profile.
func New(p *profile.Profile) (*Server, error) {
	client := ai.NewClient(&ai.Config{
		BaseURL:      p.AIBaseURL,
		APIKey:       p.AIAPIKey,
		DefaultModel: p.AIModel,
	})

	registry := prompt.NewRegistry(prompt.DefaultTemplates(p.AIModel, p.AIMaxTokens)...)
	extractor := extract.NewExtractor(registry, client)
	store := session.NewStore()
	tracker := finops.NewTracker()
	pipeline := assistant.NewPipeline(registry, extractor, client, store, tracker)
	limiter := middleware.NewRateLimiter(p.RateLimitPerSecond, 0)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			slog.Info("http request",
				"uri", v.URI,
				"status", v.Status)
			return nil
		},
	}))

	apiv1.NewAPIV1Service(pipeline, store, tracker, limiter).RegisterRoutes(e)

	s := &Server{
		profile: p,
		echo:    e,
		cron:    cron.New(),
		Store:   store,
		Tracker: tracker,
	}

	// Maintenance is owned by the supervisor, not by the components.
	if _, err := s.cron.AddFunc("11 3 * * *", func() {
		tracker.Prune()
		store.CleanupIdle(time.Now().Add(-p.Retention()))
	}); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@every 10m", func() {
		limiter.Sweep()
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// Start runs the HTTP listener and the maintenance schedule until the
// context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.cron.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
		slog.Info("tempo server starting", "addr", addr, "mode", s.profile.Mode)
		return s.echo.Start(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.Shutdown()
	})
	return g.Wait()
}

// Shutdown stops the maintenance schedule and drains the HTTP listener.
func (s *Server) Shutdown() error {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
