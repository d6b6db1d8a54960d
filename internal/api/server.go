package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mailcouncil/internal/api/auth"
	"github.com/mailcouncil/internal/debate"
	"github.com/mailcouncil/internal/events"
	"github.com/mailcouncil/internal/tasks"
	"github.com/mailcouncil/internal/teams"
)

// Options carries the server's dependencies and tunables.
type Options struct {
	Host              string
	Port              int
	Engine            *debate.Engine
	Tracker           *tasks.Tracker
	Teams             *teams.Registry
	Bus               *events.Broadcaster
	JWTSecret         string
	APIKeyHash        string
	HeartbeatInterval time.Duration
}

// Server represents the API server
type Server struct {
	echo      *echo.Echo
	host      string
	port      int
	engine    *debate.Engine
	tracker   *tasks.Tracker
	teams     *teams.Registry
	bus       *events.Broadcaster
	heartbeat time.Duration
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	heartbeat := opts.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}

	server := &Server{
		echo:      e,
		host:      opts.Host,
		port:      opts.Port,
		engine:    opts.Engine,
		tracker:   opts.Tracker,
		teams:     opts.Teams,
		bus:       opts.Bus,
		heartbeat: heartbeat,
	}

	// Setup routes
	server.setupRoutes(opts.JWTSecret, opts.APIKeyHash)

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes(jwtSecret, apiKeyHash string) {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// Prometheus metrics and the API contract stay open: both are consumed
	// by infrastructure, not end users.
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/openapi.json", s.getOpenAPISpec)

	// API v1 group
	v1 := s.echo.Group("/api/v1")
	if mw, enabled := auth.Middleware(jwtSecret, apiKeyHash); enabled {
		v1.Use(mw)
	}

	// Debate endpoints
	v1.POST("/debates", s.createDebate)
	v1.GET("/debates", s.listDebates)
	v1.GET("/debates/:id", s.getDebate)
	v1.POST("/debates/:id/cancel", s.cancelDebate)

	// Team catalog
	v1.GET("/teams", s.listTeams)
	v1.GET("/teams/:key", s.getTeam)

	// Live event streams
	v1.GET("/events", s.streamEvents)
	v1.GET("/events/ws", s.streamEventsWS)
}

// Handler exposes the router so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf("%s:%d", s.host, s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
