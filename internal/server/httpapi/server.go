// Package httpapi exposes the session service over REST. It owns routing,
// request binding, bearer-token middleware, and the mapping from the error
// taxonomy to transport statuses.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/cordoeats/backend/internal/logging"
	"github.com/cordoeats/backend/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address  string
	engine   *gin.Engine
	logger   logging.Logger
	sessions *services.SessionService
}

func NewServer(address string, logger logging.Logger, sessions *services.SessionService) *Server {
	s := &Server{
		address:  address,
		logger:   logger.With("module", "http_server"),
		sessions: sessions,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestid.New())
	engine.Use(requestLogger(s.logger))
	s.engine = engine
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/auth")

	// public routes
	api.POST("/login", s.login)
	api.POST("/refresh", s.refresh)
	api.POST("/register", s.register)

	// private routes
	protected := api.Group("/")
	protected.Use(s.requireAuth())

	protected.GET("/me", s.me)
	protected.POST("/logout", s.logout)
	protected.POST("/change-password", s.changePassword)
	protected.POST("/deactivate", s.deactivate)
}

// Handler returns the configured engine. Test helper.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.engine}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
