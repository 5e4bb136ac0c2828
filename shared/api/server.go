// Package api serves the analytics dataset and the view predictor over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yt-analytics/shared/logger"
	"yt-analytics/shared/monitoring"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 15 * time.Second
)

// Server is the HTTP front of the analytics service.
type Server struct {
	server *http.Server
	log    logger.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(h *Handler, monitor *monitoring.Monitor, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))

	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(monitor.Registry(), promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	v1.GET("/videos", h.Videos)
	v1.GET("/trending", h.Trending)
	v1.GET("/timeline", h.Timeline)
	v1.GET("/summary", h.Summary)
	v1.GET("/keywords", h.Keywords)
	v1.GET("/sentiment", h.Sentiment)
	v1.GET("/words", h.Words)
	v1.POST("/predict", h.Predict)

	return router
}

// NewServer creates a server listening on addr.
func NewServer(addr string, h *Handler, monitor *monitoring.Monitor, log logger.Logger, debug bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := NewRouter(h, monitor, log)
	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		log: log,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.String("address", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
