package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/caesium-cloud/jobassist/api/rest/v1"
	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

// New builds jobassist's API around an analysis cache and the
// analyzer service that reads through it.
func New(c *cache.Cache, svc *analyzer.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	// health
	e.GET("/health", Health)

	// metrics
	prometheus.NewPrometheus("jobassist", nil).Use(e)

	// REST
	rest.Bind(e.Group("/v1"), rest.Dependencies{
		Cache:    c,
		Analyzer: svc,
	})

	return e
}

// Start serves e on port until ctx is done, then shuts it down
// gracefully.
func Start(ctx context.Context, e *echo.Echo, port int) error {
	errCh := make(chan error, 1)

	go func() {
		log.Info("api listening", "port", port)
		errCh <- e.Start(fmt.Sprintf(":%v", port))
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "api server failure")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("api shutting down")

	if err := e.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "api shutdown failure")
	}

	return nil
}
