// Package api exposes the daily record store over HTTP for UI and
// capture companions running on the same machine.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/mveikko/daybook-go/internal/conf"
	"github.com/mveikko/daybook-go/internal/datastore"
	"github.com/mveikko/daybook-go/internal/journal"
	"github.com/mveikko/daybook-go/internal/logging"
	"github.com/mveikko/daybook-go/internal/observability"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Processor *journal.Processor

	statsCache *cache.Cache
	apiLogger  *slog.Logger
	metrics    *observability.Metrics
}

// ErrorResponse is the standard JSON error body. The correlation ID ties
// a client-visible error to the corresponding log line.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// New creates the API controller and registers its routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	processor *journal.Processor, metrics *observability.Metrics) *Controller {

	apiLogger := logging.ForService("api")
	if apiLogger == nil {
		apiLogger = slog.Default().With("service", "api")
	}

	ttl := time.Duration(settings.WebServer.StatsCacheTTL) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	c := &Controller{
		Echo:       e,
		DS:         ds,
		Settings:   settings,
		Processor:  processor,
		statsCache: cache.New(ttl, 2*ttl),
		apiLogger:  apiLogger,
		metrics:    metrics,
	}

	c.Group = e.Group("/api/v1")
	c.initRecordRoutes()
	c.initSegmentRoutes()
	c.initVisitRoutes()
	c.initAnalyticsRoutes()

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return c
}

// NewServer builds an echo instance with the standard middleware stack and
// an attached controller. The caller owns Start/Shutdown.
func NewServer(ds datastore.Interface, settings *conf.Settings,
	processor *journal.Processor, metrics *observability.Metrics) (*echo.Echo, *Controller) {

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLoggerMiddleware())

	controller := New(e, ds, settings, processor, metrics)
	return e, controller
}

// requestLoggerMiddleware logs every request through the structured logger.
func requestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.Debug("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	})
}

// Shutdown stops the HTTP server gracefully.
func Shutdown(ctx context.Context, e *echo.Echo) error {
	return e.Shutdown(ctx)
}

// HandleError logs the error with a correlation ID and returns the
// standard error body.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := ErrorResponse{
		Error:         fmt.Sprintf("%v", err),
		Message:       message,
		Code:          code,
		CorrelationID: uuid.New().String()[:8],
	}

	c.apiLogger.Error("api error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", err,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method)

	return ctx.JSON(code, resp)
}

// logReadFallback records a read query that failed and is being served as
// an empty result. Reads never propagate store errors to the client.
func (c *Controller) logReadFallback(operation string, err error) {
	c.apiLogger.Error("read query failed, serving empty result",
		"operation", operation,
		"error", err)
	if c.metrics != nil {
		c.metrics.StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}
