// routes.go - Route registration helpers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/upload"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/workflow"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Receiver *upload.Receiver
	Registry *workflow.Registry
	Client   ProcessingClient
	Version  string
}

// Handlers holds all handler instances.
type Handlers struct {
	Health  *HealthHandler
	Process *ProcessHandler
}

// NewHandlers creates all handler instances.
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Process: NewProcessHandler(deps.Receiver, deps.Registry, deps.Client),
	}
}

// RegisterRoutes registers all API routes with the Echo instance. The rate
// limiter wraps only the processing endpoint.
func RegisterRoutes(e *echo.Echo, handlers *Handlers, limiter echo.MiddlewareFunc) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)
	apiGroup.GET("/functions", handlers.Process.HandleListFunctions)
	apiGroup.POST("/process-image", handlers.Process.HandleProcessImage, limiter)
}

// RateLimiter returns a per-client-address limiter allowing maxRequests per
// window. Rejected requests get a plain 429 before any other work happens.
func RateLimiter(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(maxRequests) / window.Seconds()),
			Burst:     maxRequests,
			ExpiresIn: window,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.String(http.StatusTooManyRequests, "Too many requests, please try again later.")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.String(http.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	})
}
