package main

import (
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/api"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/config"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/provider"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/storage"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/upload"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/workflow"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load configuration")
	}

	switch cfg.Logging.Level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatal().Err(err).Msg("failed to create upload directory")
	}

	registry, err := workflow.NewRegistry(cfg.Workflows)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build workflow registry")
	}

	client := provider.NewClient(provider.Options{
		BaseURL:      cfg.Provider.BaseURL,
		APIKey:       cfg.Provider.APIKey,
		Timeout:      time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
		PollAttempts: cfg.Provider.PollAttempts,
		PollInterval: time.Duration(cfg.Provider.PollIntervalSeconds) * time.Second,
	})

	receiver := upload.NewReceiver(storage.NewLocalStore(cfg.GetUploadDir()))

	handlers := api.NewHandlers(&api.Dependencies{
		Receiver: receiver,
		Registry: registry,
		Client:   client,
		Version:  Version,
	})

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Logging.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	limiter := api.RateLimiter(
		cfg.RateLimit.MaxRequests,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
	)
	api.RegisterRoutes(e, handlers, limiter)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info().
		Str("version", Version).
		Str("buildTime", BuildTime).
		Str("addr", cfg.GetServerAddr()).
		Str("uploadDir", cfg.GetUploadDir()).
		Strs("functions", registry.Names()).
		Msg("relay server listening")

	if err := e.StartServer(s); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
