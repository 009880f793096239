// sfmc-gateway serves the Marketing Cloud asset-search operations over
// HTTP for callers that want REST instead of the MCP stdio bridge.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mktcloud/sfmc-asset-agent/internal/gateway"
	"github.com/mktcloud/sfmc-asset-agent/internal/health"
	"github.com/mktcloud/sfmc-asset-agent/internal/mcpbridge"
	"github.com/mktcloud/sfmc-asset-agent/pkg/sfmc"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("gateway exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("gateway")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("gateway.port", 8080)
	viper.SetDefault("gateway.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("gateway.rate_limit_rps", 20)
	viper.SetDefault("gateway.request_timeout", "10s")
	viper.SetDefault("gateway.health_check_interval", "5m")
	viper.SetDefault("sfmc.subdomain", "")
	viper.SetDefault("sfmc.client_id", "")
	viper.SetDefault("sfmc.client_secret", "")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	// ── Session options ──────────────────────────────────────────────────────
	opts := []sfmc.Option{sfmc.WithLogger(logger.Named("sfmc"))}
	if timeout, err := time.ParseDuration(viper.GetString("gateway.request_timeout")); err == nil && timeout > 0 {
		opts = append(opts, sfmc.WithTimeout(timeout))
	}

	manifest := mcpbridge.NewRegistry().Manifest()
	h := gateway.NewHandler(manifest, logger, opts...)

	// Credentials in the configuration pre-initialize the session; the
	// connection endpoint can replace it at runtime.
	subdomain := viper.GetString("sfmc.subdomain")
	clientID := viper.GetString("sfmc.client_id")
	clientSecret := viper.GetString("sfmc.client_secret")
	if subdomain != "" && clientID != "" && clientSecret != "" {
		client, err := sfmc.New(sfmc.Credentials{
			Subdomain:    subdomain,
			ClientID:     clientID,
			ClientSecret: clientSecret,
		}, opts...)
		if err != nil {
			return fmt.Errorf("credentials from configuration: %w", err)
		}
		h.SetSession(client)
		logger.Info("session created from configuration", zap.String("subdomain", subdomain))
	} else {
		logger.Info("no credentials configured; POST /api/v1/connection to start a session")
	}

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	corsOrigins := viper.GetStringSlice("gateway.cors_origins")
	corsConfig := cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	router.Use(gateway.SecurityHeaders())
	router.Use(gateway.BodyLimit(1 << 20))

	rps := viper.GetInt("gateway.rate_limit_rps")
	if rps > 0 {
		router.Use(gateway.RateLimiter(rps, rps*2))
	}

	router.Use(gateway.RequestID())
	router.Use(gateway.PrometheusMiddleware())
	router.Use(gateway.RequestLogger(logger))

	// Health and metrics (public, no auth)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gateway.MetricsHandler())

	// API v1
	v1 := router.Group("/api/v1")
	h.Register(v1)

	// ── Serve ─────────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("gateway.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Background session checks keep the session gauge honest between
	// requests and log token problems before a caller hits them. The
	// monitor gets its own signal channel; quit has one receiver.
	monitorCfg := health.Config{}
	if interval, err := time.ParseDuration(viper.GetString("gateway.health_check_interval")); err == nil && interval > 0 {
		monitorCfg.CheckInterval = interval
	}
	monitor := health.New(h.ActiveSession, monitorCfg, logger.Named("health"))
	monitor.SetMetricsRecord(gateway.RecordSessionHealth)
	monitorQuit := make(chan os.Signal, 1)
	signal.Notify(monitorQuit, syscall.SIGINT, syscall.SIGTERM)
	go monitor.Start(monitorQuit)

	go func() {
		logger.Info("gateway HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	<-quit
	logger.Info("shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("gateway stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
