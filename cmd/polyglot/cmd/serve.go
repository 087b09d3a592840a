package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/polyglot/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for detection and translation",
		Long: `Start an HTTP server that provides REST and WebSocket endpoints.

The server provides the following endpoints:
  GET    /health                  - Health check endpoint
  GET    /languages               - Supported languages
  POST   /detect                  - Detect (and optionally resolve) a language
  POST   /translate               - Translate a text
  GET    /history                 - List or search (?q=) the history
  DELETE /history                 - Delete one entry (?id=) or everything
  POST   /conversations           - Start a two-party conversation
  POST   /conversations/messages  - Translate one conversation turn
  GET    /ws                      - Live typing translation (WebSocket)
  GET    /metrics                 - Prometheus metrics

Examples:
  polyglot serve
  polyglot serve --port 8080
  polyglot serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg

			// Extract server configuration with CLI flag overrides
			host := cfg.Server.Host
			if cmd.Flags().Changed("host") {
				host, _ = cmd.Flags().GetString("host")
			}

			port := cfg.Server.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}

			corsOrigin := cfg.Server.CORSOrigin
			if cmd.Flags().Changed("cors-origin") {
				corsOrigin, _ = cmd.Flags().GetString("cors-origin")
			}

			maxTextKB := cfg.Server.MaxTextKB
			if cmd.Flags().Changed("max-text-kb") {
				maxTextKB, _ = cmd.Flags().GetInt("max-text-kb")
			}

			timeout := cfg.Server.TimeoutSec
			if cmd.Flags().Changed("timeout") {
				timeout, _ = cmd.Flags().GetInt("timeout")
			}

			shutdownTimeout := cfg.Server.ShutdownTimeout
			if cmd.Flags().Changed("shutdown-timeout") {
				shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
			}

			debounceMS := cfg.Server.DebounceMS
			if cmd.Flags().Changed("debounce-ms") {
				debounceMS, _ = cmd.Flags().GetInt("debounce-ms")
			}

			// Extract rate limiting configuration
			rateLimitEnabled := cfg.Server.RateLimitEnabled
			if cmd.Flags().Changed("rate-limit-enabled") {
				rateLimitEnabled, _ = cmd.Flags().GetBool("rate-limit-enabled")
			}

			requestsPerMinute := cfg.Server.RequestsPerMinute
			if cmd.Flags().Changed("requests-per-minute") {
				requestsPerMinute, _ = cmd.Flags().GetInt("requests-per-minute")
			}

			requestsPerHour := cfg.Server.RequestsPerHour
			if cmd.Flags().Changed("requests-per-hour") {
				requestsPerHour, _ = cmd.Flags().GetInt("requests-per-hour")
			}

			maxRequestsPerDay := cfg.Server.MaxRequestsPerDay
			if cmd.Flags().Changed("max-requests-per-day") {
				maxRequestsPerDay, _ = cmd.Flags().GetInt("max-requests-per-day")
			}

			maxCharsPerDay := cfg.Server.MaxCharsPerDay
			if cmd.Flags().Changed("max-chars-per-day") {
				maxCharsPerDay, _ = cmd.Flags().GetInt64("max-chars-per-day")
			}

			// Validate port number
			if port < 1 || port > 65535 {
				return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
			}
			if maxTextKB <= 0 {
				return fmt.Errorf("invalid max text size: %d KB (must be positive)", maxTextKB)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			svc, err := buildServices(ctx, cfg, buildOptions{history: true, workers: cfg.Batch.Workers})
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			defer func() { _ = svc.Close() }()

			serverConfig := server.Config{
				Host:       host,
				Port:       port,
				CORSOrigin: corsOrigin,
				MaxTextKB:  int64(maxTextKB),
				TimeoutSec: timeout,
				Debounce:   time.Duration(debounceMS) * time.Millisecond,
				RateLimit: server.RateLimitConfig{
					Enabled:           rateLimitEnabled,
					RequestsPerMinute: requestsPerMinute,
					RequestsPerHour:   requestsPerHour,
					MaxRequestsPerDay: maxRequestsPerDay,
					MaxCharsPerDay:    maxCharsPerDay,
				},
			}

			apiServer, err := server.NewServer(serverConfig, svc.pipeline)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}
			defer func() { _ = apiServer.Close() }()

			mux := http.NewServeMux()
			apiServer.SetupRoutes(mux)

			// No WriteTimeout: it would cut off WebSocket sessions.
			httpServer := &http.Server{
				Addr:              fmt.Sprintf("%s:%d", host, port),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       time.Duration(timeout) * time.Second,
			}

			go func() {
				slog.Info("Starting polyglot server", "host", host, "port", port)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("Server error", "error", err)
					cancel()
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
			defer signal.Stop(sigChan)

			select {
			case sig := <-sigChan:
				slog.Info("Received shutdown signal", "signal", sig.String())
			case <-ctx.Done():
				slog.Info("Context cancelled, initiating shutdown")
			}

			slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
			defer shutdownCancel()

			slog.Info("Shutting down HTTP server")
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			} else {
				slog.Info("HTTP server shutdown completed")
			}

			slog.Info("Cleaning up server resources")
			if err := apiServer.Close(); err != nil {
				slog.Error("Server cleanup error", "error", err)
			}

			slog.Info("Graceful shutdown completed")
			return nil
		},
	}

	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-text-kb", 64, "maximum request body size in KB")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().Int("debounce-ms", 400, "live typing pause before a translation is requested")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 60, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 1000, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-chars-per-day", 500000, "maximum characters translated per day per client")
	return serveCmd
}
