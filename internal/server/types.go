package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
	"github.com/MeKo-Tech/polyglot/internal/detect"
	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
)

// pipelineInterface defines the methods needed by the server from a pipeline.
type pipelineInterface interface {
	Translate(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	StartConversation(ctx context.Context, langA, langB string) (history.Thread, error)
	Converse(ctx context.Context, threadID, speaker, text string) (*pipeline.Result, error)
	Catalog() *catalog.Catalog
	History() *history.Store
	Resolver() *resolve.Resolver
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    pipelineInterface
	detector    *detect.Detector
	corsOrigin  string
	maxTextKB   int64
	timeoutSec  int
	debounce    time.Duration
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host       string
	Port       int
	CORSOrigin string
	MaxTextKB  int64
	TimeoutSec int
	Debounce   time.Duration
	RateLimit  RateLimitConfig
}

// RateLimitConfig holds the optional per-client limits.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxCharsPerDay    int64
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type LanguagesResponse struct {
	Languages []catalog.Language `json:"languages"`
	Count     int                `json:"count"`
}

type DetectRequest struct {
	Text    string `json:"text"`
	Resolve bool   `json:"resolve"`
}

type DetectResponse struct {
	Language   catalog.Language    `json:"language"`
	Tier       detect.Tier         `json:"tier"`
	Rule       string              `json:"rule"`
	Resolution *resolve.Resolution `json:"resolution,omitempty"`
}

type TranslateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Count   int             `json:"count"`
}

type ConversationRequest struct {
	LangA string `json:"lang_a"`
	LangB string `json:"lang_b"`
}

type MessageRequest struct {
	ThreadID string `json:"thread_id"`
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Success   bool                `json:"success"`
	Error     string              `json:"error"`
	ErrorType string              `json:"error_type,omitempty"`
	Detection *resolve.Resolution `json:"detection,omitempty"`
}

// NewServer creates a server around a translation pipeline.
func NewServer(config Config, pl *pipeline.Pipeline) (*Server, error) {
	if pl == nil {
		return nil, errors.New("server: pipeline is required")
	}
	s := &Server{
		pipeline:   pl,
		detector:   pl.Resolver().Detector,
		corsOrigin: config.CORSOrigin,
		maxTextKB:  config.MaxTextKB,
		timeoutSec: config.TimeoutSec,
		debounce:   config.Debounce,
	}
	if s.detector == nil {
		s.detector = detect.Default()
	}
	if config.RateLimit.Enabled {
		rl := config.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxCharsPerDay)
	}
	return s, nil
}

// Close releases server resources. The history store belongs to the caller.
func (s *Server) Close() error {
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/languages", s.corsMiddleware(s.languagesHandler))
	mux.HandleFunc("/detect", s.corsMiddleware(s.rateLimitMiddleware(s.detectHandler)))
	mux.HandleFunc("/translate", s.corsMiddleware(s.rateLimitMiddleware(s.translateHandler)))
	mux.HandleFunc("/history", s.corsMiddleware(s.historyHandler))
	mux.HandleFunc("/conversations", s.corsMiddleware(s.conversationsHandler))
	mux.HandleFunc("/conversations/messages", s.corsMiddleware(s.rateLimitMiddleware(s.messagesHandler)))
	mux.HandleFunc("/ws", s.liveWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
