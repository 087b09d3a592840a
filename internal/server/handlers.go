package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/translate"
	"github.com/MeKo-Tech/polyglot/internal/version"
)

// Error types reported in ErrorResponse.ErrorType.
const (
	errorTypeAmbiguous   = "ambiguous_language"
	errorTypeInvalid     = "invalid_request"
	errorTypeNotFound    = "not_found"
	errorTypeProvider    = "provider_error"
	errorTypeUnavailable = "unavailable"
	errorTypeTimeout     = "timeout"
	errorTypeInternal    = "internal_error"
	errorTypeRateLimit   = "rate_limit_exceeded"
	errorTypeQuota       = "quota_exceeded"
)

const defaultHistoryLimit = 50

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// languagesHandler lists the catalog.
func (s *Server) languagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	langs := s.pipeline.Catalog().All()
	s.writeJSON(w, http.StatusOK, LanguagesResponse{Languages: langs, Count: len(langs)})
}

// detectHandler classifies text and optionally resolves it.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DetectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeErrorResponse(w, "text is required", errorTypeInvalid, http.StatusBadRequest)
		return
	}
	if !s.chargeText(w, r, req.Text) {
		return
	}
	textLength.WithLabelValues("detect").Observe(float64(utf8.RuneCountInString(req.Text)))

	res := s.detector.Classify(req.Text)
	detectionsTotal.WithLabelValues(res.Tier.String(), res.Language.Code).Inc()
	resp := DetectResponse{Language: res.Language, Tier: res.Tier, Rule: res.Rule}

	if req.Resolve {
		ctx, cancel := s.requestContext(r)
		defer cancel()
		resolution, err := s.pipeline.Resolver().Resolve(ctx, req.Text)
		recordResolution(resolution, err)
		if err != nil {
			s.writeError(w, err, &resolution)
			return
		}
		resp.Resolution = &resolution
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// translateHandler translates one text.
func (s *Server) translateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req TranslateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.chargeText(w, r, req.Text) {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.runTranslation("http", func() (*pipeline.Result, error) {
		return s.pipeline.Translate(ctx, pipeline.Request{Text: req.Text, Source: req.Source, Target: req.Target})
	})
	if err != nil {
		s.writeError(w, err, resolutionOf(res))
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// historyHandler lists or searches history on GET and deletes on DELETE.
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	store := s.pipeline.History()
	if store == nil {
		s.writeError(w, pipeline.ErrNoHistory, nil)
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		limit := defaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				s.writeErrorResponse(w, "invalid limit", errorTypeInvalid, http.StatusBadRequest)
				return
			}
			limit = n
		}
		var (
			entries []history.Entry
			err     error
		)
		if q := r.URL.Query().Get("q"); q != "" {
			entries, err = store.Search(ctx, q, limit)
		} else {
			entries, err = store.List(ctx, limit)
		}
		if err != nil {
			s.writeError(w, err, nil)
			return
		}
		s.writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Count: len(entries)})

	case http.MethodDelete:
		if id := r.URL.Query().Get("id"); id != "" {
			if err := store.Delete(ctx, id); err != nil {
				s.writeError(w, err, nil)
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": 1})
			return
		}
		n, err := store.Clear(ctx)
		if err != nil {
			s.writeError(w, err, nil)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": n})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// conversationsHandler starts a conversation thread.
func (s *Server) conversationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ConversationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	th, err := s.pipeline.StartConversation(r.Context(), req.LangA, req.LangB)
	if err != nil {
		s.writeError(w, err, nil)
		return
	}
	s.writeJSON(w, http.StatusCreated, th)
}

// messagesHandler translates one conversation turn.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req MessageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.chargeText(w, r, req.Text) {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.runTranslation("conversation", func() (*pipeline.Result, error) {
		return s.pipeline.Converse(ctx, req.ThreadID, req.Speaker, req.Text)
	})
	if err != nil {
		s.writeError(w, err, resolutionOf(res))
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// runTranslation wraps fn with translation metrics.
func (s *Server) runTranslation(kind string, fn func() (*pipeline.Result, error)) (*pipeline.Result, error) {
	start := time.Now()
	res, err := fn()
	duration := time.Since(start)

	if res != nil {
		textLength.WithLabelValues(kind).Observe(float64(utf8.RuneCountInString(res.Text)))
		if res.Resolution != nil {
			recordResolution(*res.Resolution, errorIfAmbiguous(err))
		}
	}
	if err != nil {
		translationsTotal.WithLabelValues(kind, "error").Inc()
		return res, err
	}
	translationsTotal.WithLabelValues(kind, "success").Inc()
	translationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	return res, nil
}

func errorIfAmbiguous(err error) error {
	if errors.Is(err, resolve.ErrAmbiguous) {
		return err
	}
	return nil
}

func recordResolution(res resolve.Resolution, err error) {
	outcome := "resolved"
	switch {
	case errors.Is(err, resolve.ErrAmbiguous):
		outcome = "ambiguous"
	case err != nil:
		outcome = "error"
	}
	resolutionsTotal.WithLabelValues(string(res.Method), outcome).Inc()
}

func resolutionOf(res *pipeline.Result) *resolve.Resolution {
	if res == nil {
		return nil
	}
	return res.Resolution
}

// requestContext bounds a request by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

// decodeJSON reads a size-limited JSON body into v and writes a 4xx
// response on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if s.maxTextKB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxTextKB*1024)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeErrorResponse(w, "Request body too large", errorTypeInvalid, http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			s.writeErrorResponse(w, "Request body is empty", errorTypeInvalid, http.StatusBadRequest)
		default:
			s.writeErrorResponse(w, fmt.Sprintf("Invalid JSON: %v", err), errorTypeInvalid, http.StatusBadRequest)
		}
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error, detection *resolve.Resolution) {
	status, errType := classifyError(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "status", status)
	}

	resp := ErrorResponse{Success: false, Error: err.Error(), ErrorType: errType}
	if errType == errorTypeAmbiguous {
		resp.Detection = detection
	}
	s.writeJSON(w, status, resp)
}

func classifyError(err error) (int, string) {
	var rateErr *RateLimitError
	var quotaErr *QuotaExceededError
	switch {
	case errors.Is(err, resolve.ErrAmbiguous):
		return http.StatusUnprocessableEntity, errorTypeAmbiguous
	case errors.Is(err, pipeline.ErrEmptyText),
		errors.Is(err, pipeline.ErrUnsupportedLanguage),
		errors.Is(err, pipeline.ErrUnknownSpeaker):
		return http.StatusBadRequest, errorTypeInvalid
	case history.IsNotFound(err):
		return http.StatusNotFound, errorTypeNotFound
	case translate.IsProviderError(err):
		return http.StatusBadGateway, errorTypeProvider
	case errors.Is(err, pipeline.ErrNoTranslator), errors.Is(err, pipeline.ErrNoHistory):
		return http.StatusServiceUnavailable, errorTypeUnavailable
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests, errorTypeRateLimit
	case errors.As(err, &quotaErr):
		return http.StatusTooManyRequests, errorTypeQuota
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorTypeTimeout
	default:
		return http.StatusInternalServerError, errorTypeInternal
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message, errType string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message, ErrorType: errType})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Log error, but can't send another response
		slog.Error("Failed to encode response", "error", err)
	}
}
