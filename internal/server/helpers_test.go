package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

// providerFailText makes mockTranslator fail with a provider error.
const providerFailText = "provider please fail"

// mockTranslator tags text with the language pair it was asked for.
type mockTranslator struct{}

func (mockTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	if text == providerFailText {
		return "", &translate.ProviderError{Provider: "mock", StatusCode: http.StatusServiceUnavailable, Message: "upstream down"}
	}
	return fmt.Sprintf("[%s>%s] %s", source, target, text), nil
}

// mockRemote answers every remote detection with code.
type mockRemote struct{ code string }

func (m mockRemote) DetectRemote(context.Context, string) (string, error) { return m.code, nil }

type testServerOptions struct {
	noHistory  bool
	remote     translate.RemoteDetector
	rateLimit  RateLimitConfig
	maxTextKB  int64
	debounce   time.Duration
	corsOrigin string
}

// newTestServer builds a Server around a real pipeline with mock backends.
func newTestServer(t *testing.T, opts testServerOptions) *Server {
	t.Helper()

	b := pipeline.NewBuilder().
		WithTranslator(mockTranslator{}).
		WithResolver(&resolve.Resolver{Remote: opts.remote})
	if !opts.noHistory {
		store, err := history.Open(context.Background(), history.MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		b = b.WithHistory(store)
	}

	debounce := opts.debounce
	if debounce == 0 {
		debounce = 10 * time.Millisecond
	}
	srv, err := NewServer(Config{
		CORSOrigin: opts.corsOrigin,
		MaxTextKB:  opts.maxTextKB,
		TimeoutSec: 5,
		Debounce:   debounce,
		RateLimit:  opts.rateLimit,
	}, b.Build())
	require.NoError(t, err)
	return srv
}

// newTestMux returns the server's routes.
func newTestMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// doJSON sends body as JSON through handler and returns the recorder.
func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorder's body into v.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "body: %s", w.Body.String())
}
