package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_CORSMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		corsOrigin     string
		method         string
		shouldCallNext bool
	}{
		{name: "GET request with CORS headers", corsOrigin: "*", method: "GET", shouldCallNext: true},
		{name: "POST request with specific origin", corsOrigin: "https://example.com", method: "POST", shouldCallNext: true},
		{name: "OPTIONS request (preflight)", corsOrigin: "*", method: "OPTIONS", shouldCallNext: false},
		{name: "DELETE request with CORS", corsOrigin: "http://localhost:3000", method: "DELETE", shouldCallNext: true},
		{name: "empty CORS origin", corsOrigin: "", method: "GET", shouldCallNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{corsOrigin: tt.corsOrigin}

			nextCalled := false
			corsHandler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/test", nil)
			w := httptest.NewRecorder()
			corsHandler(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.corsOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			assert.Equal(t, tt.shouldCallNext, nextCalled)
		})
	}
}

func TestServer_CORSMiddleware_KeepsErrorStatus(t *testing.T) {
	server := &Server{corsOrigin: "*"}
	handler := server.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodPost, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimitMiddleware(t *testing.T) {
	t.Run("disabled passes through", func(t *testing.T) {
		server := &Server{}
		called := 0
		handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) { called++ })
		for range 5 {
			handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/detect", nil))
		}
		assert.Equal(t, 5, called)
	})

	t.Run("minute limit", func(t *testing.T) {
		server := &Server{rateLimiter: NewRateLimiter(2, 0, 0, 0)}
		handler := server.rateLimitMiddleware(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		for range 2 {
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodPost, "/detect", nil))
			require.Equal(t, http.StatusOK, w.Code)
		}

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/detect", nil))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "minute", w.Header().Get("X-RateLimit-Type"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	})
}

func TestServer_CharacterQuota(t *testing.T) {
	srv := newTestServer(t, testServerOptions{rateLimit: RateLimitConfig{Enabled: true, MaxCharsPerDay: 10}})
	mux := newTestMux(srv)

	w := doJSON(t, mux, http.MethodPost, "/translate", TranslateRequest{Text: "hola amigo", Source: "es", Target: "en"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, mux, http.MethodPost, "/translate", TranslateRequest{Text: "hola", Source: "es", Target: "en"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "chars", w.Header().Get("X-Quota-Type"))
	assert.Equal(t, "10", w.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "10", w.Header().Get("X-Quota-Used"))
	assert.Contains(t, w.Body.String(), "quota_exceeded")
}

func TestServer_CharacterQuota_CountsRunes(t *testing.T) {
	srv := &Server{rateLimiter: NewRateLimiter(0, 0, 0, 6)}
	req := httptest.NewRequest(http.MethodPost, "/detect", nil)

	// Six runes, eighteen bytes.
	assert.True(t, srv.chargeText(httptest.NewRecorder(), req, "नमस्ते"))
	assert.Equal(t, 6, len([]rune("नमस्ते")))

	w := httptest.NewRecorder()
	assert.False(t, srv.chargeText(w, req, "x"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded list", headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, remote: "10.0.0.1:1234", want: "203.0.113.5"},
		{name: "forwarded single", headers: map[string]string{"X-Forwarded-For": " 203.0.113.9 "}, remote: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.7"}, remote: "10.0.0.1:1234", want: "198.51.100.7"},
		{name: "remote addr", remote: "192.0.2.1:5555", want: "192.0.2.1"},
		{name: "remote addr without port", remote: "192.0.2.1", want: "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestHandleRateLimitError_Unknown(t *testing.T) {
	w := httptest.NewRecorder()
	(&Server{}).handleRateLimitError(w, assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "internal_error"))
}
