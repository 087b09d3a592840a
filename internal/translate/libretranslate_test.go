package translate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibreServer(t *testing.T, handler http.HandlerFunc) *LibreTranslate {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewLibreTranslate(Config{Endpoint: srv.URL + "/", APIKey: "secret", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestLibreTranslate_Translate(t *testing.T) {
	c := newLibreServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req libreTranslateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Q)
		assert.Equal(t, "en", req.Source)
		assert.Equal(t, "es", req.Target)
		assert.Equal(t, "text", req.Format)
		assert.Equal(t, "secret", req.APIKey)

		_ = json.NewEncoder(w).Encode(libreTranslateResponse{TranslatedText: "hola"})
	})

	out, err := c.Translate(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", out)
}

func TestLibreTranslate_DetectPicksMostConfident(t *testing.T) {
	c := newLibreServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect", r.URL.Path)
		_, _ = w.Write([]byte(`[{"language":"pt","confidence":40},{"language":"es","confidence":87.5}]`))
	})

	code, err := c.DetectRemote(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "es", code)
}

func TestLibreTranslate_DetectEmptyIsUndetermined(t *testing.T) {
	c := newLibreServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	code, err := c.DetectRemote(context.Background(), "???")
	require.NoError(t, err)
	assert.Equal(t, Undetermined, code)
}

func TestLibreTranslate_ErrorResponse(t *testing.T) {
	c := newLibreServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	})

	_, err := c.Translate(context.Background(), "hello", "en", "es")
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ProviderLibreTranslate, pe.Provider)
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.Equal(t, "Invalid API key", pe.Message)
	assert.Contains(t, err.Error(), "status 403")
}

func TestLibreTranslate_MalformedBody(t *testing.T) {
	c := newLibreServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Translate(context.Background(), "hello", "en", "es")
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestLibreTranslate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewLibreTranslate(Config{Endpoint: url})
	require.NoError(t, err)

	_, err = c.DetectRemote(context.Background(), "hola")
	require.Error(t, err)
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Zero(t, pe.StatusCode)
}

func TestLibreTranslate_ContextCancelled(t *testing.T) {
	c := newLibreServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Translate(ctx, "hello", "en", "es")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewLibreTranslate_Endpoint(t *testing.T) {
	c, err := NewLibreTranslate(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLibreTranslateEndpoint, c.endpoint)

	_, err = NewLibreTranslate(Config{Endpoint: "localhost:5000"})
	require.Error(t, err)
}
