package support

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
	"github.com/MeKo-Tech/polyglot/internal/history"
	"github.com/MeKo-Tech/polyglot/internal/pipeline"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/server"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
	History    *history.Store
}

// serverOptions tune the server a scenario starts.
type serverOptions struct {
	rateLimit server.RateLimitConfig
	maxTextKB int64
}

// createTestHTTPServer starts the real HTTP handlers on an httptest server,
// backed by the fake translation service.
func (testCtx *TestContext) createTestHTTPServer(opts serverOptions) error {
	if testCtx.HTTPTestServer != nil {
		return nil
	}

	cat := catalog.Default()
	b := pipeline.NewBuilder().WithCatalog(cat)

	var remote translate.RemoteDetector
	if !testCtx.NoTranslator {
		fake := testCtx.ensureTranslator()
		backend, err := translate.New(translate.Config{
			Provider: translate.ProviderLibreTranslate,
			Endpoint: fake.URL(),
			Timeout:  5 * time.Second,
		}, cat)
		if err != nil {
			return fmt.Errorf("failed to create translator: %w", err)
		}
		b = b.WithTranslator(backend)
		remote = backend
	}
	b = b.WithResolver(&resolve.Resolver{Remote: remote, Catalog: cat, Timeout: 2 * time.Second})

	wrapper := &HTTPTestServerWrapper{}
	if !testCtx.ConfigOpts.HistoryDisabled {
		store, err := history.Open(context.Background(), filepath.Join(testCtx.TempDir, "server-history.db"))
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		wrapper.History = store
		b = b.WithHistory(store)
	}

	maxTextKB := opts.maxTextKB
	if maxTextKB == 0 {
		maxTextKB = 64
	}
	srv, err := server.NewServer(server.Config{
		CORSOrigin: "*",
		MaxTextKB:  maxTextKB,
		TimeoutSec: 10,
		Debounce:   20 * time.Millisecond,
		RateLimit:  opts.rateLimit,
	}, b.Build())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	wrapper.TestServer = srv
	wrapper.Server = httptest.NewServer(mux)
	testCtx.HTTPTestServer = wrapper
	return nil
}

// StopServer stops the httptest server if one is running.
func (testCtx *TestContext) StopServer() error {
	w := testCtx.HTTPTestServer
	if w == nil {
		return nil
	}
	testCtx.HTTPTestServer = nil
	w.Server.Close()
	_ = w.TestServer.Close()
	if w.History != nil {
		return w.History.Close()
	}
	return nil
}

// GetServerURL returns the base URL of the running server.
func (testCtx *TestContext) GetServerURL() string {
	if testCtx.HTTPTestServer == nil {
		return ""
	}
	return testCtx.HTTPTestServer.Server.URL
}
