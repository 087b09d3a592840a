package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FakeTranslator is an in-process LibreTranslate stand-in. Translations
// come back as "[src>tgt] text" so tests can see which pair was used.
type FakeTranslator struct {
	server *httptest.Server

	mu             sync.Mutex
	detections     map[string]string
	failing        bool
	translateCalls int
	detectCalls    int
}

// NewFakeTranslator starts a fake translation service. Call Close when done.
func NewFakeTranslator() *FakeTranslator {
	f := &FakeTranslator{detections: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /translate", f.handleTranslate)
	mux.HandleFunc("POST /detect", f.handleDetect)
	f.server = httptest.NewServer(mux)
	return f
}

// URL is the service endpoint.
func (f *FakeTranslator) URL() string { return f.server.URL }

// Close stops the service.
func (f *FakeTranslator) Close() { f.server.Close() }

// Detects makes /detect answer code for any text containing substr.
func (f *FakeTranslator) Detects(substr, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections[strings.ToLower(substr)] = code
}

// SetFailing makes /translate answer 500.
func (f *FakeTranslator) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// TranslateCalls returns the number of /translate requests served.
func (f *FakeTranslator) TranslateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.translateCalls
}

// DetectCalls returns the number of /detect requests served.
func (f *FakeTranslator) DetectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detectCalls
}

func (f *FakeTranslator) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Q      string `json:"q"`
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	f.translateCalls++
	failing := f.failing
	f.mu.Unlock()

	if failing {
		writeFakeJSON(w, http.StatusInternalServerError, map[string]string{"error": "translation engine unavailable"})
		return
	}
	writeFakeJSON(w, http.StatusOK, map[string]string{
		"translatedText": fmt.Sprintf("[%s>%s] %s", req.Source, req.Target, req.Q),
	})
}

func (f *FakeTranslator) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Q string `json:"q"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.detectCalls++

	type detection struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	out := []detection{}
	q := strings.ToLower(req.Q)
	for substr, code := range f.detections {
		if strings.Contains(q, substr) {
			out = append(out, detection{Language: code, Confidence: 90})
			break
		}
	}
	writeFakeJSON(w, http.StatusOK, out)
}

func writeFakeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ConfigOptions describes a polyglot.yaml for tests.
type ConfigOptions struct {
	TranslatorURL   string // empty selects the "none" provider
	RemoteProvider  string // defaults to "translator"
	HistoryDisabled bool
	Format          string
}

// WriteConfigFile writes polyglot.yaml into dir with the history database
// next to it, and returns the file path.
func WriteConfigFile(dir string, opts ConfigOptions) (string, error) {
	translator := map[string]any{"provider": "none"}
	if opts.TranslatorURL != "" {
		translator = map[string]any{"provider": "libretranslate", "endpoint": opts.TranslatorURL, "timeout_sec": 5}
	}
	remote := opts.RemoteProvider
	if remote == "" {
		remote = "translator"
	}
	format := opts.Format
	if format == "" {
		format = "text"
	}

	cfg := map[string]any{
		"log_level":  "error",
		"translator": translator,
		"detection":  map[string]any{"remote_provider": remote, "remote_timeout_sec": 2},
		"history": map[string]any{
			"enabled": !opts.HistoryDisabled,
			"path":    filepath.Join(dir, "history.db"),
		},
		"output": map[string]any{"format": format},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "polyglot.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
