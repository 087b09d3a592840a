package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultLibreTranslateEndpoint is used when no endpoint is configured.
const DefaultLibreTranslateEndpoint = "http://localhost:5000"

// LibreTranslate talks to a LibreTranslate server over its JSON API.
type LibreTranslate struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewLibreTranslate creates a client for the server at cfg.Endpoint.
func NewLibreTranslate(cfg Config) (*LibreTranslate, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultLibreTranslateEndpoint
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("translate: libretranslate endpoint must be an http(s) URL, got %q", cfg.Endpoint)
	}
	return &LibreTranslate{endpoint: endpoint, apiKey: cfg.APIKey, client: cfg.httpClient()}, nil
}

type libreTranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreTranslateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type libreDetectRequest struct {
	Q      string `json:"q"`
	APIKey string `json:"api_key,omitempty"`
}

type libreDetection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

type libreError struct {
	Error string `json:"error"`
}

// Translate implements Translator.
func (c *LibreTranslate) Translate(ctx context.Context, text, source, target string) (string, error) {
	var resp libreTranslateResponse
	req := libreTranslateRequest{Q: text, Source: source, Target: target, Format: "text", APIKey: c.apiKey}
	if err := c.post(ctx, "/translate", req, &resp); err != nil {
		return "", err
	}
	return resp.TranslatedText, nil
}

// DetectRemote implements RemoteDetector. The most confident candidate
// wins; no candidates or zero confidence is Undetermined.
func (c *LibreTranslate) DetectRemote(ctx context.Context, text string) (string, error) {
	var resp []libreDetection
	if err := c.post(ctx, "/detect", libreDetectRequest{Q: text, APIKey: c.apiKey}, &resp); err != nil {
		return "", err
	}
	best := libreDetection{Language: Undetermined}
	for _, d := range resp {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	slog.Debug("LibreTranslate detection", "language", best.Language, "confidence", best.Confidence)
	return best.Language, nil
}

func (c *LibreTranslate) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("translate: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: ProviderLibreTranslate, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &ProviderError{Provider: ProviderLibreTranslate, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		var le libreError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &le) == nil && le.Error != "" {
			msg = le.Error
		}
		return &ProviderError{Provider: ProviderLibreTranslate, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ProviderError{
			Provider:   ProviderLibreTranslate,
			StatusCode: resp.StatusCode,
			Err:        errors.Join(errors.New("malformed response"), err),
		}
	}
	return nil
}
