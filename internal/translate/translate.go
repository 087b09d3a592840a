// Package translate defines the remote collaborators polyglot talks to and
// ships the backends that implement them.
package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

// Undetermined is the code a RemoteDetector returns when it cannot tell.
const Undetermined = "und"

// Provider names accepted by New.
const (
	ProviderLibreTranslate = "libretranslate"
	ProviderOpenAI         = "openai"
	ProviderNone           = "none"
)

// Remote detector names accepted by NewRemoteDetector.
const (
	DetectorTranslator = "translator"
	DetectorLingua     = "lingua"
	DetectorNone       = "none"
)

// Translator turns text from one language into another. Codes are catalog
// codes; source is never "auto" by the time a Translator sees it.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// RemoteDetector asks an external service which language text is in. It
// returns a language code, or Undetermined when the service cannot tell.
type RemoteDetector interface {
	DetectRemote(ctx context.Context, text string) (string, error)
}

// ProviderError reports a failed call to a remote service.
type ProviderError struct {
	Provider   string
	StatusCode int // 0 when the request never got a response
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is, or wraps, a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// Config selects and configures a translation backend.
type Config struct {
	Provider string
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// DefaultTimeout bounds a single provider request when Config.Timeout is unset.
const DefaultTimeout = 30 * time.Second

func (c Config) httpClient() *http.Client {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Backend is a Translator that can also detect languages. Both bundled
// translation backends satisfy it.
type Backend interface {
	Translator
	RemoteDetector
}

// New returns the backend named by cfg.Provider. It returns (nil, nil) for
// the "none" provider and for an empty provider name.
func New(cfg Config, cat *catalog.Catalog) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderLibreTranslate:
		c, err := NewLibreTranslate(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := NewOpenAI(cfg, cat)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("translate: unknown provider %q", cfg.Provider)
	}
}

// NewRemoteDetector picks the detector used for ambiguous text. The
// "translator" choice reuses backend and yields nil if there is none.
func NewRemoteDetector(name string, backend Backend, cat *catalog.Catalog, minDistance float64) (RemoteDetector, error) {
	switch strings.ToLower(name) {
	case "", DetectorNone:
		return nil, nil
	case DetectorTranslator:
		if backend == nil {
			return nil, nil
		}
		return backend, nil
	case DetectorLingua:
		d, err := NewLinguaDetector(cat, minDistance)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("translate: unknown remote detector %q", name)
	}
}
