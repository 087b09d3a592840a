// Package resolve decides a text's language for translation. It trusts the
// heuristic detector when a rule fired, and consults a remote detector only
// when the heuristic merely fell back to the default language without any
// English evidence.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
	"github.com/MeKo-Tech/polyglot/internal/detect"
	"github.com/MeKo-Tech/polyglot/internal/translate"
)

// ErrAmbiguous signals that the language could not be detected with any
// confidence. Callers should stop and ask for an explicit language rather
// than guess.
var ErrAmbiguous = errors.New("could not confidently detect language")

// DefaultTimeout bounds a remote detection call when Resolver.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Method records which step produced a Resolution.
type Method string

const (
	// MethodHeuristic means a detector rule fired.
	MethodHeuristic Method = "heuristic"
	// MethodDefaultWords means no rule fired but the text carries common
	// default-language words.
	MethodDefaultWords Method = "default_words"
	// MethodRemote means the remote detector answered.
	MethodRemote Method = "remote"
	// MethodFallback accompanies ErrAmbiguous.
	MethodFallback Method = "fallback"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Language  catalog.Language `json:"language"`
	Method    Method           `json:"method"`
	Heuristic detect.Result    `json:"heuristic"`
	// RemoteCode is the raw answer of the remote detector, if it was asked.
	RemoteCode string `json:"remote_code,omitempty"`
}

// Resolver combines the heuristic detector with an optional remote one.
// Nil Detector and Catalog fields fall back to the package defaults; a nil
// Remote turns every fallthrough into ErrAmbiguous.
type Resolver struct {
	Detector *detect.Detector
	Remote   translate.RemoteDetector
	Catalog  *catalog.Catalog
	Timeout  time.Duration
}

// Resolve returns the language of text. On ErrAmbiguous the Resolution
// still carries the default language so callers that choose to proceed
// have something to work with.
func (r *Resolver) Resolve(ctx context.Context, text string) (Resolution, error) {
	det := r.detector()
	cat := r.catalog(det)

	if strings.TrimSpace(text) == "" {
		return Resolution{Language: cat.Fallback(), Method: MethodFallback, Heuristic: det.Classify(text)}, ErrAmbiguous
	}

	res := det.Classify(text)
	if !res.IsDefault() {
		return Resolution{Language: res.Language, Method: MethodHeuristic, Heuristic: res}, nil
	}
	if detect.LooksLikeDefault(text) {
		return Resolution{Language: res.Language, Method: MethodDefaultWords, Heuristic: res}, nil
	}

	fallback := Resolution{Language: cat.Fallback(), Method: MethodFallback, Heuristic: res}
	if r.Remote == nil {
		return fallback, ErrAmbiguous
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	code, err := r.Remote.DetectRemote(rctx, text)
	if err != nil {
		// A parent cancellation is the caller's business, not an ambiguity.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fallback, ctxErr
		}
		slog.Warn("Remote language detection failed", "error", err)
		return fallback, ErrAmbiguous
	}
	fallback.RemoteCode = code

	norm := catalog.Normalize(code)
	if norm == "" || norm == translate.Undetermined || norm == catalog.AutoCode {
		slog.Debug("Remote language detection inconclusive", "code", code)
		return fallback, ErrAmbiguous
	}
	lang, ok := cat.Lookup(norm)
	if !ok {
		slog.Debug("Remote detector returned a language outside the catalog", "code", code)
		return fallback, ErrAmbiguous
	}
	return Resolution{Language: lang, Method: MethodRemote, Heuristic: res, RemoteCode: code}, nil
}

func (r *Resolver) detector() *detect.Detector {
	if r.Detector != nil {
		return r.Detector
	}
	return detect.Default()
}

func (r *Resolver) catalog(det *detect.Detector) *catalog.Catalog {
	if r.Catalog != nil {
		return r.Catalog
	}
	return det.Catalog()
}
