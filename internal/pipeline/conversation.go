package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/polyglot/internal/history"
)

// Conversation speakers. Speaker A writes in the thread's first language.
const (
	SpeakerA = "a"
	SpeakerB = "b"
)

var (
	// ErrNoHistory is returned by conversation calls when history is disabled.
	ErrNoHistory = errors.New("conversations need history to be enabled")
	// ErrUnknownSpeaker is returned for speakers other than SpeakerA and SpeakerB.
	ErrUnknownSpeaker = errors.New("unknown speaker")
)

// StartConversation creates a thread between two real catalog languages.
func (p *Pipeline) StartConversation(ctx context.Context, langA, langB string) (history.Thread, error) {
	if p.history == nil {
		return history.Thread{}, ErrNoHistory
	}
	a, err := p.lookup(langA, false)
	if err != nil {
		return history.Thread{}, fmt.Errorf("lang_a: %w", err)
	}
	b, err := p.lookup(langB, false)
	if err != nil {
		return history.Thread{}, fmt.Errorf("lang_b: %w", err)
	}
	if a.Code == b.Code {
		return history.Thread{}, fmt.Errorf("%w: both sides speak %q", ErrUnsupportedLanguage, a.Code)
	}
	return p.history.CreateThread(ctx, a.Code, b.Code)
}

// Converse translates one turn of a thread into the other speaker's
// language and appends it to the thread.
func (p *Pipeline) Converse(ctx context.Context, threadID, speaker, text string) (*Result, error) {
	if p.history == nil {
		return nil, ErrNoHistory
	}
	th, err := p.history.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	req := Request{Text: text, ThreadID: th.ID, Speaker: speaker}
	switch speaker {
	case SpeakerA:
		req.Source, req.Target = th.LangA, th.LangB
	case SpeakerB:
		req.Source, req.Target = th.LangB, th.LangA
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpeaker, speaker)
	}
	return p.Translate(ctx, req)
}
