package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/sashabaranov/go-openai"

	"github.com/MeKo-Tech/polyglot/internal/catalog"
)

// DefaultOpenAIModel is used when Config.Model is empty.
const DefaultOpenAIModel = openai.GPT4oMini

const (
	translatePrompt = "You are a translation engine. Translate the user's message from %s to %s. " +
		"Reply with the translation only, without quotes or commentary."
	detectPrompt = "Identify the language of the user's message. Reply with its two-letter ISO 639-1 code only. " +
		"If you cannot tell, reply with und."
)

// OpenAI translates and detects with chat completions. Any server speaking
// the OpenAI API works; point Config.Endpoint at it.
type OpenAI struct {
	client  *openai.Client
	model   string
	catalog *catalog.Catalog
}

// NewOpenAI creates an OpenAI-backed client.
func NewOpenAI(cfg Config, cat *catalog.Catalog) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.Endpoint == "" {
		return nil, errors.New("translate: openai provider needs an api key or a custom endpoint")
	}
	if cat == nil {
		cat = catalog.Default()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		oc.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	oc.HTTPClient = cfg.httpClient()

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(oc), model: model, catalog: cat}, nil
}

// Translate implements Translator.
func (c *OpenAI) Translate(ctx context.Context, text, source, target string) (string, error) {
	prompt := fmt.Sprintf(translatePrompt, c.languageName(source), c.languageName(target))
	out, err := c.complete(ctx, prompt, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DetectRemote implements RemoteDetector.
func (c *OpenAI) DetectRemote(ctx context.Context, text string) (string, error) {
	out, err := c.complete(ctx, detectPrompt, text)
	if err != nil {
		return "", err
	}
	code := parseCodeReply(out)
	slog.Debug("OpenAI detection", "model", c.model, "reply", out, "code", code)
	return code, nil
}

func (c *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0,
	}
	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", openAIError(err)
	}
	if len(response.Choices) == 0 {
		return "", &ProviderError{Provider: ProviderOpenAI, Message: "empty completion"}
	}
	return response.Choices[0].Message.Content, nil
}

func (c *OpenAI) languageName(code string) string {
	if l, ok := c.catalog.Lookup(code); ok {
		return l.Name
	}
	return code
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: ProviderOpenAI, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{Provider: ProviderOpenAI, StatusCode: reqErr.HTTPStatusCode, Err: reqErr.Err}
	}
	return &ProviderError{Provider: ProviderOpenAI, Err: err}
}

// parseCodeReply pulls a language code out of a model reply such as
// "fr", "FR." or "`pt-BR`". Anything else is Undetermined.
func parseCodeReply(reply string) string {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return Undetermined
	}
	code := strings.ToLower(strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	}))
	if len(code) < 2 || len(code) > 8 {
		return Undetermined
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && r != '-' {
			return Undetermined
		}
	}
	return code
}
