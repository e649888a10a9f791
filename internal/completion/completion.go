// Package completion talks to the external text-completion service and
// extracts the JSON object embedded in its free-text replies.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joelkehle/pharma-discovery/internal/config"
)

var ErrNotConfigured = errors.New("ANTHROPIC_API_KEY not configured")

type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// Caller sends one request and returns the reply text unchanged.
type Caller interface {
	Complete(ctx context.Context, req Request) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(cfg config.LLMConfig) AnthropicMessager

func defaultAnthropicCreator(cfg config.LLMConfig) AnthropicMessager {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(cfg.MaxRetries)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	c := anthropic.NewClient(opts...)
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(cfg config.LLMConfig) (*AnthropicCaller, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = config.DefaultLLMModel
	}
	return &AnthropicCaller{messages: newAnthropicClient(cfg), model: cfg.Model}, nil
}

// New returns an Anthropic-backed caller, or a Disabled caller when no API
// key is configured so that every consumer falls back instead of failing.
func New(cfg config.LLMConfig) Caller {
	c, err := NewAnthropicCaller(cfg)
	if err != nil {
		return Disabled{}
	}
	return c
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   maxTokens,
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	resp, err := a.messages.New(ctx, params)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// Disabled is the caller used when no completion service is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) { return "", ErrNotConfigured }
func (Disabled) ModelName() string                                { return "disabled" }

type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureEmpty     FailureKind = "empty"
	FailureNoJSON    FailureKind = "no_json"
	FailureMalformed FailureKind = "malformed"
)

// Failure describes why a reply could not be turned into a structured value.
// Raw holds whatever text the service returned.
type Failure struct {
	Kind FailureKind
	Raw  string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("completion %s: %v", f.Kind, f.Err)
	}
	return "completion " + string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind carried by err, or "".
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// CompleteJSON sends req and decodes the first JSON object of the reply into
// out. It returns the raw reply alongside any *Failure.
func CompleteJSON(ctx context.Context, caller Caller, req Request, out any) (string, error) {
	raw, err := caller.Complete(ctx, req)
	if err != nil {
		return "", &Failure{Kind: FailureTransport, Err: err}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &Failure{Kind: FailureEmpty}
	}
	obj, err := ExtractJSONObject(stripCodeFences(raw))
	if err != nil {
		kind := FailureNoJSON
		if errors.Is(err, ErrMalformedJSON) {
			kind = FailureMalformed
		}
		return raw, &Failure{Kind: kind, Raw: raw, Err: err}
	}
	if err := json.Unmarshal(obj, out); err != nil {
		return raw, &Failure{Kind: FailureMalformed, Raw: raw, Err: err}
	}
	return raw, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}
