package completion

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/pharma-discovery/internal/config"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	params   anthropic.MessageNewParams
	calls    int
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.calls++
	m.params = params
	return m.response, m.err
}

func newMockMessage(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: text}},
	}
}

func withMockClient(mock *mockMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(config.LLMConfig) AnthropicMessager { return mock }
	return func() { newAnthropicClient = old }
}

type stubCaller struct {
	reply string
	err   error
}

func (s stubCaller) Complete(context.Context, Request) (string, error) { return s.reply, s.err }
func (s stubCaller) ModelName() string                                { return "stub" }

func TestNewWithoutKeyIsDisabled(t *testing.T) {
	c := New(config.LLMConfig{})
	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, "disabled", c.ModelName())
}

func TestAnthropicCallerSendsRequestContract(t *testing.T) {
	mock := &mockMessager{response: newMockMessage(`{"ok":true}`)}
	defer withMockClient(mock)()

	caller, err := NewAnthropicCaller(config.LLMConfig{APIKey: "k", Model: "claude-test"})
	require.NoError(t, err)
	out, err := caller.Complete(context.Background(), Request{System: "sys", Prompt: "user text", Temperature: 0.2, MaxTokens: 400})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, 1, mock.calls)
	assert.Equal(t, anthropic.Model("claude-test"), mock.params.Model)
	assert.Equal(t, int64(400), mock.params.MaxTokens)
	require.Len(t, mock.params.System, 1)
	assert.Equal(t, "sys", mock.params.System[0].Text)
	assert.Equal(t, "claude-test", caller.ModelName())
}

func TestExtractJSONObjectFromProse(t *testing.T) {
	reply := "Sure! Here is the analysis:\n{\"decision\": \"YES\", \"reasons\": [\"a {curly} reason\", \"b\"], \"nested\": {\"k\": 1}}\nHope this helps."
	obj, err := ExtractJSONObject(reply)
	require.NoError(t, err)

	var got, want map[string]any
	require.NoError(t, json.Unmarshal(obj, &got))
	require.NoError(t, json.Unmarshal([]byte(`{"decision":"YES","reasons":["a {curly} reason","b"],"nested":{"k":1}}`), &want))
	assert.Equal(t, want, got)
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	obj, err := ExtractJSONObject("I could not produce a result for this drug.")
	assert.Nil(t, obj)
	assert.ErrorIs(t, err, ErrNoJSON)

	obj, err = ExtractJSONObject("{ unterminated")
	assert.Nil(t, obj)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestExtractJSONObjectSkipsMalformedSpan(t *testing.T) {
	_, err := ExtractJSONObject(`{decision: YES}`)
	assert.ErrorIs(t, err, ErrMalformedJSON)

	obj, err := ExtractJSONObject(`{bad} then {"good": "\"}\""}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"good":"\"}\""}`, string(obj))
}

func TestExtractJSONObjectPassesUnclosedBrace(t *testing.T) {
	obj, err := ExtractJSONObject(`Use the form { as requested: {"a": 1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(obj))
}

func TestCompleteJSONFailureKinds(t *testing.T) {
	var out map[string]any
	cases := []struct {
		caller Caller
		kind   FailureKind
	}{
		{stubCaller{err: errors.New("dial tcp: refused")}, FailureTransport},
		{stubCaller{reply: "   "}, FailureEmpty},
		{stubCaller{reply: "no json here"}, FailureNoJSON},
		{stubCaller{reply: `{"a": }`}, FailureMalformed},
		{Disabled{}, FailureTransport},
	}
	for _, tc := range cases {
		_, err := CompleteJSON(context.Background(), tc.caller, Request{}, &out)
		require.Error(t, err)
		assert.Equal(t, tc.kind, KindOf(err))
	}
}

func TestCompleteJSONAcceptsFencedReply(t *testing.T) {
	var out struct {
		Recommendation string `json:"recommendation"`
	}
	raw, err := CompleteJSON(context.Background(), stubCaller{reply: "```json\n{\"recommendation\":\"GO\"}\n```"}, Request{}, &out)
	require.NoError(t, err)
	assert.Equal(t, "GO", out.Recommendation)
	assert.Contains(t, raw, "recommendation")
}
