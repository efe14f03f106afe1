package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	path  Path
	text  string
	err   error
	calls int
	last  Request
}

func (s *stubGenerator) Path() Path { return s.path }

func (s *stubGenerator) Generate(_ context.Context, req Request) (string, error) {
	s.calls++
	s.last = req
	return s.text, s.err
}

func newStubClient(primary, fallback *stubGenerator) *Client {
	return NewWithGenerators(primary, fallback, "gemini-test", 0, nil)
}

func TestClientPrimaryMappingReturnedUnchanged(t *testing.T) {
	primary := &stubGenerator{path: PathSDK, text: `{"6": "High alignment - clean water access", "3": "Medium alignment - health impact"}`}
	fallback := &stubGenerator{path: PathREST}
	c := newStubClient(primary, fallback)

	resp, err := c.Generate(context.Background(), Request{Prompt: "Build a rural water purification project"})
	require.NoError(t, err)

	assert.Equal(t, PathSDK, resp.Path)
	assert.False(t, resp.Unstructured)
	m, ok := resp.Object()
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"6": "High alignment - clean water access",
		"3": "Medium alignment - health impact",
	}, m)
	assert.Equal(t, 0, fallback.calls)
}

func TestClientAppliesDefaults(t *testing.T) {
	primary := &stubGenerator{path: PathSDK, text: `[]`}
	c := newStubClient(primary, &stubGenerator{path: PathREST})

	_, err := c.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", primary.last.Model)
	assert.Equal(t, DefaultMaxOutputTokens, primary.last.MaxOutputTokens)
	assert.Equal(t, float32(0.3), primary.last.Temperature)

	_, err = c.Generate(context.Background(), Request{Prompt: "p", Model: "gemini-2.5-flash", MaxOutputTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", primary.last.Model)
	assert.Equal(t, 300, primary.last.MaxOutputTokens)
}

func TestClientFallbackOnPrimaryFailure(t *testing.T) {
	failures := []error{
		&Error{Kind: KindAuthentication, Path: PathSDK, Err: errors.New("GOOGLE_API_KEY is empty")},
		&Error{Kind: KindTransport, Path: PathSDK, Err: errors.New("dial tcp: timeout")},
		&Error{Kind: KindQuotaOrPermission, Path: PathSDK, Status: http.StatusForbidden},
		errors.New("sdk panic-free failure"),
	}
	for _, perr := range failures {
		primary := &stubGenerator{path: PathSDK, err: perr}
		fallback := &stubGenerator{path: PathREST, text: `["solar pumps", "sand filters"]`}
		c := newStubClient(primary, fallback)

		resp, err := c.Generate(context.Background(), Request{Prompt: "ideas"})
		require.NoError(t, err)
		assert.Equal(t, PathREST, resp.Path)
		l, ok := resp.List()
		require.True(t, ok)
		assert.Equal(t, []any{"solar pumps", "sand filters"}, l)
		assert.Equal(t, 1, fallback.calls)
		assert.Equal(t, "ideas", fallback.last.Prompt)
		assert.Equal(t, "gemini-test", fallback.last.Model)
	}
}

func TestClientBothFailClassified(t *testing.T) {
	cases := []struct {
		name     string
		fallback error
		want     Kind
	}{
		{"forbidden", &Error{Kind: KindQuotaOrPermission, Path: PathREST, Status: http.StatusForbidden}, KindQuotaOrPermission},
		{"auth", &Error{Kind: KindAuthentication, Path: PathREST, Status: http.StatusUnauthorized}, KindAuthentication},
		{"transport", &Error{Kind: KindTransport, Path: PathREST}, KindTransport},
		{"malformed", &Error{Kind: KindMalformedResponse, Path: PathREST, Status: http.StatusOK}, KindMalformedResponse},
		{"untyped", errors.New("boom"), KindTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			primary := &stubGenerator{path: PathSDK, err: &Error{Kind: KindTransport, Path: PathSDK, Err: errors.New("sdk down")}}
			fallback := &stubGenerator{path: PathREST, err: tc.fallback}
			c := newStubClient(primary, fallback)

			_, err := c.Generate(context.Background(), Request{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tc.want, KindOf(err))

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, PathREST, e.Path)
			assert.Contains(t, err.Error(), "sdk down")
		})
	}
}

func TestClientUnstructuredText(t *testing.T) {
	primary := &stubGenerator{path: PathSDK, text: "Here are some thoughts about your project, in prose."}
	c := newStubClient(primary, &stubGenerator{path: PathREST})

	resp, err := c.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Unstructured)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "Here are some thoughts about your project, in prose.", resp.Raw)
}

func TestClientBracketedProseStaysUnstructured(t *testing.T) {
	for _, text := range []string{
		"Scores: [high, medium] depending on rollout.",
		"The project fits goals [6] and [3] best.",
		"See goals [6, 3] for details.",
		"Impact is strong {high confidence}.",
	} {
		t.Run(text, func(t *testing.T) {
			fallback := &stubGenerator{path: PathREST}
			c := newStubClient(&stubGenerator{path: PathSDK, text: text}, fallback)

			resp, err := c.Generate(context.Background(), Request{Prompt: "x"})
			require.NoError(t, err)
			assert.True(t, resp.Unstructured)
			assert.Nil(t, resp.Data)
			assert.Equal(t, text, resp.Raw)
			assert.Zero(t, fallback.calls)
		})
	}
}

func TestClientRejectsEmptyPromptBeforeNetwork(t *testing.T) {
	primary := &stubGenerator{path: PathSDK, text: `{}`}
	fallback := &stubGenerator{path: PathREST, text: `{}`}
	c := newStubClient(primary, fallback)

	for _, p := range []string{"", "   ", "\n\t"} {
		_, err := c.Generate(context.Background(), Request{Prompt: p})
		require.Error(t, err)
		assert.Equal(t, KindInputValidation, KindOf(err))
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Zero(t, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestClientWithoutFallback(t *testing.T) {
	primary := &stubGenerator{path: PathSDK, err: &Error{Kind: KindAuthentication, Path: PathSDK}}
	c := NewWithGenerators(primary, nil, "", 0, nil)

	_, err := c.Generate(context.Background(), Request{Prompt: "x"})
	assert.Equal(t, KindAuthentication, KindOf(err))
	assert.Equal(t, DefaultModel, c.Model())
}
