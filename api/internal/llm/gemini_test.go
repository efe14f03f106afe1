package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeModel struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if t, ok := parts[0].(genai.Text); ok {
			f.prompt = string(t)
		}
	}
	return f.resp, f.err
}

func geminiWith(m *fakeModel, openErr error) (*Gemini, *bool) {
	closed := false
	g := NewGemini("key")
	g.open = func(ctx context.Context, apiKey string, req Request) (contentModel, func() error, error) {
		if openErr != nil {
			return nil, nil, openErr
		}
		return m, func() error { closed = true; return nil }, nil
	}
	return g, &closed
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGeminiGenerate(t *testing.T) {
	m := &fakeModel{resp: textResponse(`{"pitch":`, ` "clean water"}`)}
	g, closed := geminiWith(m, nil)

	txt, err := g.Generate(context.Background(), Request{Prompt: "describe", Model: "gemini-1.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, `{"pitch": "clean water"}`, txt)
	assert.Equal(t, "describe", m.prompt)
	assert.True(t, *closed)
	assert.Equal(t, PathSDK, g.Path())
}

func TestGeminiMissingKey(t *testing.T) {
	g := NewGemini("")
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.Equal(t, KindAuthentication, KindOf(err))
}

func TestGeminiEmptyCandidate(t *testing.T) {
	g, _ := geminiWith(&fakeModel{resp: &genai.GenerateContentResponse{}}, nil)
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestGeminiErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "no creds"), KindAuthentication},
		{"bad key", status.Error(codes.InvalidArgument, "API key not valid. Please pass a valid API key."), KindAuthentication},
		{"permission", status.Error(codes.PermissionDenied, "denied"), KindQuotaOrPermission},
		{"not found", status.Error(codes.NotFound, "models/x is not found"), KindQuotaOrPermission},
		{"quota", status.Error(codes.ResourceExhausted, "quota"), KindQuotaOrPermission},
		{"unavailable", status.Error(codes.Unavailable, "down"), KindTransport},
		{"deadline", context.DeadlineExceeded, KindTransport},
		{"blocked", &genai.BlockedError{}, KindMalformedResponse},
		{"plain", errors.New("connection reset by peer"), KindTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := geminiWith(&fakeModel{err: tc.err}, nil)
			_, err := g.Generate(context.Background(), Request{Prompt: "p"})
			assert.Equal(t, tc.want, KindOf(err))
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestGeminiInvalidKeyReasonOverGRPC(t *testing.T) {
	st, err := status.New(codes.InvalidArgument, "request rejected").
		WithDetails(&errdetails.ErrorInfo{Reason: "API_KEY_INVALID", Domain: "googleapis.com"})
	require.NoError(t, err)

	g, _ := geminiWith(&fakeModel{err: st.Err()}, nil)
	_, err = g.Generate(context.Background(), Request{Prompt: "p"})

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, KindAuthentication, e.Kind)
	assert.Equal(t, 0, e.Status)
}

func TestGeminiOpenFailure(t *testing.T) {
	g, _ := geminiWith(nil, status.Error(codes.Unauthenticated, "bad"))
	_, err := g.Generate(context.Background(), Request{Prompt: "p"})
	assert.Equal(t, KindAuthentication, KindOf(err))
}

func TestConfigureModel(t *testing.T) {
	m := &genai.GenerativeModel{}
	configureModel(m, Request{Temperature: 0.6, MaxOutputTokens: 900, JSON: true})

	require.NotNil(t, m.Temperature)
	assert.Equal(t, float32(0.6), *m.Temperature)
	require.NotNil(t, m.MaxOutputTokens)
	assert.Equal(t, int32(900), *m.MaxOutputTokens)
	assert.Equal(t, "application/json", m.ResponseMIMEType)

	plain := &genai.GenerativeModel{}
	configureModel(plain, Request{Temperature: 0})
	assert.Nil(t, plain.MaxOutputTokens)
	assert.Empty(t, plain.ResponseMIMEType)
}
