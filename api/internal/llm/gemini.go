package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// contentModel is the part of *genai.GenerativeModel the SDK path calls.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type modelOpener func(ctx context.Context, apiKey string, req Request) (contentModel, func() error, error)

// Gemini is the primary path: the official genai SDK client.
type Gemini struct {
	APIKey string
	open   modelOpener
}

func NewGemini(apiKey string) *Gemini {
	return &Gemini{
		APIKey: strings.TrimSpace(apiKey),
		open:   openGenaiModel,
	}
}

func (g *Gemini) Path() Path { return PathSDK }

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if g.APIKey == "" {
		return "", &Error{Kind: KindAuthentication, Path: PathSDK, Err: errors.New("GOOGLE_API_KEY is empty")}
	}
	m, closeFn, err := g.open(ctx, g.APIKey, req)
	if err != nil {
		kind, code := classifySDK(err)
		return "", &Error{Kind: kind, Path: PathSDK, Status: code, Err: err}
	}
	defer closeFn()

	resp, err := m.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		kind, code := classifySDK(err)
		return "", &Error{Kind: kind, Path: PathSDK, Status: code, Err: err}
	}
	txt := strings.TrimSpace(candidateText(resp))
	if txt == "" {
		return "", malformed(PathSDK, "gemini sdk: empty response")
	}
	return txt, nil
}

func openGenaiModel(ctx context.Context, apiKey string, req Request) (contentModel, func() error, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, err
	}
	m := cl.GenerativeModel(strings.TrimSpace(req.Model))
	if m == nil {
		_ = cl.Close()
		return nil, nil, errors.New("gemini: model is nil")
	}
	configureModel(m, req)
	return m, cl.Close, nil
}

func configureModel(m *genai.GenerativeModel, req Request) {
	m.SetTemperature(req.Temperature)
	if req.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxOutputTokens))
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}
}

// candidateText joins the text parts of the first candidate that has content.
func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
