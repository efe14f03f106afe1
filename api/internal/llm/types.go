package llm

import (
	"context"
	"time"
)

// Path names the transport a completion came through.
type Path string

const (
	PathSDK  Path = "sdk"
	PathREST Path = "rest"
)

const (
	DefaultModel           = "gemini-1.5-flash"
	DefaultMaxOutputTokens = 700
	DefaultRESTBaseURL     = "https://generativelanguage.googleapis.com/v1beta/models"
)

type Request struct {
	Prompt string
	// Model overrides the client default when set.
	Model       string
	Temperature float32
	// MaxOutputTokens overrides the client default when > 0.
	MaxOutputTokens int
	// JSON asks the model for an application/json reply.
	JSON bool
}

// Response is a successful completion. Data holds a map[string]any or an
// []any when Raw parsed as a JSON object or array; otherwise Unstructured
// is set and callers should show Raw verbatim.
type Response struct {
	Path         Path   `json:"path"`
	Model        string `json:"model"`
	Raw          string `json:"raw"`
	Data         any    `json:"data,omitempty"`
	Unstructured bool   `json:"unstructured"`
}

func (r Response) Object() (map[string]any, bool) {
	m, ok := r.Data.(map[string]any)
	return m, ok
}

func (r Response) List() ([]any, bool) {
	l, ok := r.Data.([]any)
	return l, ok
}

// Generator is one transport to the model. Implementations return the
// completion text, or an *Error describing the failure.
type Generator interface {
	Path() Path
	Generate(ctx context.Context, req Request) (string, error)
}

type Config struct {
	APIKey          string
	Model           string
	RESTBaseURL     string
	Timeout         time.Duration
	MaxOutputTokens int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.RESTBaseURL == "" {
		c.RESTBaseURL = DefaultRESTBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return c
}
