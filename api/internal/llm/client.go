package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"ecomind/api/internal/util"
)

// Client sends a prompt through the primary Generator and, if that fails
// for any reason, once through the fallback. There is no other retry.
type Client struct {
	primary  Generator
	fallback Generator
	model    string
	maxOut   int
	log      *zap.Logger
}

// New wires the genai SDK as primary and the REST endpoint as fallback.
func New(cfg Config, log *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	return NewWithGenerators(
		NewGemini(cfg.APIKey),
		NewREST(cfg.APIKey, cfg.RESTBaseURL, cfg.Timeout),
		cfg.Model,
		cfg.MaxOutputTokens,
		log,
	)
}

func NewWithGenerators(primary, fallback Generator, model string, maxOutputTokens int, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if model == "" {
		model = DefaultModel
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = DefaultMaxOutputTokens
	}
	return &Client{
		primary:  primary,
		fallback: fallback,
		model:    model,
		maxOut:   maxOutputTokens,
		log:      log,
	}
}

func (c *Client) Model() string { return c.model }

// Generate validates the prompt, obtains a completion and parses it. A
// reply that is not a JSON object or array comes back with Unstructured set
// rather than as an error. Failures are always *Error.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, &Error{Kind: KindInputValidation, Err: ErrEmptyPrompt}
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = c.model
	}
	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = c.maxOut
	}

	txt, err := c.primary.Generate(ctx, req)
	if err == nil {
		return c.respond(c.primary.Path(), req.Model, txt), nil
	}
	c.log.Warn("primary path failed",
		zap.String("path", string(c.primary.Path())),
		zap.String("model", req.Model),
		zap.String("kind", KindOf(err).String()),
		zap.Error(err),
	)
	if c.fallback == nil {
		return Response{}, asError(err, c.primary.Path())
	}

	txt, ferr := c.fallback.Generate(ctx, req)
	if ferr == nil {
		c.log.Info("fallback path succeeded",
			zap.String("path", string(c.fallback.Path())),
			zap.String("model", req.Model),
		)
		return c.respond(c.fallback.Path(), req.Model, txt), nil
	}

	last := asError(ferr, c.fallback.Path())
	c.log.Error("all paths failed",
		zap.String("model", req.Model),
		zap.String("kind", last.Kind.String()),
		zap.Error(ferr),
	)
	return Response{}, &Error{
		Kind:   last.Kind,
		Path:   last.Path,
		Status: last.Status,
		Err:    multierror.Append(nil, err, ferr),
	}
}

func (c *Client) respond(path Path, model, txt string) Response {
	r := Response{Path: path, Model: model, Raw: txt}
	if v, ok := util.ParseJSON(txt); ok {
		r.Data = v
	} else {
		r.Unstructured = true
	}
	return r
}

// asError makes sure a generator failure carries a Kind.
func asError(err error, path Path) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindTransport, Path: path, Err: err}
}
