// Package advisor runs one EcoMind flow end to end: build the prompt, call
// Gemini, check the reply against the mode's schema and decode it.
package advisor

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"
	"go.uber.org/zap"

	"ecomind/api/internal/llm"
	"ecomind/api/internal/prompt"
	"ecomind/api/internal/sdg"
	"ecomind/api/internal/util"
)

// Completer is the part of *llm.Client the advisor needs.
type Completer interface {
	Generate(ctx context.Context, req llm.Request) (llm.Response, error)
}

type Service struct {
	llm     Completer
	prompts *prompt.Builder
	schemas map[prompt.Mode]*jsonschema.Schema
	timeout time.Duration
	log     *zap.Logger
}

// New compiles the reply schema of every mode. timeout bounds each call; 0
// leaves the caller's context as is.
func New(c Completer, prompts *prompt.Builder, timeout time.Duration, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if prompts == nil {
		prompts = prompt.Default()
	}
	s := &Service{
		llm:     c,
		prompts: prompts,
		schemas: make(map[prompt.Mode]*jsonschema.Schema),
		timeout: timeout,
		log:     log,
	}
	for _, m := range prompt.Modes() {
		raw, err := prompts.Schema(m)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", m, err)
		}
		sch, err := jsonschema.NewCompiler().Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", m, err)
		}
		s.schemas[m] = sch
	}
	return s, nil
}

// Run executes mode. A reply that is not JSON comes back with Unstructured
// set; JSON that does not match the mode's shape is KindMalformedResponse.
func (s *Service) Run(ctx context.Context, mode prompt.Mode, in prompt.Input) (Result, error) {
	p, err := s.prompts.Build(mode, in)
	if err != nil {
		return Result{}, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.llm.Generate(ctx, p.Request(""))
	if err != nil {
		s.log.Warn("advisor call failed",
			zap.String("mode", string(mode)),
			zap.String("kind", llm.KindOf(err).String()),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
		return Result{}, err
	}

	res := Result{Mode: mode, Path: resp.Path, Model: resp.Model, Raw: resp.Raw}
	if resp.Unstructured {
		res.Unstructured = true
		s.log.Info("advisor reply unstructured",
			zap.String("mode", string(mode)),
			zap.String("path", string(resp.Path)),
			zap.String("raw", util.Truncate(resp.Raw, 200)),
		)
		return res, nil
	}

	if err := s.check(mode, resp.Data); err != nil {
		return Result{}, &llm.Error{Kind: llm.KindMalformedResponse, Path: resp.Path, Status: http.StatusOK, Err: err}
	}
	data, err := shape(mode, in, resp.Data)
	if err != nil {
		return Result{}, &llm.Error{Kind: llm.KindMalformedResponse, Path: resp.Path, Status: http.StatusOK, Err: err}
	}
	res.Data = data

	s.log.Info("advisor reply",
		zap.String("mode", string(mode)),
		zap.String("path", string(resp.Path)),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

func (s *Service) check(mode prompt.Mode, data any) error {
	sch, ok := s.schemas[mode]
	if !ok {
		return fmt.Errorf("no schema for mode %s", mode)
	}
	r := sch.Validate(data)
	if r.IsValid() {
		return nil
	}
	fields := make([]string, 0, len(r.Errors))
	for f := range r.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, f+": "+r.Errors[f].Message)
	}
	return fmt.Errorf("%s reply does not match schema: %s", mode, strings.Join(msgs, "; "))
}

// shape decodes validated data into the mode's type and fills the fields
// the model is allowed to leave out.
func shape(mode prompt.Mode, in prompt.Input, data any) (any, error) {
	switch mode {
	case prompt.ModeAnalyze:
		var a Analysis
		if err := util.Decode(data, &a); err != nil {
			return nil, fmt.Errorf("decode analysis: %w", err)
		}
		for i := range a.SDGs {
			if strings.TrimSpace(a.SDGs[i].ShortName) == "" {
				a.SDGs[i].ShortName = sdg.Goal(a.SDGs[i].ID).Name()
			}
		}
		return &a, nil

	case prompt.ModePitch:
		var p Pitch
		if err := util.Decode(data, &p); err != nil {
			return nil, fmt.Errorf("decode pitch: %w", err)
		}
		return &p, nil

	case prompt.ModeIdeas:
		var v Ideas
		if err := util.Decode(data, &v); err != nil {
			return nil, fmt.Errorf("decode ideas: %w", err)
		}
		if v.SDG == 0 {
			v.SDG = int(in.Goal)
		}
		if strings.TrimSpace(v.SDGName) == "" {
			v.SDGName = sdg.Goal(v.SDG).Name()
		}
		return &v, nil

	case prompt.ModeIdeasMulti:
		var v MultiIdeas
		if err := util.Decode(data, &v); err != nil {
			return nil, fmt.Errorf("decode ideas: %w", err)
		}
		selected := sdg.Ints(in.Goals)
		if len(v.CoveredSDGs) == 0 {
			v.CoveredSDGs = selected
		}
		for i := range v.Ideas {
			if len(v.Ideas[i].CoveredSDGs) == 0 {
				v.Ideas[i].CoveredSDGs = append([]int(nil), selected...)
			}
		}
		return &v, nil

	case prompt.ModeImprove:
		var v Improvements
		if err := util.Decode(data, &v); err != nil {
			return nil, fmt.Errorf("decode improvements: %w", err)
		}
		if v.SDG == 0 {
			v.SDG = int(in.Goal)
		}
		return &v, nil

	case prompt.ModeAlign:
		m, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("alignment is %T, want object", data)
		}
		return alignmentFrom(m), nil
	}
	return nil, fmt.Errorf("unknown mode %q", mode)
}

func (s *Service) Analyze(ctx context.Context, text string) (Result, error) {
	return s.Run(ctx, prompt.ModeAnalyze, prompt.Input{Text: text})
}

func (s *Service) Pitch(ctx context.Context, text string) (Result, error) {
	return s.Run(ctx, prompt.ModePitch, prompt.Input{Text: text})
}

func (s *Service) Align(ctx context.Context, text string) (Result, error) {
	return s.Run(ctx, prompt.ModeAlign, prompt.Input{Text: text})
}

func (s *Service) Improve(ctx context.Context, text string, goal sdg.Goal) (Result, error) {
	return s.Run(ctx, prompt.ModeImprove, prompt.Input{Text: text, Goal: goal})
}

// Ideas generates ideas for one goal, or ideas covering all goals when more
// than one is given.
func (s *Service) Ideas(ctx context.Context, goals []sdg.Goal, pc prompt.Context) (Result, error) {
	if len(goals) == 1 {
		return s.Run(ctx, prompt.ModeIdeas, prompt.Input{Goal: goals[0], Context: pc})
	}
	return s.Run(ctx, prompt.ModeIdeasMulti, prompt.Input{Goals: goals, Context: pc})
}
