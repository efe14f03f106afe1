// Package prompt turns user input into the text sent to Gemini.
//
// Instructions and generation style live in catalog.yaml, one entry per
// mode; the reply shape of each mode is described by a JSON schema under
// schema/. Both are embedded, and the catalog can be replaced at start-up
// with PROMPTS_FILE.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"ecomind/api/internal/llm"
	"ecomind/api/internal/sdg"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed schema/*.schema.json
var schemaFS embed.FS

// MaxTextRunes bounds the project description.
const MaxTextRunes = 8000

type Mode string

const (
	ModeAnalyze    Mode = "analyze"
	ModePitch      Mode = "pitch"
	ModeIdeas      Mode = "ideas"
	ModeIdeasMulti Mode = "ideas_multi"
	ModeImprove    Mode = "improve"
	ModeAlign      Mode = "align"
)

var modes = []Mode{ModeAnalyze, ModePitch, ModeIdeas, ModeIdeasMulti, ModeImprove, ModeAlign}

func Modes() []Mode { return append([]Mode(nil), modes...) }

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range modes {
		if k == m {
			return m, nil
		}
	}
	return "", llm.InvalidInput("unknown mode %q", s)
}

// NeedsText reports whether the mode works on a project description.
func (m Mode) NeedsText() bool {
	switch m {
	case ModeAnalyze, ModePitch, ModeImprove, ModeAlign:
		return true
	}
	return false
}

// NeedsGoal reports whether the mode targets a single SDG.
func (m Mode) NeedsGoal() bool { return m == ModeIdeas || m == ModeImprove }

// Context narrows idea generation. Empty fields are left out of the prompt.
type Context struct {
	Sector        string `json:"sector,omitempty" form:"sector"`
	Region        string `json:"region,omitempty" form:"region"`
	Beneficiaries string `json:"beneficiaries,omitempty" form:"beneficiaries"`
	Budget        string `json:"budget,omitempty" form:"budget"`
	Technologies  string `json:"technologies,omitempty" form:"technologies"`
	Constraints   string `json:"constraints,omitempty" form:"constraints"`
}

// String renders one "Label: value" line per set field, or "None".
func (c Context) String() string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Sector", c.Sector)
	add("Region", c.Region)
	add("Beneficiaries", c.Beneficiaries)
	add("Budget", c.Budget)
	add("Technologies", c.Technologies)
	add("Constraints", c.Constraints)
	if len(lines) == 0 {
		return "None"
	}
	return strings.Join(lines, "\n")
}

type Input struct {
	Text    string
	Goal    sdg.Goal
	Goals   []sdg.Goal
	Context Context
}

// Prompt is a rendered request for one mode.
type Prompt struct {
	Mode            Mode
	Text            string
	Temperature     float32
	MaxOutputTokens int
}

// Request converts p into an llm.Request asking for a JSON reply.
func (p Prompt) Request(model string) llm.Request {
	return llm.Request{
		Prompt:          p.Text,
		Model:           model,
		Temperature:     p.Temperature,
		MaxOutputTokens: p.MaxOutputTokens,
		JSON:            true,
	}
}

type Catalog struct {
	Version int               `yaml:"version"`
	System  string            `yaml:"system"`
	Modes   map[Mode]ModeSpec `yaml:"modes"`
}

type ModeSpec struct {
	Schema   string `yaml:"schema"`
	Template string `yaml:"template"`
	Style    struct {
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"style"`
}

type Builder struct {
	cat   Catalog
	tmpls map[Mode]*template.Template
}

// Default returns the builder for the embedded catalog.
func Default() *Builder {
	b, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("prompt: embedded catalog: %v", err))
	}
	return b
}

// Load reads a catalog file; an empty path means the embedded one.
func Load(path string) (*Builder, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts %s: %w", path, err)
	}
	b, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("prompts %s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a catalog and compiles its templates. Every mode must be present.
func Parse(raw []byte) (*Builder, error) {
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	b := &Builder{cat: cat, tmpls: make(map[Mode]*template.Template, len(modes))}
	for _, m := range modes {
		spec, ok := cat.Modes[m]
		if !ok || strings.TrimSpace(spec.Template) == "" {
			return nil, fmt.Errorf("mode %s: missing template", m)
		}
		t, err := template.New(string(m)).Option("missingkey=error").Parse(spec.Template)
		if err != nil {
			return nil, fmt.Errorf("mode %s: %w", m, err)
		}
		b.tmpls[m] = t
	}
	return b, nil
}

type templateData struct {
	Text       string
	Goal       int
	GoalName   string
	Goals      string
	GoalLabels string
	Context    string
}

// Build validates in for mode and renders the prompt.
func (b *Builder) Build(mode Mode, in Input) (Prompt, error) {
	t, ok := b.tmpls[mode]
	if !ok {
		return Prompt{}, llm.InvalidInput("unknown mode %q", mode)
	}
	if err := validate(mode, in); err != nil {
		return Prompt{}, err
	}

	data := templateData{
		Text:     strings.TrimSpace(in.Text),
		Goal:     int(in.Goal),
		GoalName: in.Goal.Name(),
		Context:  in.Context.String(),
	}
	if len(in.Goals) > 0 {
		ids := make([]string, len(in.Goals))
		labels := make([]string, len(in.Goals))
		for i, g := range in.Goals {
			ids[i] = fmt.Sprint(int(g))
			labels[i] = g.Label()
		}
		data.Goals = strings.Join(ids, ", ")
		data.GoalLabels = strings.Join(labels, "; ")
	}

	var buf bytes.Buffer
	if s := strings.TrimSpace(b.cat.System); s != "" {
		buf.WriteString(s)
		buf.WriteString("\n\n")
	}
	if err := t.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("render %s: %w", mode, err)
	}

	spec := b.cat.Modes[mode]
	return Prompt{
		Mode:            mode,
		Text:            strings.TrimSpace(buf.String()),
		Temperature:     spec.Style.Temperature,
		MaxOutputTokens: spec.Style.MaxTokens,
	}, nil
}

func validate(mode Mode, in Input) error {
	if mode.NeedsText() {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return llm.InvalidInput("project description is empty")
		}
		if n := utf8.RuneCountInString(text); n > MaxTextRunes {
			return llm.InvalidInput("project description is %d characters, limit is %d", n, MaxTextRunes)
		}
	}
	if mode.NeedsGoal() && !in.Goal.Valid() {
		return llm.InvalidInput("goal %d is outside %d..%d", int(in.Goal), sdg.First, sdg.Last)
	}
	if mode == ModeIdeasMulti {
		if len(in.Goals) == 0 {
			return llm.InvalidInput("select at least one goal")
		}
		for _, g := range in.Goals {
			if !g.Valid() {
				return llm.InvalidInput("goal %d is outside %d..%d", int(g), sdg.First, sdg.Last)
			}
		}
	}
	return nil
}

// Schema returns the JSON schema the reply of mode must satisfy.
func (b *Builder) Schema(mode Mode) ([]byte, error) {
	spec, ok := b.cat.Modes[mode]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	name := spec.Schema
	if name == "" {
		name = string(mode) + ".schema.json"
	}
	return schemaFS.ReadFile("schema/" + name)
}
