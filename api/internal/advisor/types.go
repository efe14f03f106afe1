package advisor

import (
	"strconv"
	"strings"

	"ecomind/api/internal/llm"
	"ecomind/api/internal/prompt"
)

type GoalScore struct {
	ID          int     `json:"id"`
	ShortName   string  `json:"short_name"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

type Risks struct {
	Environmental []string `json:"environmental"`
	Social        []string `json:"social"`
	Economic      []string `json:"economic"`
}

// RiskRow is one category line of the risk summary table.
type RiskRow struct {
	Category string `json:"category"`
	Summary  string `json:"summary"`
}

// Rows summarizes each category on one line, "None identified" when empty.
func (r Risks) Rows() []RiskRow {
	row := func(cat string, items []string) RiskRow {
		var kept []string
		for _, it := range items {
			if it = strings.TrimSpace(it); it != "" {
				kept = append(kept, it)
			}
		}
		if len(kept) == 0 {
			return RiskRow{Category: cat, Summary: "None identified"}
		}
		return RiskRow{Category: cat, Summary: strings.Join(kept, " • ")}
	}
	return []RiskRow{
		row("Environmental", r.Environmental),
		row("Social", r.Social),
		row("Economic", r.Economic),
	}
}

type Analysis struct {
	SDGs                 []GoalScore `json:"sdgs"`
	SustainabilityImpact string      `json:"sustainability_impact"`
	FeasibilityScore     float64     `json:"feasibility_score"`
	Risks                Risks       `json:"risks"`
	Recommendations      []string    `json:"recommendations"`
	Notes                string      `json:"notes,omitempty"`
}

type Pitch struct {
	Pitch        string   `json:"pitch"`
	Elevator     string   `json:"elevator"`
	BulletPoints []string `json:"bullet_points"`
}

type Idea struct {
	Title                  string   `json:"title"`
	Description            string   `json:"description"`
	WhyItFits              string   `json:"why_it_fits"`
	KeySteps               []string `json:"key_steps"`
	EstimatedBudget        string   `json:"estimated_budget"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	CoveredSDGs            []int    `json:"covered_sdgs,omitempty"`
}

type Ideas struct {
	SDG     int    `json:"sdg"`
	SDGName string `json:"sdg_name"`
	Ideas   []Idea `json:"ideas"`
}

type MultiIdeas struct {
	CoveredSDGs []int  `json:"covered_sdgs"`
	Ideas       []Idea `json:"ideas"`
}

type Improvements struct {
	SDG         int      `json:"sdg"`
	Suggestions []string `json:"suggestions"`
	Notes       string   `json:"notes,omitempty"`
}

// Alignment maps a goal id, as the model wrote it, to its comment.
type Alignment map[string]string

func alignmentFrom(m map[string]any) Alignment {
	out := make(Alignment, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return out
}

// Result is the outcome of one advisor call. Data holds one of *Analysis,
// *Pitch, *Ideas, *MultiIdeas, *Improvements or Alignment, and is nil when
// the reply was unstructured.
type Result struct {
	Mode         prompt.Mode `json:"mode"`
	Path         llm.Path    `json:"path"`
	Model        string      `json:"model"`
	Raw          string      `json:"raw"`
	Unstructured bool        `json:"unstructured"`
	Data         any         `json:"data,omitempty"`
}

func (r Result) Analysis() (*Analysis, bool) {
	v, ok := r.Data.(*Analysis)
	return v, ok
}

func (r Result) Pitch() (*Pitch, bool) {
	v, ok := r.Data.(*Pitch)
	return v, ok
}

func (r Result) Ideas() (*Ideas, bool) {
	v, ok := r.Data.(*Ideas)
	return v, ok
}

func (r Result) MultiIdeas() (*MultiIdeas, bool) {
	v, ok := r.Data.(*MultiIdeas)
	return v, ok
}

func (r Result) Improvements() (*Improvements, bool) {
	v, ok := r.Data.(*Improvements)
	return v, ok
}

func (r Result) Alignment() (Alignment, bool) {
	v, ok := r.Data.(Alignment)
	return v, ok
}
