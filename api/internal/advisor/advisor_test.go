package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomind/api/internal/llm"
	"ecomind/api/internal/prompt"
	"ecomind/api/internal/sdg"
)

// fakeGen feeds canned text through a real llm.Client so parsing is exercised.
type fakeGen struct {
	text  string
	err   error
	calls int
	last  llm.Request
}

func (f *fakeGen) Path() llm.Path { return llm.PathSDK }

func (f *fakeGen) Generate(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.last = req
	return f.text, f.err
}

func newService(t *testing.T, text string) (*Service, *fakeGen) {
	t.Helper()
	g := &fakeGen{text: text}
	c := llm.NewWithGenerators(g, nil, "gemini-test", 0, nil)
	s, err := New(c, prompt.Default(), time.Second, nil)
	require.NoError(t, err)
	return s, g
}

func TestAnalyze(t *testing.T) {
	s, g := newService(t, "```json\n"+`{
		"sdgs": [
			{"id": 6, "short_name": "", "score": 92, "explanation": "Clean water access."},
			{"id": 3, "short_name": "Good Health", "score": 61, "explanation": "Fewer waterborne diseases."}
		],
		"sustainability_impact": "High",
		"feasibility_score": 7,
		"risks": {"environmental": ["Brine disposal"], "social": [], "economic": ["Maintenance cost", "Spare parts"]},
		"recommendations": ["Train local technicians"]
	}`+"\n```")

	res, err := s.Analyze(context.Background(), "Build a rural water purification project")
	require.NoError(t, err)
	assert.Equal(t, prompt.ModeAnalyze, res.Mode)
	assert.Equal(t, llm.PathSDK, res.Path)
	assert.False(t, res.Unstructured)

	a, ok := res.Analysis()
	require.True(t, ok)
	require.Len(t, a.SDGs, 2)
	assert.Equal(t, "Clean Water", a.SDGs[0].ShortName)
	assert.Equal(t, float64(92), a.SDGs[0].Score)
	assert.Equal(t, "High", a.SustainabilityImpact)
	assert.Equal(t, []RiskRow{
		{"Environmental", "Brine disposal"},
		{"Social", "None identified"},
		{"Economic", "Maintenance cost • Spare parts"},
	}, a.Risks.Rows())

	assert.Equal(t, float32(0.15), g.last.Temperature)
	assert.Equal(t, 700, g.last.MaxOutputTokens)
	assert.Equal(t, "gemini-test", g.last.Model)
	assert.True(t, g.last.JSON)
}

func TestAnalyzePartialJSONIsMalformed(t *testing.T) {
	s, _ := newService(t, `{"sustainability_impact": "High", "feasibility_score": 7}`)

	_, err := s.Analyze(context.Background(), "project")
	require.Error(t, err)
	assert.Equal(t, llm.KindMalformedResponse, llm.KindOf(err))
	assert.Contains(t, err.Error(), "analyze reply does not match schema")
}

func TestWrongTopLevelIsMalformed(t *testing.T) {
	s, _ := newService(t, `["not", "a", "pitch"]`)
	_, err := s.Pitch(context.Background(), "project")
	assert.Equal(t, llm.KindMalformedResponse, llm.KindOf(err))
}

func TestUnstructuredPassesThrough(t *testing.T) {
	s, _ := newService(t, "Your project mainly supports clean water and health.")

	res, err := s.Align(context.Background(), "project")
	require.NoError(t, err)
	assert.True(t, res.Unstructured)
	assert.Nil(t, res.Data)
	assert.Equal(t, "Your project mainly supports clean water and health.", res.Raw)
}

func TestBracketedProseIsNotMalformed(t *testing.T) {
	const text = "Scores: [high, medium] depending on rollout."
	s, _ := newService(t, text)

	res, err := s.Analyze(context.Background(), "project")
	require.NoError(t, err)
	assert.True(t, res.Unstructured)
	assert.Equal(t, text, res.Raw)
}

func TestAlign(t *testing.T) {
	s, _ := newService(t, `{"6": "High alignment - clean water access", "3": "Medium alignment - health impact", "13": 40}`)

	res, err := s.Align(context.Background(), "Build a rural water purification project")
	require.NoError(t, err)
	al, ok := res.Alignment()
	require.True(t, ok)
	assert.Equal(t, Alignment{
		"6":  "High alignment - clean water access",
		"3":  "Medium alignment - health impact",
		"13": "40",
	}, al)
}

func TestPitch(t *testing.T) {
	s, g := newService(t, `{'pitch': 'Clean water for 10k villagers.', 'elevator': 'Water now.', 'bullet_points': ['Low cost', 'Solar powered']}`)

	res, err := s.Pitch(context.Background(), "project")
	require.NoError(t, err)
	p, ok := res.Pitch()
	require.True(t, ok)
	assert.Equal(t, "Water now.", p.Elevator)
	assert.Equal(t, []string{"Low cost", "Solar powered"}, p.BulletPoints)
	assert.Equal(t, float32(0.25), g.last.Temperature)
}

func TestIdeasSingleGoalDefaults(t *testing.T) {
	s, g := newService(t, `{"ideas": [{"title": "Solar kiosks", "key_steps": ["Survey", "Pilot"]}]}`)

	res, err := s.Ideas(context.Background(), []sdg.Goal{7}, prompt.Context{Region: "India"})
	require.NoError(t, err)
	v, ok := res.Ideas()
	require.True(t, ok)
	assert.Equal(t, 7, v.SDG)
	assert.Equal(t, "Affordable Energy", v.SDGName)
	assert.Equal(t, "Solar kiosks", v.Ideas[0].Title)
	assert.Contains(t, g.last.Prompt, "Region: India")
}

func TestIdeasMultiFillsCoveredGoals(t *testing.T) {
	s, _ := newService(t, `{"ideas": [
		{"title": "Women-led solar co-ops"},
		{"title": "Climate-smart microloans", "covered_sdgs": [1, 13]}
	]}`)

	res, err := s.Ideas(context.Background(), []sdg.Goal{1, 5, 13}, prompt.Context{})
	require.NoError(t, err)
	v, ok := res.MultiIdeas()
	require.True(t, ok)
	assert.Equal(t, []int{1, 5, 13}, v.CoveredSDGs)
	assert.Equal(t, []int{1, 5, 13}, v.Ideas[0].CoveredSDGs)
	assert.Equal(t, []int{1, 13}, v.Ideas[1].CoveredSDGs)
}

func TestImprove(t *testing.T) {
	s, _ := newService(t, `{"suggestions": ["Add greywater reuse"], "notes": "Check local permits"}`)

	res, err := s.Improve(context.Background(), "school garden", 6)
	require.NoError(t, err)
	v, ok := res.Improvements()
	require.True(t, ok)
	assert.Equal(t, 6, v.SDG)
	assert.Equal(t, []string{"Add greywater reuse"}, v.Suggestions)
}

func TestInputErrorsSkipModel(t *testing.T) {
	s, g := newService(t, `{}`)

	_, err := s.Analyze(context.Background(), "  ")
	assert.Equal(t, llm.KindInputValidation, llm.KindOf(err))
	_, err = s.Improve(context.Background(), "garden", 0)
	assert.Equal(t, llm.KindInputValidation, llm.KindOf(err))
	_, err = s.Ideas(context.Background(), nil, prompt.Context{})
	assert.Equal(t, llm.KindInputValidation, llm.KindOf(err))
	assert.Zero(t, g.calls)
}

func TestClientErrorsPropagate(t *testing.T) {
	s, g := newService(t, "")
	g.err = &llm.Error{Kind: llm.KindQuotaOrPermission, Path: llm.PathSDK, Status: 403, Err: errors.New("denied")}

	_, err := s.Analyze(context.Background(), "project")
	assert.Equal(t, llm.KindQuotaOrPermission, llm.KindOf(err))
}
