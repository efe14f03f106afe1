package web

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecomind/api/internal/advisor"
	"ecomind/api/internal/chart"
	"ecomind/api/internal/llm"
	"ecomind/api/internal/prompt"
	"ecomind/api/internal/sdg"
)

// Advisor runs one mode; *advisor.Service implements it.
type Advisor interface {
	Run(ctx context.Context, mode prompt.Mode, in prompt.Input) (advisor.Result, error)
}

type Handler struct {
	logger *zap.Logger
	adv    Advisor
	model  string
}

func NewHandler(logger *zap.Logger, adv Advisor, model string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger, adv: adv, model: model}
}

// StatusFor maps an error kind to the HTTP status returned to clients.
func StatusFor(k llm.Kind) int {
	switch k {
	case llm.KindInputValidation:
		return http.StatusBadRequest
	case llm.KindAuthentication:
		return http.StatusUnauthorized
	case llm.KindQuotaOrPermission:
		return http.StatusForbidden
	case llm.KindMalformedResponse:
		return http.StatusBadGateway
	case llm.KindTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Index serves GET /.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", h.page("", formInput{}))
}

// Healthz serves GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Goals serves GET /api/v1/goals.
func (h *Handler) Goals(c *gin.Context) {
	type goal struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	out := make([]goal, 0, int(sdg.Last))
	for _, g := range sdg.All() {
		out = append(out, goal{ID: int(g), Name: g.Name()})
	}
	c.JSON(http.StatusOK, gin.H{"goals": out})
}

type apiRequest struct {
	Text    string         `json:"text"`
	Goal    int            `json:"goal"`
	Goals   []int          `json:"goals"`
	Context prompt.Context `json:"context"`
}

// API serves POST /api/v1/:mode.
func (h *Handler) API(c *gin.Context) {
	mode, err := prompt.ParseMode(c.Param("mode"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	var req apiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid api request", zap.String("mode", string(mode)), zap.Error(err))
		h.apiError(c, llm.InvalidInput("invalid request body: %v", err))
		return
	}

	in := prompt.Input{Text: req.Text, Goal: sdg.Goal(req.Goal), Context: req.Context}
	for _, g := range req.Goals {
		in.Goals = append(in.Goals, sdg.Goal(g))
	}
	if mode == prompt.ModeIdeas && in.Goal == 0 && len(in.Goals) > 0 {
		mode, in.Goal = ideasMode(in.Goals)
	}

	res, err := h.adv.Run(c.Request.Context(), mode, in)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) apiError(c *gin.Context, err error) {
	kind := llm.KindOf(err)
	h.logger.Warn("request failed",
		zap.String("request_id", requestID(c)),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	body := gin.H{"kind": kind.String(), "message": kind.UserMessage()}
	if kind == llm.KindInputValidation {
		body["detail"] = unwrapDetail(err)
	}
	c.JSON(StatusFor(kind), gin.H{"error": body, "request_id": requestID(c)})
}

// Form posts, one per mode.
func (h *Handler) Analyze(c *gin.Context) { h.runForm(c, prompt.ModeAnalyze) }
func (h *Handler) Pitch(c *gin.Context)   { h.runForm(c, prompt.ModePitch) }
func (h *Handler) Align(c *gin.Context)   { h.runForm(c, prompt.ModeAlign) }
func (h *Handler) Improve(c *gin.Context) { h.runForm(c, prompt.ModeImprove) }

// Ideas serves POST /ideas; several selected goals switch to multi-goal ideas.
func (h *Handler) Ideas(c *gin.Context) { h.runForm(c, prompt.ModeIdeas) }

func (h *Handler) runForm(c *gin.Context, mode prompt.Mode) {
	form, err := readForm(c)
	if err != nil {
		h.renderError(c, mode, form, err)
		return
	}
	in := form.input()
	if mode == prompt.ModeIdeas {
		mode, in.Goal = ideasMode(in.Goals)
	}

	res, err := h.adv.Run(c.Request.Context(), mode, in)
	if err != nil {
		h.renderError(c, mode, form, err)
		return
	}
	v := h.page(mode, form)
	v.fill(res)
	c.HTML(http.StatusOK, "result.tmpl", v)
}

func (h *Handler) renderError(c *gin.Context, mode prompt.Mode, form formInput, err error) {
	kind := llm.KindOf(err)
	h.logger.Warn("form request failed",
		zap.String("request_id", requestID(c)),
		zap.String("mode", string(mode)),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	v := h.page(mode, form)
	v.Error = &errorView{Kind: kind.String(), Message: kind.UserMessage()}
	if kind == llm.KindInputValidation {
		v.Error.Detail = unwrapDetail(err)
	}
	c.HTML(StatusFor(kind), "result.tmpl", v)
}

func (h *Handler) page(mode prompt.Mode, form formInput) *pageView {
	return &pageView{
		Mode:  string(mode),
		Title: titles[mode],
		Model: h.model,
		Goals: sdg.All(),
		Form:  form,
	}
}

// ideasMode picks single or multi-goal ideation.
func ideasMode(goals []sdg.Goal) (prompt.Mode, sdg.Goal) {
	if len(goals) == 1 {
		return prompt.ModeIdeas, goals[0]
	}
	return prompt.ModeIdeasMulti, 0
}

type formInput struct {
	Text     string
	Goal     sdg.Goal
	Goals    []sdg.Goal
	Context  prompt.Context
	selected map[sdg.Goal]bool
}

func (f formInput) Selected(g sdg.Goal) bool { return f.selected[g] || f.Goal == g }

func (f formInput) input() prompt.Input {
	return prompt.Input{Text: f.Text, Goal: f.Goal, Goals: f.Goals, Context: f.Context}
}

func readForm(c *gin.Context) (formInput, error) {
	f := formInput{Text: c.PostForm("text"), selected: map[sdg.Goal]bool{}}
	if err := c.ShouldBind(&f.Context); err != nil {
		return f, llm.InvalidInput("invalid form: %v", err)
	}
	if s := strings.TrimSpace(c.PostForm("goal")); s != "" {
		g, err := sdg.Parse(s)
		if err != nil {
			return f, llm.InvalidInput("%v", err)
		}
		f.Goal = g
	}
	for _, s := range c.PostFormArray("goals") {
		gs, err := sdg.ParseList(s)
		if err != nil {
			return f, llm.InvalidInput("%v", err)
		}
		for _, g := range gs {
			if !f.selected[g] {
				f.selected[g] = true
				f.Goals = append(f.Goals, g)
			}
		}
	}
	sort.Slice(f.Goals, func(i, j int) bool { return f.Goals[i] < f.Goals[j] })
	return f, nil
}

func unwrapDetail(err error) string {
	var e *llm.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

var titles = map[prompt.Mode]string{
	prompt.ModeAnalyze:    "SDG analysis",
	prompt.ModePitch:      "Pitch",
	prompt.ModeIdeas:      "Project ideas",
	prompt.ModeIdeasMulti: "Cross-goal project ideas",
	prompt.ModeImprove:    "Improvement suggestions",
	prompt.ModeAlign:      "SDG alignment",
}

// chartFor builds the chart entries for results that carry goal scores.
func chartFor(res advisor.Result) []chart.Entry {
	if a, ok := res.Analysis(); ok {
		items := make([]chart.Item, 0, len(a.SDGs))
		for _, s := range a.SDGs {
			items = append(items, chart.Item{ID: s.ID, Name: s.ShortName, Value: s.Score})
		}
		return chart.Entries(items)
	}
	if al, ok := res.Alignment(); ok {
		return chart.FromMap(map[string]string(al))
	}
	return nil
}
