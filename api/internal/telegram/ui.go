package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ecomind/api/internal/advisor"
	"ecomind/api/internal/chart"
	"ecomind/api/internal/sdg"
)

// followUpKeyboard offers a pitch and per-goal actions after an analysis or
// alignment, using the best scoring goal.
func followUpKeyboard(res advisor.Result) (tgbotapi.InlineKeyboardMarkup, bool) {
	entries := entriesOf(res)
	if len(entries) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	top := entries[0]
	for _, e := range entries[1:] {
		if e.Score > top.Score {
			top = e
		}
	}
	id := strconv.Itoa(int(top.Goal))
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Pitch", cbPitch),
			tgbotapi.NewInlineKeyboardButtonData("Improve SDG "+id, cbImprove+id),
			tgbotapi.NewInlineKeyboardButtonData("Ideas SDG "+id, cbIdeas+id),
		),
	), true
}

func entriesOf(res advisor.Result) []chart.Entry {
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

// bar renders a 10-cell text bar for a 0..100 score.
func bar(score float64) string {
	n := int(score/10 + 0.5)
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}

func formatResult(res advisor.Result) string {
	if res.Unstructured || res.Data == nil {
		return "The model did not return structured data. Its answer:\n\n" + res.Raw
	}

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}
	list := func(items []string) {
		for _, it := range items {
			line("• %s", it)
		}
	}

	switch v := res.Data.(type) {
	case *advisor.Analysis:
		line("🌍 SDG analysis")
		for _, e := range entriesOf(res) {
			line("%s %3.0f  %s", bar(e.Score), e.Score, e.Label)
		}
		for _, s := range v.SDGs {
			if s.Explanation != "" {
				line("%d: %s", s.ID, s.Explanation)
			}
		}
		line("")
		line("Impact: %s · Feasibility: %.0f/10", v.SustainabilityImpact, v.FeasibilityScore)
		line("")
		line("Risks")
		for _, row := range v.Risks.Rows() {
			line("%s: %s", row.Category, row.Summary)
		}
		if len(v.Recommendations) > 0 {
			line("")
			line("Recommendations")
			list(v.Recommendations)
		}
		if v.Notes != "" {
			line("")
			line("%s", v.Notes)
		}

	case advisor.Alignment:
		line("🎯 SDG alignment")
		for _, e := range entriesOf(res) {
			comment := v[strconv.Itoa(int(e.Goal))]
			line("%s %s", bar(e.Score), e.Label)
			if comment != "" {
				line("   %s", comment)
			}
		}

	case *advisor.Pitch:
		line("💡 %s", v.Elevator)
		line("")
		line("%s", v.Pitch)
		if len(v.BulletPoints) > 0 {
			line("")
			list(v.BulletPoints)
		}

	case *advisor.Ideas:
		line("🛠 Ideas for SDG %d: %s", v.SDG, v.SDGName)
		formatIdeas(line, v.Ideas)

	case *advisor.MultiIdeas:
		labels := make([]string, len(v.CoveredSDGs))
		for i, id := range v.CoveredSDGs {
			labels[i] = sdg.Goal(id).Label()
		}
		line("🛠 Ideas covering %s", strings.Join(labels, ", "))
		formatIdeas(line, v.Ideas)

	case *advisor.Improvements:
		line("📈 Improving SDG %s", sdg.Goal(v.SDG).Label())
		for i, s := range v.Suggestions {
			line("%d. %s", i+1, s)
		}
		if v.Notes != "" {
			line("")
			line("%s", v.Notes)
		}

	default:
		return res.Raw
	}
	return strings.TrimSpace(b.String())
}

func formatIdeas(line func(string, ...any), ideas []advisor.Idea) {
	for i, idea := range ideas {
		line("")
		if idea.EstimatedBudget != "" {
			line("%d. %s (%s)", i+1, idea.Title, idea.EstimatedBudget)
		} else {
			line("%d. %s", i+1, idea.Title)
		}
		if idea.Description != "" {
			line("%s", idea.Description)
		}
		if idea.WhyItFits != "" {
			line("Why: %s", idea.WhyItFits)
		}
		for _, s := range idea.KeySteps {
			line("  - %s", s)
		}
	}
}
