package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ecomind/api/internal/prompt"
	"ecomind/api/internal/sdg"
)

const helpText = `EcoMind maps your project to the UN Sustainable Development Goals.

Send a project description to analyze it, or use:
/analyze <text> - SDG analysis with scores and risks
/align <text> - quick goal-by-goal alignment
/pitch <text> - pitch, elevator line and bullets
/improve <goal> <text> - suggestions for one goal
/ideas <goal> [goal...] [| constraints] - project ideas for goals
/goals - list the 17 goals`

func (r *Router) HandleCommand(ctx context.Context, m *tgbotapi.Message) {
	cid := m.Chat.ID
	args := strings.TrimSpace(m.CommandArguments())

	switch m.Command() {
	case "start", "help":
		r.send(cid, helpText)

	case "goals":
		var b strings.Builder
		for _, g := range sdg.All() {
			b.WriteString(g.Label())
			b.WriteByte('\n')
		}
		r.send(cid, b.String())

	case "analyze", "align", "pitch":
		mode := prompt.Mode(m.Command())
		if args == "" {
			args = r.projects.Get(cid)
		}
		if args == "" {
			r.send(cid, fmt.Sprintf("Usage: /%s <project description>", mode))
			return
		}
		r.runMode(ctx, cid, mode, prompt.Input{Text: args})

	case "improve":
		goal, text, err := parseImprove(args)
		if err != nil {
			r.send(cid, err.Error()+"\nUsage: /improve <goal> <project description>")
			return
		}
		if text == "" {
			text = r.projects.Get(cid)
		}
		r.runMode(ctx, cid, prompt.ModeImprove, prompt.Input{Text: text, Goal: goal})

	case "ideas":
		goals, constraints, err := parseIdeas(args)
		if err != nil {
			r.send(cid, err.Error()+"\nUsage: /ideas <goal> [goal...] [| constraints]")
			return
		}
		in := prompt.Input{Context: prompt.Context{Constraints: constraints}}
		mode := prompt.ModeIdeasMulti
		if len(goals) == 1 {
			mode, in.Goal = prompt.ModeIdeas, goals[0]
		} else {
			in.Goals = goals
		}
		r.runMode(ctx, cid, mode, in)

	default:
		r.send(cid, "Unknown command. Try /help")
	}
}

// parseImprove splits "6 some project" into the goal and the description.
func parseImprove(args string) (sdg.Goal, string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("goal is missing")
	}
	g, err := sdg.Parse(fields[0])
	if err != nil {
		return 0, "", err
	}
	return g, strings.TrimSpace(strings.TrimPrefix(args, fields[0])), nil
}

// parseIdeas reads "1 5 13 | low budget" into goals and free-text constraints.
func parseIdeas(args string) ([]sdg.Goal, string, error) {
	list, constraints, _ := strings.Cut(args, "|")
	goals, err := sdg.ParseList(list)
	if err != nil {
		return nil, "", err
	}
	if len(goals) == 0 {
		return nil, "", fmt.Errorf("goal is missing")
	}
	return goals, strings.TrimSpace(constraints), nil
}
