package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ecomind/api/internal/prompt"
	"ecomind/api/internal/sdg"
)

const (
	cbPitch   = "pitch"
	cbImprove = "improve:"
	cbIdeas   = "ideas:"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	// drop the buttons so each follow-up runs once
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Send(edit)

	text := r.projects.Get(cid)
	switch {
	case cb.Data == cbPitch:
		if text == "" {
			r.send(cid, "Send the project description again, please.")
			return
		}
		r.runMode(ctx, cid, prompt.ModePitch, prompt.Input{Text: text})

	case strings.HasPrefix(cb.Data, cbImprove):
		g, err := sdg.Parse(strings.TrimPrefix(cb.Data, cbImprove))
		if err != nil || text == "" {
			r.send(cid, "Send the project description again, please.")
			return
		}
		r.runMode(ctx, cid, prompt.ModeImprove, prompt.Input{Text: text, Goal: g})

	case strings.HasPrefix(cb.Data, cbIdeas):
		g, err := sdg.Parse(strings.TrimPrefix(cb.Data, cbIdeas))
		if err != nil {
			return
		}
		r.runMode(ctx, cid, prompt.ModeIdeas, prompt.Input{Goal: g})
	}
}
