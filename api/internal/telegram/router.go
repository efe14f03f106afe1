package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ecomind/api/internal/advisor"
	"ecomind/api/internal/llm"
	"ecomind/api/internal/prompt"
	"ecomind/api/internal/util"
)

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Advisor runs one mode; *advisor.Service implements it.
type Advisor interface {
	Run(ctx context.Context, mode prompt.Mode, in prompt.Input) (advisor.Result, error)
}

const maxMessage = 3900

type Router struct {
	Bot   Sender
	Adv   Advisor
	Log   *zap.Logger
	Model string

	projects projectStore
}

func NewRouter(bot Sender, adv Advisor, model string, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{Bot: bot, Adv: adv, Model: model, Log: log}
}

// HandleUpdate processes one update. Updates are handled one at a time.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, upd.Message)
		return
	}
	// plain text is a project description
	if text := strings.TrimSpace(upd.Message.Text); text != "" {
		r.runMode(ctx, upd.Message.Chat.ID, prompt.ModeAnalyze, prompt.Input{Text: text})
	}
}

// runMode calls the advisor and replies with the formatted result or the
// user message of the failure.
func (r *Router) runMode(ctx context.Context, chatID int64, mode prompt.Mode, in prompt.Input) {
	if strings.TrimSpace(in.Text) != "" {
		r.projects.Set(chatID, in.Text)
	}
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))

	res, err := r.Adv.Run(ctx, mode, in)
	if err != nil {
		r.SendError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, trim(formatResult(res)))
	if kb, ok := followUpKeyboard(res); ok {
		msg.ReplyMarkup = kb
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, trim(text))
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) SendError(chatID int64, err error) {
	kind := llm.KindOf(err)
	r.Log.Warn("telegram request failed",
		zap.Int64("chat_id", chatID),
		zap.String("kind", kind.String()),
		zap.Error(err),
	)
	text := "⚠️ " + kind.UserMessage()
	if kind == llm.KindInputValidation {
		var e *llm.Error
		if errors.As(err, &e) && e.Err != nil {
			text += "\n" + e.Err.Error()
		}
	}
	r.send(chatID, text)
}

func trim(s string) string { return util.Truncate(s, maxMessage) }
