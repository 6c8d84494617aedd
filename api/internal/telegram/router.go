package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"explain-proxy/api/internal/apperr"
	"explain-proxy/api/internal/explain"
	"explain-proxy/api/internal/observability"
)

// Bot is the subset of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Explainer interface {
	Explain(ctx context.Context, sub explain.Submission) (explain.Result, error)
}

type Router struct {
	Bot       Bot
	Explainer Explainer
	Log       *slog.Logger

	// Отображается в /health.
	EngineName string
	Model      string

	MaxUploadBytes int64
	HTTPClient     *http.Client
}

const helpText = "Пришли вопрос текстом или файл (код, лог, картинку, PDF) с подписью, и я объясню.\n" +
	"Команды: /help, /health"

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, fmt.Sprintf("✅ OK\nДвижок: %s (%s)", r.EngineName, r.Model))
	default:
		r.send(cid, "Неизвестная команда")
	}
}

// HandleUpdate processes one update synchronously. Each update becomes an independent submission.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	ctx = observability.WithRequestID(ctx, fmt.Sprintf("tg-%d-%d", msg.Chat.ID, upd.UpdateID))

	if msg.IsCommand() {
		r.HandleCommand(ctx, msg)
		return
	}

	sub, err := r.submissionFromMessage(ctx, msg)
	if err != nil {
		observability.FromContext(ctx, r.Log).Warn("telegram: cannot read message", "err", err)
		r.SendError(msg.Chat.ID, err)
		return
	}
	if strings.TrimSpace(sub.Text) == "" && sub.Attachment == nil {
		// стикеры, голосовые и прочее
		r.send(msg.Chat.ID, helpText)
		return
	}

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))

	res, err := r.Explainer.Explain(ctx, sub)
	if err != nil {
		r.SendError(msg.Chat.ID, err)
		return
	}
	r.SendResult(msg.Chat.ID, res.Explanation)
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warn("telegram: send failed", "chat_id", chatID, "err", err)
	}
}

// SendResult delivers the explanation in as many messages as needed.
func (r *Router) SendResult(chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxMessageRunes) {
		r.send(chatID, chunk)
	}
}

// SendError replies with the same public message the HTTP API returns.
func (r *Router) SendError(chatID int64, err error) {
	_, msg := apperr.Public(err)
	r.send(chatID, "⚠️ "+msg)
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
