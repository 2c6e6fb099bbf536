package notify

import (
	"context"
	"errors"

	"spacehub/internal/domain"
	"spacehub/internal/metrics"
	"spacehub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var ErrNotLinked = errors.New("user has no linked telegram chat")

// LogNotifier writes notifications to the log. It is the fallback channel.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, user *models.User, text string) error {
	n.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("text", text).Msg("notification")
	return nil
}

func (n *LogNotifier) Channel() string { return "log" }

// TelegramNotifier sends plain text messages to a user's linked chat.
type TelegramNotifier struct {
	sender domain.TelegramSender
}

func NewTelegramNotifier(sender domain.TelegramSender) *TelegramNotifier {
	return &TelegramNotifier{sender: sender}
}

func (n *TelegramNotifier) Notify(ctx context.Context, user *models.User, text string) error {
	if !user.TelegramLinked() {
		return ErrNotLinked
	}
	_, err := n.sender.Send(tgbotapi.NewMessage(user.TelegramChatID, text))
	return err
}

func (n *TelegramNotifier) Channel() string { return "telegram" }

// Router picks Telegram for linked users and the log otherwise.
type Router struct {
	telegram domain.Notifier
	fallback domain.Notifier
}

// NewRouter builds a router; telegram may be nil when no bot token is configured.
func NewRouter(telegram, fallback domain.Notifier) *Router {
	return &Router{telegram: telegram, fallback: fallback}
}

func (r *Router) Notify(ctx context.Context, user *models.User, text string) error {
	if user == nil {
		return errors.New("notify: nil user")
	}
	ch := r.fallback
	if r.telegram != nil && user.TelegramLinked() {
		ch = r.telegram
	}
	err := ch.Notify(ctx, user, text)
	metrics.IncNotification(ch.Channel(), err)
	return err
}

func (r *Router) Channel() string { return "router" }
