package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	approvePrefix = "approve:"
	rejectPrefix  = "reject:"
)

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// answer right away so the client stops showing the spinner
	if _, err := b.tg.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("answer callback failed")
	}

	chatID := callback.Message.Chat.ID
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}

	data := callback.Data
	switch {
	case strings.HasPrefix(data, approvePrefix):
		booking, err := b.bookings.Approve(ctx, user.ID, strings.TrimPrefix(data, approvePrefix))
		if err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		b.closeDecision(ctx, callback, "Approved.\n"+describeBooking(booking))
	case strings.HasPrefix(data, rejectPrefix):
		booking, err := b.bookings.Reject(ctx, user.ID, strings.TrimPrefix(data, rejectPrefix), "")
		if err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		b.closeDecision(ctx, callback, "Rejected.\n"+describeBooking(booking))
	default:
		zerolog.Ctx(ctx).Warn().Str("data", data).Msg("unknown callback")
	}
}

// closeDecision replaces the request message so its buttons cannot be pressed twice.
func (b *Bot) closeDecision(ctx context.Context, callback *tgbotapi.CallbackQuery, text string) {
	edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, text)
	b.send(ctx, edit)
}

func decisionKeyboard(bookingID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", approvePrefix+bookingID),
			tgbotapi.NewInlineKeyboardButtonData("Reject", rejectPrefix+bookingID),
		),
	)
}
