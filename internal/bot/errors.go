package bot

import (
	"context"
	"errors"

	"spacehub/internal/database"
	"spacehub/internal/service"

	"github.com/rs/zerolog"
)

const genericError = "Something went wrong. Please try again later."

func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	msg := errorMessage(err)
	if msg == genericError {
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("bot request failed")
	}
	b.sendMessage(ctx, chatID, msg)
}

// errorMessage turns a service error into text fit for the chat.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}
	var forbidden *service.ForbiddenError
	if errors.As(err, &forbidden) {
		return forbidden.Message
	}
	if isNotFound(err) {
		var nf *service.NotFoundError
		if errors.As(err, &nf) {
			return nf.Error()
		}
		return "Not found"
	}
	if errors.Is(err, service.ErrInvalidTransition) {
		return "That booking can no longer be changed."
	}
	if errors.Is(err, database.ErrConcurrentModification) {
		return "The booking changed in the meantime. Please try again."
	}

	return genericError
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}
