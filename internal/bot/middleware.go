package bot

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
)

func (b *Bot) withRecovery(l *zerolog.Logger, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ErrorsTotal.Inc()
			}
			l.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// allow applies the per-chat message budget. A failing store lets the update through.
func (b *Bot) allow(ctx context.Context, chatID int64) bool {
	if b.limits == nil || b.cfg.RateLimitMessages <= 0 {
		return true
	}
	allowed, err := b.limits.CheckRateLimit(ctx, "bot:chat:"+strconv.FormatInt(chatID, 10), b.cfg.RateLimitMessages, b.cfg.RateLimitWindow)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Rate limit check failed")
		return true
	}
	if !allowed {
		zerolog.Ctx(ctx).Warn().Int64("chat_id", chatID).Msg("Rate limit exceeded")
	}
	return allowed
}
