// Package bot is the host's Telegram companion: it links a chat to a spacehub
// account and lets hosts act on pending requests without opening the site.
package bot

import (
	"context"
	"os"
	"strings"
	"time"

	"spacehub/internal/config"
	"spacehub/internal/domain"
	"spacehub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	upcomingWindow = 7 * 24 * time.Hour
	updateTimeout  = 30 * time.Second
)

// Users is the part of the user service the bot needs.
type Users interface {
	LinkTelegram(ctx context.Context, code string, chatID int64) (*models.User, error)
	GetByTelegramChat(ctx context.Context, chatID int64) (*models.User, error)
}

// Bookings is the part of the booking service the bot needs.
type Bookings interface {
	ListForUser(ctx context.Context, userID string) ([]*models.Booking, error)
	ListForOwner(ctx context.Context, ownerID, status string) ([]*models.Booking, error)
	UpcomingForOwner(ctx context.Context, ownerID string, from, to time.Time) ([]*models.Booking, error)
	Approve(ctx context.Context, callerID, id string) (*models.Booking, error)
	Reject(ctx context.Context, callerID, id, reason string) (*models.Booking, error)
}

type Bot struct {
	tg       domain.TelegramSender
	cfg      config.TelegramConfig
	limits   domain.CacheStore
	users    Users
	bookings Bookings
	metrics  *Metrics
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewBot wires the bot. limits and metrics may be nil.
func NewBot(
	tg domain.TelegramSender,
	cfg config.TelegramConfig,
	limits domain.CacheStore,
	users Users,
	bookings Bookings,
	metrics *Metrics,
	logger *zerolog.Logger,
) *Bot {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	return &Bot{
		tg:       tg,
		cfg:      cfg,
		limits:   limits,
		users:    users,
		bookings: bookings,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Start long-polls for updates until ctx is done or the channel closes.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().Str("request_id", uuid.New().String()).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(&l, func() {
		chatID := chatOf(update)
		if chatID == 0 {
			return
		}
		if !b.allow(updateCtx, chatID) {
			if update.Message != nil {
				b.sendMessage(updateCtx, chatID, "You are sending messages too fast. Please wait a moment.")
			}
			return
		}

		switch {
		case update.CallbackQuery != nil:
			b.countUpdate("callback")
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
		case update.Message != nil && update.Message.IsCommand():
			b.countUpdate(update.Message.Command())
			b.handleCommand(updateCtx, update.Message)
		case update.Message != nil:
			b.countUpdate("text")
			b.sendMessage(updateCtx, chatID, helpText)
		}
	})
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		b.sendMessage(ctx, chatID, helpText)
	case "link":
		b.handleLink(ctx, chatID, msg.CommandArguments())
	case "pending":
		b.handlePending(ctx, chatID)
	case "upcoming":
		b.handleUpcoming(ctx, chatID)
	case "trips":
		b.handleTrips(ctx, chatID)
	default:
		b.sendMessage(ctx, chatID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		b.sendMessage(ctx, chatID, "Usage: /link CODE\nGet a code from your profile page.")
		return
	}
	user, err := b.users.LinkTelegram(ctx, code, chatID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Int64("chat_id", chatID).Msg("telegram chat linked")
	b.sendMessage(ctx, chatID, "Linked to "+user.Name+". You will get booking updates here.")
}

func (b *Bot) handlePending(ctx context.Context, chatID int64) {
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	pending, err := b.bookings.ListForOwner(ctx, user.ID, models.StatusPending)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(pending) == 0 {
		b.sendMessage(ctx, chatID, "No pending requests.")
		return
	}
	for _, booking := range pending {
		msg := tgbotapi.NewMessage(chatID, describeBooking(booking))
		msg.ReplyMarkup = decisionKeyboard(booking.ID)
		b.send(ctx, msg)
	}
}

func (b *Bot) handleUpcoming(ctx context.Context, chatID int64) {
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	now := b.now()
	upcoming, err := b.bookings.UpcomingForOwner(ctx, user.ID, now, now.Add(upcomingWindow))
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.sendMessage(ctx, chatID, bookingList("Upcoming bookings on your spaces (7 days):", "Nothing booked in the next 7 days.", upcoming))
}

func (b *Bot) handleTrips(ctx context.Context, chatID int64) {
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	all, err := b.bookings.ListForUser(ctx, user.ID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	now := b.now()
	var upcoming []*models.Booking
	for _, booking := range all {
		if booking.IsActive() && booking.EndDateTime.After(now) {
			upcoming = append(upcoming, booking)
		}
	}
	b.sendMessage(ctx, chatID, bookingList("Your upcoming trips:", "You have no upcoming trips.", upcoming))
}

// linkedUser resolves the chat's account, telling the chat how to link when there is none.
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*models.User, bool) {
	user, err := b.users.GetByTelegramChat(ctx, chatID)
	if err != nil {
		if isNotFound(err) {
			b.sendMessage(ctx, chatID, "This chat is not linked yet. Send /link CODE first.")
		} else {
			b.replyError(ctx, chatID, err)
		}
		return nil, false
	}
	return user, true
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	b.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) {
	if _, err := b.tg.Send(c); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("telegram send failed")
	}
}

func (b *Bot) countUpdate(kind string) {
	if b.metrics != nil {
		b.metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	}
}

func chatOf(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.Message.Chat.ID
	case update.Message != nil && update.Message.Chat != nil:
		return update.Message.Chat.ID
	}
	return 0
}
