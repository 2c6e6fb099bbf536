// Package app assembles the pieces shared by the spacehub binaries: config,
// logging, storage, the cache, the event bus and the services on top.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"spacehub/internal/api"
	"spacehub/internal/bot"
	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/domain"
	"spacehub/internal/events"
	"spacehub/internal/google"
	"spacehub/internal/logging"
	"spacehub/internal/notify"
	"spacehub/internal/repository"
	"spacehub/internal/service"
	"spacehub/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options control which optional parts Bootstrap connects.
type Options struct {
	// Component tags every log line.
	Component string
	// SyncSheets connects the bookings spreadsheet so this process can drain the sync queue.
	// Without it the worker only enqueues and another process applies the tasks.
	SyncSheets bool
}

// Core is a wired process. Close releases everything Bootstrap opened.
type Core struct {
	Config   *config.Config
	Logger   *zerolog.Logger
	DB       *database.DB
	Redis    *redis.Client
	Cache    domain.CacheStore
	Bus      *events.EventBus
	Telegram *bot.BotWrapper
	Sheets   *google.BookingsSheet
	Worker   *worker.SheetsWorker
	Notifier domain.Notifier
	Services api.Services
	Invoices *service.InvoiceService
	Bookings *service.BookingService
	Users    *service.UserService

	subscriber *notify.Subscriber
	bridge     *events.AMQPBridge
	logCloser  io.Closer
}

// ConfigPath is CONFIG_PATH or the default location.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return config.DefaultPath
}

func Bootstrap(ctx context.Context, opts Options) (*Core, error) {
	cfg, err := config.Load(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	base, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c := &Core{Config: cfg, Logger: logging.Component(base, opts.Component), logCloser: closer}
	if err := c.init(ctx, opts); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Core) init(ctx context.Context, opts Options) error {
	cfg := c.Config
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		c.Logger.Error().Err(err).Msg("create exports directory")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, c.Logger)
	if err != nil {
		c.Logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	c.DB = db

	c.initCache(ctx)
	c.initEvents()

	c.initSync(ctx, opts.SyncSheets)
	c.initServices()

	if err := c.initNotifications(); err != nil {
		return err
	}
	return nil
}

// initCache prefers Redis and falls back to process memory while Redis is down.
func (c *Core) initCache(ctx context.Context) {
	memory := repository.NewMemoryStore()
	if c.Config.Redis.Address == "" {
		c.Logger.Warn().Msg("redis not configured, link codes and rate limits are per process")
		c.Cache = memory
		return
	}

	c.Redis = repository.NewRedisClient(c.Config.Redis)
	if err := repository.Ping(ctx, c.Redis); err != nil {
		c.Logger.Warn().Err(err).Msg("redis unavailable, starting on the memory fallback")
	} else {
		c.Logger.Info().Str("addr", c.Config.Redis.Address).Msg("redis connected")
	}
	c.Cache = repository.NewFailoverStore(repository.NewRedisStore(c.Redis), memory, c.Logger)
}

func (c *Core) initEvents() {
	c.Bus = events.NewEventBus()
	if c.Config.Events.AMQPURL == "" {
		return
	}
	bridge, err := events.DialAMQPBridge(c.Config.Events.AMQPURL, c.Config.Events.Exchange, c.Logger)
	if err != nil {
		// the bus works without the broker
		c.Logger.Warn().Err(err).Msg("amqp bridge disabled")
		return
	}
	bridge.Attach(c.Bus)
	c.bridge = bridge
	c.Logger.Info().Str("exchange", c.Config.Events.Exchange).Msg("amqp bridge attached")
}

func (c *Core) initSync(ctx context.Context, connectSheet bool) {
	if !c.Config.Google.Enabled() {
		return
	}
	if connectSheet {
		sheet, err := google.NewBookingsSheet(ctx, c.Config.Google.GoogleCredentialsFile, c.Config.Google.BookingSpreadSheetID, c.Logger)
		if err != nil {
			c.Logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
			return
		}
		if err := sheet.EnsureHeader(ctx); err != nil {
			c.Logger.Warn().Err(err).Msg("google sheets header check failed")
		}
		c.Sheets = sheet
	}

	var writer domain.SheetsWriter
	if c.Sheets != nil {
		writer = c.Sheets
	}
	c.Worker = worker.NewSheetsWorker(c.DB, writer, c.Redis, worker.DefaultRetryPolicy, c.Logger)
}

func (c *Core) initServices() {
	cfg := c.Config
	var syncWorker domain.SyncWorker
	if c.Worker != nil {
		syncWorker = c.Worker
	}

	c.Invoices = service.NewInvoiceService(c.DB, c.Bus, cfg.Booking.InvoiceDueDays, cfg.Booking.TaxRate, c.Logger)
	c.Bookings = service.NewBookingService(c.DB, c.Invoices, c.Bus, syncWorker, cfg.Booking, c.Logger)
	c.Users = service.NewUserService(c.DB, c.Cache, cfg.API.Auth.BcryptCost, c.Logger)
	c.Services = api.Services{
		Users:     c.Users,
		Spaces:    service.NewSpaceService(c.DB, c.Bus, cfg.Booking.TaxRate, c.Logger),
		Bookings:  c.Bookings,
		Invoices:  c.Invoices,
		Reviews:   service.NewReviewService(c.DB, c.Logger),
		Favorites: service.NewFavoriteService(c.DB),
		Dashboard: service.NewDashboardService(c.DB, c.Logger),
	}
}

// initNotifications routes event messages to Telegram for linked users when a bot token is set.
func (c *Core) initNotifications() error {
	var telegram domain.Notifier
	if token := c.Config.Telegram.BotToken; token != "" {
		tg, err := bot.NewBotWrapper(token, c.Config.Telegram.Debug)
		if err != nil {
			c.Logger.Error().Err(err).Msg("telegram login failed")
			return err
		}
		c.Telegram = tg
		telegram = notify.NewTelegramNotifier(tg)
	}
	c.Notifier = notify.NewRouter(telegram, notify.NewLogNotifier(c.Logger))
	c.subscriber = notify.NewSubscriber(c.DB, c.Notifier, c.Logger)
	c.subscriber.Attach(c.Bus)
	return nil
}

// Close waits for in-flight notifications and closes connections in reverse order.
func (c *Core) Close() {
	if c.subscriber != nil {
		c.subscriber.Wait()
	}
	if c.bridge != nil {
		if err := c.bridge.Close(); err != nil {
			c.Logger.Warn().Err(err).Msg("close amqp bridge")
		}
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}
