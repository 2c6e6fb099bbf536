package domain

import (
	"context"
	"time"

	"spacehub/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	SetTelegramChatID(ctx context.Context, userID string, chatID int64) error
	FavoriteIDs(ctx context.Context, userID string) ([]string, error)
}

type SpaceRepository interface {
	CreateSpace(ctx context.Context, space *models.Space) error
	GetSpace(ctx context.Context, id string) (*models.Space, error)
	UpdateSpace(ctx context.Context, space *models.Space, replacePricing, replaceHours bool) error
	SoftDeleteSpace(ctx context.Context, id string) error
	HasActiveBookings(ctx context.Context, spaceID string, now time.Time) (bool, error)
	SearchSpaces(ctx context.Context, f models.SpaceFilter) ([]*models.SpaceSummary, error)
	ListSpacesByOwner(ctx context.Context, ownerID string) ([]*models.SpaceSummary, error)
}

type BookingRepository interface {
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookingsByUser(ctx context.Context, userID string) ([]*models.Booking, error)
	ListBookingsForOwner(ctx context.Context, ownerID, status string) ([]*models.Booking, error)
	ListBookingsForSpace(ctx context.Context, spaceID string, from, to time.Time) ([]*models.Booking, error)
	ListBookingsStartingBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status, reason string) error
	UpdateBookingDetails(ctx context.Context, b *models.Booking) error
	SetPaymentStatus(ctx context.Context, bookingID, status string) error
	DeleteBooking(ctx context.Context, id string) error
	CountPendingForOwner(ctx context.Context, ownerID string) (int, error)
	FindCompletedBooking(ctx context.Context, userID, spaceID string) (*models.Booking, error)
}

type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	GetInvoiceByBooking(ctx context.Context, bookingID string) (*models.Invoice, error)
	ListInvoicesForUser(ctx context.Context, userID, status string) ([]*models.Invoice, error)
	LoadInvoiceBooking(ctx context.Context, inv *models.Invoice) error
	UpdateInvoiceStatus(ctx context.Context, id, status string, paidAt *time.Time) error
	MarkOverdueInvoices(ctx context.Context, now time.Time) ([]*models.Invoice, error)
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, r *models.Review) error
	ListReviewsForSpace(ctx context.Context, spaceID string) ([]*models.Review, error)
	RatingSummary(ctx context.Context, spaceID string) (models.RatingSummary, error)
}

type FavoriteRepository interface {
	AddFavorite(ctx context.Context, userID, spaceID string) error
	RemoveFavorite(ctx context.Context, userID, spaceID string) error
	ListFavoriteSpaces(ctx context.Context, userID string) ([]*models.Space, error)
}

type StatsRepository interface {
	OwnerSpaceStats(ctx context.Context, ownerID string, monthStart time.Time) ([]models.SpaceStats, error)
	OwnerBookingsSince(ctx context.Context, ownerID, spaceID string, since time.Time) ([]*models.Booking, error)
	OwnerRating(ctx context.Context, ownerID, spaceID string) (float64, error)
	CountOwnerSpaces(ctx context.Context, ownerID string) (int, error)
}

// Repository is everything the services read and write. *database.DB implements it.
type Repository interface {
	UserRepository
	SpaceRepository
	BookingRepository
	InvoiceRepository
	ReviewRepository
	FavoriteRepository
	StatsRepository
}

// CacheStore holds short-lived values: cached responses, link codes, throttling counters.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status string) error
	DeleteBooking(ctx context.Context, bookingID string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID string, booking *models.Booking, status string) error
}

// Notifier delivers a short text message to a user.
type Notifier interface {
	Notify(ctx context.Context, user *models.User, text string) error
	Channel() string
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
