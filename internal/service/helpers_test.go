package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"spacehub/internal/config"
	"spacehub/internal/database"
	"spacehub/internal/models"
	"spacehub/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Monday morning, far enough ahead that stored rows never look stale.
var testNow = time.Date(2030, time.January, 7, 8, 0, 0, 0, time.UTC)

type recordingBus struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBus) PublishJSON(eventType string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType)
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(_ context.Context, taskType, bookingID string, _ *models.Booking, status string) error {
	return m.Called(taskType, bookingID, status).Error(0)
}

type testEnv struct {
	db        *database.DB
	bus       *recordingBus
	sync      *mockSyncWorker
	cache     *repository.MemoryStore
	users     *UserService
	spaces    *SpaceService
	bookings  *BookingService
	invoices  *InvoiceService
	reviews   *ReviewService
	favorites *FavoriteService
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := &recordingBus{}
	worker := &mockSyncWorker{}
	worker.On("EnqueueTask", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache := repository.NewMemoryStore()

	env := &testEnv{
		db:    db,
		bus:   bus,
		sync:  worker,
		cache: cache,
		users: NewUserService(db, cache, 4, &logger),
	}
	env.spaces = NewSpaceService(db, bus, 0.1, &logger)
	env.invoices = NewInvoiceService(db, bus, 7, 0.1, &logger)
	env.bookings = NewBookingService(db, env.invoices, bus, worker, config.BookingConfig{TaxRate: 0.1, MaxAdvanceDays: 365}, &logger)
	env.reviews = NewReviewService(db, &logger)
	env.favorites = NewFavoriteService(db)
	env.dashboard = NewDashboardService(db, &logger)

	clock := func() time.Time { return testNow }
	env.spaces.now = clock
	env.invoices.now = clock
	env.bookings.now = clock
	return env
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "User " + email, Email: email}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

// space creates an active hourly listing owned by ownerID. mutate may adjust it first.
func (e *testEnv) space(t *testing.T, ownerID string, mutate func(*models.Space)) *models.Space {
	t.Helper()
	s := &models.Space{
		UserID:             ownerID,
		Title:              "Sunny Loft",
		Description:        "Bright room",
		ImageSrc:           "https://img.example.com/loft.jpg",
		SpaceType:          models.SpaceTypeWorkspace,
		Category:           "Meeting Room",
		Capacity:           10,
		MinCapacity:        2,
		LocationValue:      "US",
		Address:            "1 Main St",
		City:               "Springfield",
		Country:            "United States",
		MinBookingHours:    1,
		CancellationPolicy: models.PolicyModerate,
		RequiresApproval:   true,
		IsActive:           true,
		Pricing: []models.PricingTier{
			{PricingType: models.PricingHourly, Price: 50, Currency: "USD"},
			{PricingType: models.PricingDaily, Price: 300, Currency: "USD", CleaningFee: 20},
		},
	}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, e.db.CreateSpace(context.Background(), s))
	return s
}

func bookingInput(spaceID string, start time.Time, hours int, attendees int) BookingInput {
	end := start.Add(time.Duration(hours) * time.Hour)
	return BookingInput{
		SpaceID:       spaceID,
		StartDateTime: &start,
		EndDateTime:   &end,
		AttendeeCount: &attendees,
	}
}

func strPtr(s string) *string { return &s }

func intPtr(v int) *int { return &v }
