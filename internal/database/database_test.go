package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spacehub/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "User " + email, Email: email, PasswordHash: "hash"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func createTestSpace(t *testing.T, db *DB, ownerID string, mutate func(s *models.Space)) *models.Space {
	t.Helper()
	s := &models.Space{
		UserID:             ownerID,
		Title:              "Loft",
		Description:        "Bright loft",
		ImageSrc:           "https://img.example.com/loft.jpg",
		SpaceType:          models.SpaceTypeWorkspace,
		Category:           "Meeting Room",
		Capacity:           10,
		MinCapacity:        1,
		LocationValue:      "US",
		Address:            "1 Main St",
		City:               "Portland",
		Country:            "US",
		Amenities:          []string{"wifi", "projector"},
		MinBookingHours:    1,
		CancellationPolicy: models.PolicyModerate,
		IsActive:           true,
		Pricing: []models.PricingTier{
			{PricingType: models.PricingHourly, Price: 50, CleaningFee: 10},
			{PricingType: models.PricingDaily, Price: 300},
		},
		BusinessHours: []models.BusinessHour{
			{DayOfWeek: "MONDAY", OpenTime: "09:00", CloseTime: "17:00"},
			{DayOfWeek: "SUNDAY", OpenTime: "09:00", CloseTime: "17:00", IsClosed: true},
		},
	}
	if mutate != nil {
		mutate(s)
	}
	require.NoError(t, db.CreateSpace(context.Background(), s))
	return s
}

func createTestBooking(t *testing.T, db *DB, userID, spaceID string, start time.Time, hours int, status string) *models.Booking {
	t.Helper()
	b := &models.Booking{
		UserID:        userID,
		SpaceID:       spaceID,
		StartDateTime: start,
		EndDateTime:   start.Add(time.Duration(hours) * time.Hour),
		TotalHours:    float64(hours),
		AttendeeCount: 2,
		HourlyRate:    50,
		TotalPrice:    float64(hours) * 50,
		PricingType:   models.PricingHourly,
		Status:        status,
		PaymentStatus: models.PaymentPending,
	}
	require.NoError(t, db.CreateBookingWithLock(context.Background(), b))
	return b
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestNewDB_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	createTestUser(t, db, "keep@example.com")
	require.NoError(t, db.Close())

	// tables and added columns already exist
	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	u, err := db.GetUserByEmail(context.Background(), "keep@example.com")
	require.NoError(t, err)
	assert.Equal(t, "keep@example.com", u.Email)
}

func TestEnsureColumnIdempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.ensureColumn("bookings", "version", "INTEGER NOT NULL DEFAULT 1"))
}

func TestForeignKeysEnforced(t *testing.T) {
	db := setupTestDB(t)
	err := db.CreateSpace(context.Background(), &models.Space{UserID: "missing-user", Title: "x"})
	assert.Error(t, err)
}

func TestTimeRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	in := time.Date(2025, 5, 6, 10, 30, 15, 123456000, loc)

	out, err := parseTime(formatTime(in))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())

	// fixed width keeps lexical order equal to time order
	a := formatTime(time.Date(2025, 1, 1, 0, 0, 5, 0, time.UTC))
	b := formatTime(time.Date(2025, 1, 1, 0, 0, 5, 500000000, time.UTC))
	assert.Less(t, a, b)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()

	assert.Error(t, db.CreateUser(ctx, &models.User{Email: "a@b.c"}))
	_, err = db.GetSpace(ctx, "x")
	assert.Error(t, err)
	_, err = db.SearchSpaces(ctx, models.SpaceFilter{})
	assert.Error(t, err)
	assert.Error(t, db.CreateBookingWithLock(ctx, &models.Booking{}))
	assert.Error(t, db.CreateSyncTask(ctx, &models.SyncTask{}))
	_, err = db.MarkOverdueInvoices(ctx, time.Now())
	assert.Error(t, err)
}
