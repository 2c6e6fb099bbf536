package database

import (
	"context"
	"testing"
	"time"

	"spacehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetSpace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	sqft := 1200
	s := createTestSpace(t, db, owner.ID, func(s *models.Space) {
		s.SquareFootage = &sqft
		s.Rules = []string{"No smoking"}
	})

	got, err := db.GetSpace(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loft", got.Title)
	assert.Equal(t, []string{"wifi", "projector"}, got.Amenities)
	assert.Equal(t, []string{"No smoking"}, got.Rules)
	assert.Equal(t, []string{}, got.Equipment)
	require.NotNil(t, got.SquareFootage)
	assert.Equal(t, 1200, *got.SquareFootage)
	assert.Nil(t, got.Latitude)

	require.Len(t, got.Pricing, 2)
	assert.Equal(t, models.PricingHourly, got.Pricing[0].PricingType)
	assert.Equal(t, models.DefaultCurrency, got.Pricing[0].Currency)
	assert.Equal(t, 10.0, got.Pricing[0].CleaningFee)

	require.Len(t, got.BusinessHours, 2)
	assert.Equal(t, "MONDAY", got.BusinessHours[0].DayOfWeek)
	assert.True(t, got.BusinessHours[1].IsClosed)

	_, err = db.GetSpace(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateSpace_ReplacesArrays(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	s := createTestSpace(t, db, owner.ID, nil)

	s.Title = "Big Loft"
	s.Pricing = []models.PricingTier{{PricingType: models.PricingWeekly, Price: 1000}}
	require.NoError(t, db.UpdateSpace(ctx, s, true, false))

	got, err := db.GetSpace(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Loft", got.Title)
	require.Len(t, got.Pricing, 1)
	assert.Equal(t, models.PricingWeekly, got.Pricing[0].PricingType)
	assert.Len(t, got.BusinessHours, 2, "hours untouched")

	s.BusinessHours = nil
	require.NoError(t, db.UpdateSpace(ctx, s, false, true))
	got, err = db.GetSpace(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.BusinessHours)

	assert.ErrorIs(t, db.UpdateSpace(ctx, &models.Space{ID: "missing"}, false, false), ErrNotFound)
}

func TestSoftDeleteSpace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	s := createTestSpace(t, db, owner.ID, nil)

	require.NoError(t, db.SoftDeleteSpace(ctx, s.ID))

	got, err := db.GetSpace(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	results, err := db.SearchSpaces(ctx, models.SpaceFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.ErrorIs(t, db.SoftDeleteSpace(ctx, "missing"), ErrNotFound)
}

func TestHasActiveBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	guest := createTestUser(t, db, "guest@example.com")
	s := createTestSpace(t, db, owner.ID, nil)
	now := time.Now().UTC()

	active, err := db.HasActiveBookings(ctx, s.ID, now)
	require.NoError(t, err)
	assert.False(t, active)

	createTestBooking(t, db, guest.ID, s.ID, now.Add(-5*time.Hour), 2, models.StatusApproved)
	createTestBooking(t, db, guest.ID, s.ID, now.Add(24*time.Hour), 2, models.StatusCancelled)
	active, err = db.HasActiveBookings(ctx, s.ID, now)
	require.NoError(t, err)
	assert.False(t, active, "past and cancelled bookings do not block")

	createTestBooking(t, db, guest.ID, s.ID, now.Add(48*time.Hour), 2, models.StatusPending)
	active, err = db.HasActiveBookings(ctx, s.ID, now)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestSearchSpaces(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	other := createTestUser(t, db, "other@example.com")
	guest := createTestUser(t, db, "guest@example.com")

	loft := createTestSpace(t, db, owner.ID, nil)
	hall := createTestSpace(t, db, owner.ID, func(s *models.Space) {
		s.Title = "Grand Hall"
		s.SpaceType = models.SpaceTypeEventVenue
		s.Category = "Banquet Hall"
		s.City = "Seattle"
		s.Capacity = 200
		s.InstantBooking = true
		s.Amenities = []string{"wifi", "stage"}
		s.Pricing = []models.PricingTier{
			{PricingType: models.PricingHourly, Price: 400, IsPeakPrice: true},
			{PricingType: models.PricingHourly, Price: 250},
		}
	})
	desk := createTestSpace(t, db, other.ID, func(s *models.Space) {
		s.Title = "Desk"
		s.Capacity = 1
		s.Amenities = nil
		s.Pricing = []models.PricingTier{{PricingType: models.PricingMonthly, Price: 200}}
	})

	search := func(f models.SpaceFilter) []string {
		t.Helper()
		res, err := db.SearchSpaces(ctx, f)
		require.NoError(t, err)
		ids := make([]string, 0, len(res))
		for _, r := range res {
			ids = append(ids, r.ID)
		}
		return ids
	}

	assert.ElementsMatch(t, []string{loft.ID, hall.ID, desk.ID}, search(models.SpaceFilter{}))
	assert.ElementsMatch(t, []string{loft.ID, hall.ID}, search(models.SpaceFilter{UserID: owner.ID}))
	assert.Equal(t, []string{hall.ID}, search(models.SpaceFilter{SpaceType: models.SpaceTypeEventVenue}))
	assert.Equal(t, []string{hall.ID}, search(models.SpaceFilter{Category: "Banquet Hall"}))
	assert.Equal(t, []string{hall.ID}, search(models.SpaceFilter{City: "seat"}))
	assert.Equal(t, []string{hall.ID}, search(models.SpaceFilter{MinCapacity: 50}))
	assert.ElementsMatch(t, []string{loft.ID, desk.ID}, search(models.SpaceFilter{MaxCapacity: 10}))

	instant := true
	assert.Equal(t, []string{hall.ID}, search(models.SpaceFilter{InstantBooking: &instant}))

	assert.ElementsMatch(t, []string{loft.ID, hall.ID}, search(models.SpaceFilter{Amenities: []string{"wifi"}}))
	assert.Equal(t, []string{loft.ID}, search(models.SpaceFilter{Amenities: []string{"wifi", "projector"}}))

	// price filters use the regular hourly tier and skip spaces without one
	minPrice, maxPrice := 100.0, 300.0
	assert.Equal(t, []string{hall.ID}, search(models.SpaceFilter{MinPrice: &minPrice}))
	assert.ElementsMatch(t, []string{loft.ID, hall.ID}, search(models.SpaceFilter{MaxPrice: &maxPrice}))

	// date window excludes spaces with an overlapping booking
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	createTestBooking(t, db, guest.ID, loft.ID, start, 3, models.StatusApproved)
	createTestBooking(t, db, guest.ID, hall.ID, start, 3, models.StatusRejected)

	windowStart, windowEnd := start.Add(time.Hour), start.Add(2*time.Hour)
	assert.ElementsMatch(t, []string{hall.ID, desk.ID},
		search(models.SpaceFilter{StartDateTime: &windowStart, EndDateTime: &windowEnd}))

	adjacentStart, adjacentEnd := start.Add(3*time.Hour), start.Add(4*time.Hour)
	assert.Len(t, search(models.SpaceFilter{StartDateTime: &adjacentStart, EndDateTime: &adjacentEnd}), 3)
}

func TestSearchSpaces_CityMatchesLiterally(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	plain := createTestSpace(t, db, owner.ID, nil)
	odd := createTestSpace(t, db, owner.ID, func(s *models.Space) {
		s.City = `100% Old_Town\East`
	})

	search := func(city string) []string {
		t.Helper()
		res, err := db.SearchSpaces(ctx, models.SpaceFilter{City: city})
		require.NoError(t, err)
		ids := make([]string, 0, len(res))
		for _, r := range res {
			ids = append(ids, r.ID)
		}
		return ids
	}

	assert.Equal(t, []string{odd.ID}, search("%"))
	assert.Equal(t, []string{odd.ID}, search("_"))
	assert.Equal(t, []string{odd.ID}, search(`\`))
	assert.Equal(t, []string{odd.ID}, search("old_town"))
	assert.Empty(t, search("old%east"))
	assert.Equal(t, []string{plain.ID}, search("portland"))
}

func TestSearchSpaces_Aggregates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	guest := createTestUser(t, db, "guest@example.com")
	s := createTestSpace(t, db, owner.ID, nil)

	res, err := db.SearchSpaces(ctx, models.SpaceFilter{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Nil(t, res[0].AverageRating)
	assert.Equal(t, 0, res[0].ReviewCount)
	require.NotNil(t, res[0].BasePrice)
	assert.Equal(t, 50.0, *res[0].BasePrice)
	assert.Len(t, res[0].Pricing, 2)

	b1 := createTestBooking(t, db, guest.ID, s.ID, time.Now().Add(-48*time.Hour), 2, models.StatusCompleted)
	b2 := createTestBooking(t, db, guest.ID, s.ID, time.Now().Add(-24*time.Hour), 2, models.StatusCompleted)
	require.NoError(t, db.CreateReview(ctx, &models.Review{UserID: guest.ID, SpaceID: s.ID, BookingID: b1.ID, Rating: 5}))
	require.NoError(t, db.CreateReview(ctx, &models.Review{UserID: guest.ID, SpaceID: s.ID, BookingID: b2.ID, Rating: 4}))

	res, err = db.SearchSpaces(ctx, models.SpaceFilter{})
	require.NoError(t, err)
	require.NotNil(t, res[0].AverageRating)
	assert.InDelta(t, 4.5, *res[0].AverageRating, 0.001)
	assert.Equal(t, 2, res[0].ReviewCount)
	assert.Equal(t, 2, res[0].BookingCount)
}

func TestListSpacesByOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, "host@example.com")
	createTestSpace(t, db, owner.ID, nil)
	createTestSpace(t, db, owner.ID, nil)

	res, err := db.ListSpacesByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = db.ListSpacesByOwner(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, res)
}
