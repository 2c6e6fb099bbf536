package service

import (
	"bytes"
	"context"
	"time"

	"spacehub/internal/domain"
	"spacehub/internal/export"
	"spacehub/internal/models"
	"spacehub/internal/pricing"

	"github.com/rs/zerolog"
)

// Analytics timeframes.
const (
	TimeframeWeek  = "week"
	TimeframeMonth = "month"
	TimeframeYear  = "year"
	TimeframeAll   = "all"
)

// occupancy assumes 8 bookable hours a day over a 30 day month
const occupancyHoursPerSpace = models.HoursPerDay * 30

type DashboardService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewDashboardService(repo domain.Repository, logger *zerolog.Logger) *DashboardService {
	return &DashboardService{repo: repo, logger: logger}
}

// Stats is the owner overview: one row per active space plus totals.
func (s *DashboardService) Stats(ctx context.Context, ownerID string, now time.Time) (*models.DashboardStats, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	rows, err := s.repo.OwnerSpaceStats(ctx, ownerID, monthStart)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{Spaces: rows, TotalSpaces: len(rows)}
	for _, r := range rows {
		stats.PendingBookings += r.PendingBookings
		stats.TotalBookings += r.TotalBookings
		stats.MonthlyRevenue += r.MonthlyRevenue
	}
	stats.MonthlyRevenue = pricing.Round(stats.MonthlyRevenue)
	return stats, nil
}

// Analytics aggregates bookings created within the timeframe.
func (s *DashboardService) Analytics(ctx context.Context, ownerID, timeframe, spaceID string, now time.Time) (*models.Analytics, error) {
	if timeframe == "" {
		timeframe = TimeframeMonth
	}
	since, ok := timeframeStart(timeframe, now.UTC())
	if !ok {
		return nil, invalid("Invalid timeframe")
	}

	bookings, err := s.repo.OwnerBookingsSince(ctx, ownerID, spaceID, since)
	if err != nil {
		return nil, err
	}

	spaceCount := 1
	if spaceID == "" {
		if spaceCount, err = s.repo.CountOwnerSpaces(ctx, ownerID); err != nil {
			return nil, err
		}
	}
	rating, err := s.repo.OwnerRating(ctx, ownerID, spaceID)
	if err != nil {
		return nil, err
	}

	a := &models.Analytics{
		Timeframe:     timeframe,
		TotalBookings: len(bookings),
		AverageRating: rating,
		BySpace:       []models.SpacePerformance{},
	}
	perSpace := map[string]*models.SpacePerformance{}
	var order []string

	for _, b := range bookings {
		perf, seen := perSpace[b.SpaceID]
		if !seen {
			perf = &models.SpacePerformance{SpaceID: b.SpaceID}
			if b.Space != nil {
				perf.Title = b.Space.Title
			}
			perSpace[b.SpaceID] = perf
			order = append(order, b.SpaceID)
		}
		perf.Bookings++

		switch b.Status {
		case models.StatusCompleted:
			a.CompletedBookings++
		case models.StatusCancelled:
			a.CancelledBookings++
		}
		if b.Status == models.StatusApproved || b.Status == models.StatusCompleted {
			a.TotalRevenue += b.TotalPrice
			a.TotalHours += b.TotalHours
			perf.Revenue += b.TotalPrice
			perf.Hours += b.TotalHours
		}
	}

	a.TotalRevenue = pricing.Round(a.TotalRevenue)
	if a.TotalBookings > 0 {
		a.AverageBookingValue = pricing.Round(a.TotalRevenue / float64(a.TotalBookings))
		a.CancellationRate = float64(a.CancelledBookings) / float64(a.TotalBookings) * 100
	}
	if spaceCount > 0 {
		a.OccupancyRate = a.TotalHours / float64(spaceCount*occupancyHoursPerSpace) * 100
	}
	for _, id := range order {
		perf := perSpace[id]
		perf.Revenue = pricing.Round(perf.Revenue)
		a.BySpace = append(a.BySpace, *perf)
	}
	return a, nil
}

// Export renders the owner's reservations starting in [from, to) with their invoices as xlsx.
func (s *DashboardService) Export(ctx context.Context, ownerID string, from, to time.Time) ([]byte, error) {
	if !to.After(from) {
		return nil, invalid("Export range end must be after its start")
	}

	all, err := s.repo.ListBookingsForOwner(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}
	var bookings []*models.Booking
	var invoices []*models.Invoice
	for _, b := range all {
		if b.StartDateTime.Before(from) || !b.StartDateTime.Before(to) {
			continue
		}
		bookings = append(bookings, b)
		if b.Invoice != nil {
			invoices = append(invoices, b.Invoice)
		}
	}

	wb, err := export.BookingsWorkbook(bookings, invoices, from, to)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		return nil, err
	}
	s.logger.Info().Str("owner_id", ownerID).Int("bookings", len(bookings)).Msg("bookings exported")
	return buf.Bytes(), nil
}

// timeframeStart returns the first instant of the frame containing now.
// Weeks start on Sunday. "all" has no lower bound.
func timeframeStart(timeframe string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch timeframe {
	case TimeframeWeek:
		return today.AddDate(0, 0, -int(today.Weekday())), true
	case TimeframeMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), true
	case TimeframeYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	case TimeframeAll:
		return time.Time{}, true
	default:
		return time.Time{}, false
	}
}
