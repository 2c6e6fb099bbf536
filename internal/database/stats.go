package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spacehub/internal/models"
)

// OwnerSpaceStats returns one row per active space of the owner. Monthly
// revenue counts approved, paid bookings created since monthStart.
func (db *DB) OwnerSpaceStats(ctx context.Context, ownerID string, monthStart time.Time) ([]models.SpaceStats, error) {
	query := `SELECT s.id, s.title,
			(SELECT COUNT(*) FROM bookings b WHERE b.space_id = s.id AND b.status = ?),
			(SELECT COUNT(*) FROM bookings b WHERE b.space_id = s.id),
			(SELECT COALESCE(SUM(b.total_price), 0) FROM bookings b
				WHERE b.space_id = s.id AND b.status = ? AND b.payment_status = ? AND b.created_at >= ?),
			(SELECT AVG(r.rating) FROM reviews r WHERE r.space_id = s.id)
		FROM spaces s
		WHERE s.user_id = ? AND s.is_active = 1
		ORDER BY s.created_at DESC`
	rows, err := db.QueryContext(ctx, query,
		models.StatusPending, models.StatusApproved, models.PaymentPaid, formatTime(monthStart), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load space stats: %w", err)
	}
	defer rows.Close()

	stats := []models.SpaceStats{}
	for rows.Next() {
		var (
			st  models.SpaceStats
			avg sql.NullFloat64
		)
		if err := rows.Scan(&st.SpaceID, &st.Title, &st.PendingBookings, &st.TotalBookings, &st.MonthlyRevenue, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan space stats: %w", err)
		}
		if avg.Valid {
			st.AverageRating = avg.Float64
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// OwnerBookingsSince returns bookings on the owner's spaces created at or after since.
// A zero since returns everything. spaceID narrows to one space when set.
func (db *DB) OwnerBookingsSince(ctx context.Context, ownerID, spaceID string, since time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings bk
		JOIN spaces s ON s.id = bk.space_id
		WHERE s.user_id = ?`
	args := []interface{}{ownerID}
	if !since.IsZero() {
		query += ` AND bk.created_at >= ?`
		args = append(args, formatTime(since))
	}
	if spaceID != "" {
		query += ` AND bk.space_id = ?`
		args = append(args, spaceID)
	}
	query += ` ORDER BY bk.created_at`

	bookings, err := db.queryBookings(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return bookings, db.attachSpaces(ctx, bookings)
}

// OwnerRating averages every review on the owner's spaces, 0 without reviews.
func (db *DB) OwnerRating(ctx context.Context, ownerID, spaceID string) (float64, error) {
	query := `SELECT AVG(r.rating) FROM reviews r JOIN spaces s ON s.id = r.space_id WHERE s.user_id = ?`
	args := []interface{}{ownerID}
	if spaceID != "" {
		query += ` AND r.space_id = ?`
		args = append(args, spaceID)
	}
	var avg sql.NullFloat64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to average owner rating: %w", err)
	}
	return avg.Float64, nil
}

// CountOwnerSpaces counts the owner's active spaces.
func (db *DB) CountOwnerSpaces(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spaces WHERE user_id = ? AND is_active = 1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count spaces: %w", err)
	}
	return count, nil
}
