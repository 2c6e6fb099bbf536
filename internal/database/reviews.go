package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spacehub/internal/models"

	"github.com/google/uuid"
)

func (db *DB) CreateReview(ctx context.Context, r *models.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO reviews (
			id, user_id, space_id, booking_id, rating, cleanliness_rating, amenities_rating,
			location_rating, value_rating, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		r.ID, r.UserID, r.SpaceID, r.BookingID, r.Rating,
		nullableInt(r.CleanlinessRating), nullableInt(r.AmenitiesRating),
		nullableInt(r.LocationRating), nullableInt(r.ValueRating),
		r.Comment, formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyReviewed
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	r.CreatedAt = now
	return nil
}

// ListReviewsForSpace returns reviews newest first, each with its author.
func (db *DB) ListReviewsForSpace(ctx context.Context, spaceID string) ([]*models.Review, error) {
	query := `SELECT r.id, r.user_id, r.space_id, r.booking_id, r.rating, r.cleanliness_rating,
			r.amenities_rating, r.location_rating, r.value_rating, r.comment, r.created_at,
			u.name, u.email
		FROM reviews r JOIN users u ON u.id = r.user_id
		WHERE r.space_id = ?
		ORDER BY r.created_at DESC`
	rows, err := db.QueryContext(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*models.Review{}
	for rows.Next() {
		var (
			r                                       models.Review
			cleanliness, amenities, location, value sql.NullInt64
			created                                 string
			author                                  models.User
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.SpaceID, &r.BookingID, &r.Rating,
			&cleanliness, &amenities, &location, &value, &r.Comment, &created,
			&author.Name, &author.Email); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.CleanlinessRating = intPtr(cleanliness)
		r.AmenitiesRating = intPtr(amenities)
		r.LocationRating = intPtr(location)
		r.ValueRating = intPtr(value)
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		author.ID = r.UserID
		r.User = &author
		reviews = append(reviews, &r)
	}
	return reviews, rows.Err()
}

// RatingSummary averages the space's ratings. Average is nil without reviews.
func (db *DB) RatingSummary(ctx context.Context, spaceID string) (models.RatingSummary, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := db.QueryRowContext(ctx, `SELECT AVG(rating), COUNT(*) FROM reviews WHERE space_id = ?`, spaceID).Scan(&avg, &count)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("failed to summarise ratings: %w", err)
	}
	summary := models.RatingSummary{Count: count}
	if avg.Valid {
		v := avg.Float64
		summary.Average = &v
	}
	return summary, nil
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
