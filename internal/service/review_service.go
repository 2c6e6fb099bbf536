package service

import (
	"context"
	"errors"

	"spacehub/internal/database"
	"spacehub/internal/domain"
	"spacehub/internal/models"
	"spacehub/internal/sanitize"

	"github.com/rs/zerolog"
)

type ReviewInput struct {
	BookingID         string `json:"bookingId"`
	Rating            int    `json:"rating"`
	CleanlinessRating *int   `json:"cleanlinessRating"`
	AmenitiesRating   *int   `json:"amenitiesRating"`
	LocationRating    *int   `json:"locationRating"`
	ValueRating       *int   `json:"valueRating"`
	Comment           string `json:"comment"`
}

type ReviewService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewReviewService(repo domain.Repository, logger *zerolog.Logger) *ReviewService {
	return &ReviewService{repo: repo, logger: logger}
}

// Create records a review of a completed stay. Without a booking id the
// user's latest completed booking of the space is used.
func (s *ReviewService) Create(ctx context.Context, userID, spaceID string, in ReviewInput) (*models.Review, error) {
	if !validRating(&in.Rating) {
		return nil, invalid("Rating must be between 1 and 5")
	}
	for _, r := range []*int{in.CleanlinessRating, in.AmenitiesRating, in.LocationRating, in.ValueRating} {
		if r != nil && !validRating(r) {
			return nil, invalid("Rating must be between 1 and 5")
		}
	}

	if _, err := s.repo.GetSpace(ctx, spaceID); err != nil {
		return nil, notFound(err, "Space")
	}

	var booking *models.Booking
	var err error
	if in.BookingID != "" {
		booking, err = s.repo.GetBooking(ctx, in.BookingID)
		if err != nil {
			return nil, notFound(err, "Booking")
		}
		if booking.UserID != userID || booking.SpaceID != spaceID {
			return nil, forbidden("You can only review your own bookings of this space")
		}
		if booking.Status != models.StatusCompleted {
			return nil, invalid("Only completed bookings can be reviewed")
		}
	} else {
		booking, err = s.repo.FindCompletedBooking(ctx, userID, spaceID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, invalid("You can only review spaces you have completed a booking for")
		}
		if err != nil {
			return nil, err
		}
	}

	review := &models.Review{
		UserID:            userID,
		SpaceID:           spaceID,
		BookingID:         booking.ID,
		Rating:            in.Rating,
		CleanlinessRating: in.CleanlinessRating,
		AmenitiesRating:   in.AmenitiesRating,
		LocationRating:    in.LocationRating,
		ValueRating:       in.ValueRating,
		Comment:           sanitize.Text(in.Comment),
	}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		if errors.Is(err, database.ErrAlreadyReviewed) {
			return nil, invalid("You have already reviewed this booking")
		}
		return nil, err
	}

	s.logger.Info().Str("review_id", review.ID).Str("space_id", spaceID).Int("rating", review.Rating).Msg("review created")
	return review, nil
}

func (s *ReviewService) ListForSpace(ctx context.Context, spaceID string) ([]*models.Review, error) {
	return s.repo.ListReviewsForSpace(ctx, spaceID)
}

func validRating(r *int) bool {
	return *r >= 1 && *r <= 5
}
