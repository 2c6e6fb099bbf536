package service

import (
	"context"

	"spacehub/internal/domain"
	"spacehub/internal/models"
)

type FavoriteService struct {
	repo domain.Repository
}

func NewFavoriteService(repo domain.Repository) *FavoriteService {
	return &FavoriteService{repo: repo}
}

// Add stars an active space and returns the user's favorite ids.
func (s *FavoriteService) Add(ctx context.Context, userID, spaceID string) ([]string, error) {
	space, err := s.repo.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, notFound(err, "Space")
	}
	if !space.IsActive {
		return nil, &NotFoundError{Resource: "Space"}
	}
	if err := s.repo.AddFavorite(ctx, userID, spaceID); err != nil {
		return nil, err
	}
	return s.repo.FavoriteIDs(ctx, userID)
}

func (s *FavoriteService) Remove(ctx context.Context, userID, spaceID string) ([]string, error) {
	if err := s.repo.RemoveFavorite(ctx, userID, spaceID); err != nil {
		return nil, err
	}
	return s.repo.FavoriteIDs(ctx, userID)
}

func (s *FavoriteService) List(ctx context.Context, userID string) ([]*models.Space, error) {
	spaces, err := s.repo.ListFavoriteSpaces(ctx, userID)
	if err != nil {
		return nil, err
	}
	if spaces == nil {
		spaces = []*models.Space{}
	}
	return spaces, nil
}
