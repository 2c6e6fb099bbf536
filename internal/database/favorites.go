package database

import (
	"context"
	"fmt"
	"time"

	"spacehub/internal/models"
)

// AddFavorite is idempotent.
func (db *DB) AddFavorite(ctx context.Context, userID, spaceID string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, space_id, created_at) VALUES (?, ?, ?) ON CONFLICT(user_id, space_id) DO NOTHING`,
		userID, spaceID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (db *DB) RemoveFavorite(ctx context.Context, userID, spaceID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND space_id = ?`, userID, spaceID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

func (db *DB) FavoriteIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT f.space_id FROM favorites f JOIN spaces s ON s.id = f.space_id
		WHERE f.user_id = ? AND s.is_active = 1 ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFavoriteSpaces returns the user's favourited active spaces with pricing.
func (db *DB) ListFavoriteSpaces(ctx context.Context, userID string) ([]*models.Space, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+spaceColumns+` FROM favorites f JOIN spaces s ON s.id = f.space_id
		WHERE f.user_id = ? AND s.is_active = 1 ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorite spaces: %w", err)
	}
	defer rows.Close()

	spaces := []*models.Space{}
	var ids []string
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}
		spaces = append(spaces, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	pricing, err := db.loadPricing(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range spaces {
		s.Pricing = pricing[s.ID]
	}
	return spaces, nil
}
