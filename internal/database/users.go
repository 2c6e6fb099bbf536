package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"spacehub/internal/models"

	"github.com/google/uuid"
)

const userColumns = `id, name, email, password_hash, company_name, user_type, telegram_chat_id, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.UserType == "" {
		user.UserType = models.UserTypeBoth
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.CompanyName,
		user.UserType,
		user.TelegramChatID,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (db *DB) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	if chatID == 0 {
		return nil, ErrNotFound
	}
	return db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_chat_id = ?`, chatID)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var (
		user             models.User
		created, updated string
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CompanyName,
		&user.UserType, &user.TelegramChatID, &created, &updated,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if user.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if user.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUserProfile writes name, company and user type.
func (db *DB) UpdateUserProfile(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	query := `UPDATE users SET name = ?, company_name = ?, user_type = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, user.Name, user.CompanyName, user.UserType, formatTime(now), user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

// SetTelegramChatID links a chat to a user. A chat can belong to one user only,
// so any previous owner of chatID is unlinked first.
func (db *DB) SetTelegramChatID(ctx context.Context, userID string, chatID int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		if chatID != 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE users SET telegram_chat_id = 0, updated_at = ? WHERE telegram_chat_id = ? AND id <> ?`,
				now, chatID, userID); err != nil {
				return fmt.Errorf("failed to unlink chat: %w", err)
			}
		}
		result, err := tx.ExecContext(ctx, `UPDATE users SET telegram_chat_id = ?, updated_at = ? WHERE id = ?`, chatID, now, userID)
		if err != nil {
			return fmt.Errorf("failed to link chat: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return ErrNotFound
		}
		return nil
	})
}
