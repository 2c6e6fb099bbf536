package models

import "time"

type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	CompanyName    string    `json:"companyName,omitempty"`
	UserType       string    `json:"userType"`
	TelegramChatID int64     `json:"-"`
	FavoriteIDs    []string  `json:"favoriteIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TelegramLinked reports whether the user has connected a Telegram chat.
func (u *User) TelegramLinked() bool {
	return u != nil && u.TelegramChatID != 0
}

// DisplayName is used for billing and notification text.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
