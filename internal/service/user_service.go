package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"spacehub/internal/auth"
	"spacehub/internal/database"
	"spacehub/internal/domain"
	"spacehub/internal/models"
	"spacehub/internal/sanitize"

	"github.com/rs/zerolog"
)

const (
	linkCodeTTL      = 10 * time.Minute
	linkCodeLength   = 6
	linkCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxLoginFailures = 5
	loginWindow      = 15 * time.Minute

	minPasswordLength = 8
)

type RegisterInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
	UserType    string `json:"userType"`
}

type ProfilePatch struct {
	Name        *string `json:"name"`
	CompanyName *string `json:"companyName"`
	UserType    *string `json:"userType"`
}

type UserService struct {
	repo       domain.UserRepository
	cache      domain.CacheStore
	bcryptCost int
	logger     *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, cache domain.CacheStore, bcryptCost int, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:       repo,
		cache:      cache,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := sanitize.Text(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case name == "":
		return nil, invalid("Name is required")
	case !strings.Contains(email, "@"):
		return nil, invalid("A valid email is required")
	case len(in.Password) < minPasswordLength:
		return nil, invalid("Password must be at least %d characters", minPasswordLength)
	}
	userType, err := normalizeUserType(in.UserType)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CompanyName:  sanitize.Text(in.CompanyName),
		UserType:     userType,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	user.FavoriteIDs = []string{}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Authenticate checks the password. The fifth failure for an email within
// loginWindow locks that email until the window ends.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	blockKey := "login_block:" + email

	if s.cache != nil {
		if _, blocked, err := s.cache.Get(ctx, blockKey); err == nil && blocked {
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.recordLoginFailure(ctx, email, blockKey)
		return nil, ErrUnauthorized
	}

	if err := s.loadFavorites(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) recordLoginFailure(ctx context.Context, email, blockKey string) {
	if s.cache == nil {
		return
	}
	within, err := s.cache.CheckRateLimit(ctx, "login_fail:"+email, maxLoginFailures-1, loginWindow)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to count login failure")
		return
	}
	if !within {
		if err := s.cache.Set(ctx, blockKey, []byte("1"), loginWindow); err != nil {
			s.logger.Warn().Err(err).Msg("failed to lock login")
		}
		s.logger.Warn().Str("email", email).Msg("login locked after repeated failures")
	}
}

// Get returns the user with their favorite space ids.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	if err := s.loadFavorites(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetByTelegramChat(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := s.repo.GetUserByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := sanitize.Text(*patch.Name)
		if name == "" {
			return nil, invalid("Name is required")
		}
		user.Name = name
	}
	if patch.CompanyName != nil {
		user.CompanyName = sanitize.Text(*patch.CompanyName)
	}
	if patch.UserType != nil {
		if user.UserType, err = normalizeUserType(*patch.UserType); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateUserProfile(ctx, user); err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

// CreateTelegramLinkCode stores a short one-time code the user sends to the bot.
func (s *UserService) CreateTelegramLinkCode(ctx context.Context, userID string) (string, time.Time, error) {
	if s.cache == nil {
		return "", time.Time{}, errors.New("link codes need a cache store")
	}
	code, err := randomCode(linkCodeLength)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.cache.Set(ctx, linkCodeKey(code), []byte(userID), linkCodeTTL); err != nil {
		return "", time.Time{}, err
	}
	return code, time.Now().Add(linkCodeTTL), nil
}

// LinkTelegram consumes code and attaches chatID to its user.
func (s *UserService) LinkTelegram(ctx context.Context, code string, chatID int64) (*models.User, error) {
	if s.cache == nil {
		return nil, errors.New("link codes need a cache store")
	}
	key := linkCodeKey(strings.ToUpper(strings.TrimSpace(code)))
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("Invalid or expired link code")
	}

	userID := string(raw)
	if err := s.repo.SetTelegramChatID(ctx, userID, chatID); err != nil {
		return nil, notFound(err, "User")
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete used link code")
	}
	return s.Get(ctx, userID)
}

func (s *UserService) loadFavorites(ctx context.Context, user *models.User) error {
	ids, err := s.repo.FavoriteIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	user.FavoriteIDs = ids
	return nil
}

func linkCodeKey(code string) string {
	return "link_code:" + code
}

func normalizeUserType(t string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "":
		return models.UserTypeBoth, nil
	case models.UserTypeGuest:
		return models.UserTypeGuest, nil
	case models.UserTypeHost:
		return models.UserTypeHost, nil
	case models.UserTypeBoth:
		return models.UserTypeBoth, nil
	default:
		return "", invalid("Invalid user type")
	}
}

func randomCode(n int) (string, error) {
	alphabetSize := big.NewInt(int64(len(linkCodeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		out[i] = linkCodeAlphabet[idx.Int64()]
	}
	return string(out), nil
}
