package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/models"
	"shop_back_end/internal/store"
	"shop_back_end/internal/utils"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// UpdateUserInput carries optional profile changes.
type UpdateUserInput struct {
	Username *string
	Email    *string
}

type AuthService struct {
	store     store.Store
	jwtSecret []byte
	tokenTTL  time.Duration
	log       *slog.Logger
}

func NewAuthService(st store.Store, jwtSecret []byte, tokenTTL time.Duration, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{store: st, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: logger}
}

func validateUsername(username string) error {
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return apperr.Validation("username must be between 3 and 50 characters")
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("invalid email")
	}
	return nil
}

// Register creates a user with the default role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.create(ctx, in, models.RoleUser)
}

// EnsureAdmin creates an admin account unless the username is taken.
func (s *AuthService) EnsureAdmin(ctx context.Context, in RegisterInput) (*models.User, error) {
	existing, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(in.Username))
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.log.Warn("admin username belongs to a regular user", "user_id", existing.ID)
		}
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr(err)
	}
	return s.create(ctx, in, models.RoleAdmin)
}

func (s *AuthService) create(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if len(in.Password) < 6 {
		return nil, apperr.Validation("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &models.User{
		ID:        uuid.New(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  hash,
		Role:      role,
		CreatedAt: now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict("username or email already taken", err)
		}
		return nil, storeErr(err)
	}
	s.log.Info("user registered", "user_id", user.ID, "role", role)
	return user, nil
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, apperr.Auth("invalid credentials")
	}
	if err != nil {
		return "", nil, storeErr(err)
	}

	ok, err := utils.VerifyPassword(password, user.Password)
	if err != nil {
		s.log.Warn("stored password hash unreadable", "user_id", user.ID, "err", err)
	}
	if !ok {
		return "", nil, apperr.Auth("invalid credentials")
	}

	token, err := utils.GenerateJWT(*user, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, apperr.Internal(err)
	}
	return token, user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return users, nil
}

// UpdateUser changes the profile of targetID. Only the user themself may
// do so.
func (s *AuthService) UpdateUser(ctx context.Context, actorID uuid.UUID, rawTargetID string, in UpdateUserInput) (*models.User, error) {
	targetID, err := uuid.Parse(rawTargetID)
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	if targetID != actorID {
		return nil, apperr.Forbidden("you can only update your own profile")
	}

	user, err := s.store.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if err := validateUsername(name); err != nil {
			return nil, err
		}
		user.Username = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict("username or email already taken", err)
		}
		return nil, notFound(err, "user")
	}
	return user, nil
}
