package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"betpulse/models"
	"betpulse/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = 30 * time.Minute

// UserService handles registration, authentication and profile management.
type UserService struct {
	users       UserStore
	jwtSecret   string
	tokenExpiry time.Duration
}

func NewUserService(users UserStore, jwtSecret string, expiryHours int) *UserService {
	if expiryHours <= 0 {
		expiryHours = 24
	}
	return &UserService{
		users:       users,
		jwtSecret:   jwtSecret,
		tokenExpiry: time.Duration(expiryHours) * time.Hour,
	}
}

func (s *UserService) Register(ctx context.Context, email, password, phone string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email: %w", models.ErrInvalidArgument)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", models.ErrInvalidArgument)
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RolePlayer,
		Phone:        phone,
		MpesaNumber:  phone,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithField("email", user.Email).Info("user registered")
	return user, nil
}

// Authenticate checks the credentials and issues a signed token.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.FindUserByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, "", models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Role, s.tokenExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return user, token, nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.FindUserByID(ctx, userID)
}

func (s *UserService) UpdateProfile(ctx context.Context, userID int64, phone, mpesaNumber string) (*models.User, error) {
	return s.users.UpdateUserProfile(ctx, userID, phone, mpesaNumber)
}

func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", models.ErrInvalidArgument)
	}
	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return models.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.users.UpdateUserPassword(ctx, userID, string(hash))
}

// RequestPasswordReset issues a short-lived reset token. The token is
// returned to the caller; delivery (mail, SMS) sits outside this service.
// A missing account is reported the same as success so the endpoint does
// not leak which emails are registered.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, models.ErrUserNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.users.SetResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

func (s *UserService) ResetPassword(ctx context.Context, token, next string) error {
	if len(next) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", models.ErrInvalidArgument)
	}
	user, err := s.users.FindUserByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		return fmt.Errorf("reset token expired: %w", models.ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	return s.users.ClearResetToken(ctx, user.ID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsers(ctx)
}

// EnsureAdmin creates the bootstrap administrator account on first start.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.users.FindUserByEmail(ctx, strings.ToLower(email)); err == nil {
		return nil
	} else if !errors.Is(err, models.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	_, err = s.users.CreateUser(ctx, &models.User{
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	logrus.WithField("email", email).Info("bootstrap admin created")
	return nil
}
