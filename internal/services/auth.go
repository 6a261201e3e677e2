package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leadscout/backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	passwordHashCost  = 12
	minPasswordLength = 8
	// bcrypt rejects longer inputs.
	maxPasswordBytes = 72
)

// AuthService manages accounts and signed session tokens.
type AuthService struct {
	users    models.UserRepository
	secret   []byte
	ttl      time.Duration
	hashCost int
	logger   *logrus.Logger
}

func NewAuthService(users models.UserRepository, secret string, sessionDays int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:    users,
		secret:   []byte(secret),
		ttl:      time.Duration(sessionDays) * 24 * time.Hour,
		hashCost: passwordHashCost,
		logger:   logger,
	}
}

// SessionTTL is the lifetime of issued tokens and of the session cookie.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an account and returns it with a fresh session token.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, string, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, "", validationError("Email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, "", validationError("Password must be at least 8 characters")
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, "", validationError("Password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		user.Name = &name
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.WithField("user_id", user.ID).Info("User signed up")
	return user, token, nil
}

// Login checks the credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, "", validationError("Email is required")
	}
	if req.Password == "" {
		return nil, "", validationError("Password is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}

	s.logger.WithField("user_id", user.ID).Debug("User logged in")
	return user, token, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a session token to its user. Any problem with the
// token or a deleted user yields ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
