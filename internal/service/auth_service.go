package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/observability/metrics"
	"github.com/aryan0dhankhar/bugtracker/internal/security/auth"
	"go.opentelemetry.io/otel/attribute"
)

const invalidCredentials = "Invalid username or password."

// AuthService handles registration, login and token verification
type AuthService struct {
	users  domain.UserRepository
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// LoginResult is a signed bearer token and the moment it stops being accepted
type LoginResult struct {
	UserID    int64
	Username  string
	Token     string
	ExpiresAt time.Time
}

// Register creates a new user account and returns its id
func (s *AuthService) Register(ctx context.Context, username, password string) (id int64, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	if err := validateCredentials(username, password); err != nil {
		return 0, err
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return 0, duplicateUsername(username)
	}

	hash, salt, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to register user: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// a concurrent registration won the unique index
		if errors.Is(err, domain.ErrConflict) {
			return 0, duplicateUsername(username)
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to register user: %w", err)
	}

	metrics.ObserveRegistration()
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user.ID, nil
}

// Login authenticates a user and returns a signed token
func (s *AuthService) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		metrics.ObserveLogin("failure")
		return nil, domain.AuthenticationFailed(invalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash, user.PasswordSalt) {
		s.logger.Info("login failed with wrong password", slog.Int64("user_id", user.ID))
		metrics.ObserveLogin("failure")
		return nil, domain.AuthenticationFailed(invalidCredentials)
	}

	token, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	metrics.ObserveLogin("success")
	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &LoginResult{
		UserID:    user.ID,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken verifies signature, algorithm and expiry of a bearer token
func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, &domain.Error{Kind: domain.ErrAuthentication, Message: "Invalid or expired token."}
	}
	return claims, nil
}

func validateCredentials(username, password string) error {
	if blank(username) {
		return domain.Invalid("Username is required.")
	}
	if blank(password) {
		return domain.Invalid("Password is required.")
	}
	return nil
}

func duplicateUsername(username string) error {
	return domain.Invalid(fmt.Sprintf("Username '%s' already exists.", username))
}
