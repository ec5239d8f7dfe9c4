package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	domain "github.com/example/auth-service/domain/user"
	"github.com/go-monolith/mono/pkg/types"
)

// AuthService handles registration, login and token verification.
type AuthService struct {
	store  CredentialStore
	hasher *PasswordHasher
	codec  *TokenCodec
	logger types.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(store CredentialStore, hasher *PasswordHasher, codec *TokenCodec, logger types.Logger) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		codec:  codec,
		logger: logger,
	}
}

// Register creates a new user account and signs a token for it.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if err := validateRegistration(name, email, password); err != nil {
		return nil, err
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, ErrUserNotFound):
		s.logger.Error("Credential lookup failed", "op", "register", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("Password hashing failed", "op", "register", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, ErrUserExists
		}
		s.logger.Error("Credential insert failed", "op", "register", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return s.issue(user.Public())
}

// Login authenticates a user and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		s.logger.Error("Credential lookup failed", "op", "login", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrWrongPassword
	}

	return s.issue(user.Public())
}

// VerifyToken validates token and re-issues a new one for the same user.
// Verification therefore also extends the caller's session.
func (s *AuthService) VerifyToken(_ context.Context, token string) (*domain.AuthResult, error) {
	claims, err := s.codec.Verify(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			s.logger.Debug("Rejected expired token")
		}
		return nil, ErrInvalidToken
	}

	return s.issue(claims.User())
}

func (s *AuthService) issue(user domain.PublicUser) (*domain.AuthResult, error) {
	token, err := s.codec.Sign(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{
		User:  user,
		Token: token,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegistration(name, email, password string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, MaxPasswordBytes)
	}
	return nil
}
