package auth

import (
	"errors"
	"fmt"
	"time"

	domain "github.com/example/auth-service/domain/user"
	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/jaevor/go-nanoid"
)

// TokenConfig holds JWT configuration.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims are the signed token payload: the public user projection plus
// the registered claims added at signing time.
type Claims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// User returns the claims without iat, exp and the other registered fields.
func (c *Claims) User() domain.PublicUser {
	return domain.PublicUser{
		ID:    c.UserID,
		Name:  c.Name,
		Email: c.Email,
	}
}

// TokenCodec signs and verifies HS256 tokens with a shared secret.
type TokenCodec struct {
	config TokenConfig
	now    func() time.Time
	newJTI func() string
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec creates a new TokenCodec.
func NewTokenCodec(config TokenConfig, opts ...CodecOption) (*TokenCodec, error) {
	if config.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if config.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to create token id generator: %w", err)
	}

	c := &TokenCodec{
		config: config,
		now:    time.Now,
		newJTI: gen,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Sign creates a token for the given user projection.
func (c *TokenCodec) Sign(user domain.PublicUser) (string, error) {
	now := c.now()
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        c.newJTI(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, algorithm, issuer and expiry and returns the
// claims. Every failure wraps ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(c.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.config.TTL
}
