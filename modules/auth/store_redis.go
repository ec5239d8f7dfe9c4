package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/auth-service/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces user documents.
const DefaultRedisPrefix = "auth:users:"

// RedisStore keeps one JSON document per user, keyed by email.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ CredentialStore = (*RedisStore)(nil)

// userDocument is the stored form of a user. Unlike domain.User it
// serializes the password hash.
type userDocument struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// OpenRedisStore parses a redis:// URL and verifies the connection.
func OpenRedisStore(ctx context.Context, redisURL string, log types.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	if log != nil {
		log.Info("Credential store opened", "driver", "redis", "addr", opts.Addr, "db", opts.DB)
	}
	return NewRedisStore(client, DefaultRedisPrefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(email string) string {
	return s.prefix + email
}

// FindByEmail loads the user document for email.
func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	data, err := s.client.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var doc userDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("redis unmarshal error: %w", err)
	}
	return &domain.User{
		ID:           doc.ID,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// Create stores the user with SETNX so that two racing registrations for
// the same email cannot both succeed.
func (s *RedisStore) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(userDocument{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("redis marshal error: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(user.Email), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	if !created {
		return ErrUserExists
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Driver implements CredentialStore.
func (s *RedisStore) Driver() string {
	return "redis"
}
