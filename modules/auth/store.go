package auth

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/example/auth-service/domain/user"
	"github.com/go-monolith/mono/pkg/types"
)

// CredentialStore persists users keyed uniquely by email.
type CredentialStore interface {
	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create assigns ID and CreatedAt when unset and inserts the user.
	// A uniqueness violation on email returns ErrUserExists.
	Create(ctx context.Context, user *domain.User) error
	Ping(ctx context.Context) error
	Close() error
	// Driver names the backend for health reporting.
	Driver() string
}

// OpenStore connects to the store named by databaseURL. The scheme picks
// the backend: sqlite:// (or file: / a *.db path), postgres:// and redis://.
func OpenStore(ctx context.Context, databaseURL string, logger types.Logger) (CredentialStore, error) {
	var (
		store CredentialStore
		err   error
	)

	scheme, rest, hasScheme := strings.Cut(databaseURL, "://")
	switch {
	case !hasScheme && isSQLitePath(databaseURL):
		store, err = openGorm(databaseURL, logger)
	case !hasScheme:
		return nil, fmt.Errorf("unsupported DATABASE_URL %q: expected sqlite://, postgres:// or redis://", redactURL(databaseURL))
	default:
		switch strings.ToLower(scheme) {
		case "sqlite", "sqlite3":
			store, err = openGorm(rest, logger)
		case "postgres", "postgresql":
			store, err = openPostgres(ctx, databaseURL, logger)
		case "redis", "rediss":
			store, err = openRedis(ctx, databaseURL, logger)
		default:
			return nil, fmt.Errorf("unsupported DATABASE_URL scheme %q: expected sqlite://, postgres:// or redis://", scheme)
		}
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func isSQLitePath(dsn string) bool {
	return strings.HasPrefix(dsn, "file:") ||
		strings.HasSuffix(dsn, ".db") ||
		strings.HasSuffix(dsn, ".sqlite") ||
		dsn == ":memory:"
}

func openGorm(path string, logger types.Logger) (CredentialStore, error) {
	s, err := OpenGormStore(path, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, dbURL string, logger types.Logger) (CredentialStore, error) {
	s, err := OpenPostgresStore(ctx, dbURL, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRedis(ctx context.Context, redisURL string, logger types.Logger) (CredentialStore, error) {
	s, err := OpenRedisStore(ctx, redisURL, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// redactURL drops everything after the scheme so credentials never reach logs.
func redactURL(raw string) string {
	if scheme, _, ok := strings.Cut(raw, "://"); ok {
		return scheme + "://***"
	}
	if len(raw) > 16 {
		return raw[:16] + "..."
	}
	return raw
}
