package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	domain "github.com/example/auth-service/domain/user"
	"github.com/example/auth-service/internal/logtest"
	"golang.org/x/crypto/bcrypt"
)

func testTokenConfig() TokenConfig {
	return TokenConfig{
		Secret: "test-secret-key",
		TTL:    time.Hour,
		Issuer: "test-issuer",
	}
}

// setupTestStore opens a SQLite store in a temp directory.
func setupTestStore(t *testing.T) *GormStore {
	t.Helper()

	store, err := OpenGormStore(filepath.Join(t.TempDir(), "auth.db"), logtest.Discard())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newTestService(t *testing.T, store CredentialStore) *AuthService {
	t.Helper()

	codec, err := NewTokenCodec(testTokenConfig())
	if err != nil {
		t.Fatalf("NewTokenCodec() error = %v", err)
	}
	return NewAuthService(store, NewPasswordHasher(bcrypt.MinCost), codec, logtest.Discard())
}

// failingStore is a CredentialStore whose calls fail with the configured errors.
type failingStore struct {
	findErr   error
	createErr error
	found     *domain.User
}

func (s *failingStore) FindByEmail(_ context.Context, _ string) (*domain.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.found != nil {
		return s.found, nil
	}
	return nil, ErrUserNotFound
}

func (s *failingStore) Create(_ context.Context, _ *domain.User) error {
	return s.createErr
}

func (s *failingStore) Ping(_ context.Context) error { return s.findErr }
func (s *failingStore) Close() error                 { return nil }
func (s *failingStore) Driver() string               { return "failing" }
