package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/auth-service/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface other modules use to reach the auth services.
// Structured failures are returned as *RPCError.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (*domain.AuthResult, error)
	Verify(ctx context.Context, token string) (*domain.AuthResult, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register calls the register-user service.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*domain.AuthResult, error) {
	var resp AuthResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRegisterUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceRegisterUser, err)
	}
	return resp.Result()
}

// Login calls the login-user service.
func (a *AuthAdapter) Login(ctx context.Context, req LoginRequest) (*domain.AuthResult, error) {
	var resp AuthResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLoginUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceLoginUser, err)
	}
	return resp.Result()
}

// Verify calls the verify-user service.
func (a *AuthAdapter) Verify(ctx context.Context, token string) (*domain.AuthResult, error) {
	req := VerifyRequest{Token: token}
	var resp AuthResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceVerifyUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceVerifyUser, err)
	}
	return resp.Result()
}
