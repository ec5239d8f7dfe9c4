package auth

import (
	"bytes"
	"encoding/json"

	domain "github.com/example/auth-service/domain/user"
)

// Service names. The framework prefixes them with "services.auth.".
const (
	ServiceRegisterUser = "register-user"
	ServiceLoginUser    = "login-user"
	ServiceVerifyUser   = "verify-user"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest carries the token to verify. On the wire it is either a
// bare JSON string or an object with a "token" field.
type VerifyRequest struct {
	Token string `json:"token"`
}

// UnmarshalJSON accepts both `"<token>"` and `{"token":"<token>"}`.
func (r *VerifyRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Token)
	}

	type plain VerifyRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	r.Token = p.Token
	return nil
}

// AuthResponse is the reply of all three services. Exactly one of
// User/Token or Error is set.
type AuthResponse struct {
	User  *domain.PublicUser `json:"user,omitempty"`
	Token string             `json:"token,omitempty"`
	Error *RPCError          `json:"error,omitempty"`
}

// Result converts a reply back into a result or its structured error.
func (r *AuthResponse) Result() (*domain.AuthResult, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	if r.User == nil {
		return nil, &RPCError{Status: 500, Message: "empty response"}
	}
	return &domain.AuthResult{
		User:  *r.User,
		Token: r.Token,
	}, nil
}

func newAuthResponse(result *domain.AuthResult, err error) AuthResponse {
	if err != nil {
		return AuthResponse{Error: ToRPCError(err)}
	}
	user := result.User
	return AuthResponse{
		User:  &user,
		Token: result.Token,
	}
}
