package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned by a CredentialStore when no user has the email.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is the parent of both login failures.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownUser is returned when logging in with an unregistered email.
	ErrUnknownUser = fmt.Errorf("%w: invalid user", ErrInvalidCredentials)
	// ErrWrongPassword is returned when the password does not match the stored hash.
	ErrWrongPassword = fmt.Errorf("%w: invalid password", ErrInvalidCredentials)

	// ErrInvalidToken is returned for malformed, tampered or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken wraps ErrInvalidToken for tokens past their expiry.
	ErrExpiredToken = fmt.Errorf("%w: token has expired", ErrInvalidToken)

	// ErrInvalidInput is returned when request fields fail validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedPayload is returned when a request body cannot be decoded.
	ErrMalformedPayload = errors.New("invalid request payload")

	// ErrStoreUnavailable is returned when the credential store fails for a
	// reason other than a business rule.
	ErrStoreUnavailable = errors.New("service unavailable")
	// ErrInternal covers failures inside the service itself, such as hashing.
	ErrInternal = errors.New("internal error")
)

// RPCError is the structured error that crosses the RPC boundary.
type RPCError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// ToRPCError maps a service error to its wire shape. The message never
// carries store internals. ErrInvalidInput must only wrap caller-facing text.
func ToRPCError(err error) *RPCError {
	if err == nil {
		return nil
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	switch {
	case errors.Is(err, ErrUserExists):
		return &RPCError{Status: http.StatusBadRequest, Message: ErrUserExists.Error()}
	case errors.Is(err, ErrUnknownUser):
		return &RPCError{Status: http.StatusBadRequest, Message: "invalid user"}
	case errors.Is(err, ErrWrongPassword):
		return &RPCError{Status: http.StatusBadRequest, Message: "invalid password"}
	case errors.Is(err, ErrInvalidCredentials):
		return &RPCError{Status: http.StatusBadRequest, Message: ErrInvalidCredentials.Error()}
	case errors.Is(err, ErrMalformedPayload):
		return &RPCError{Status: http.StatusBadRequest, Message: ErrMalformedPayload.Error()}
	case errors.Is(err, ErrInvalidInput):
		return &RPCError{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ErrInvalidToken):
		return &RPCError{Status: http.StatusUnauthorized, Message: ErrInvalidToken.Error()}
	case errors.Is(err, ErrStoreUnavailable):
		return &RPCError{Status: http.StatusServiceUnavailable, Message: ErrStoreUnavailable.Error()}
	case errors.Is(err, ErrInternal):
		return &RPCError{Status: http.StatusInternalServerError, Message: ErrInternal.Error()}
	default:
		return &RPCError{Status: http.StatusBadRequest, Message: "request failed"}
	}
}
