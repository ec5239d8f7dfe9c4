// Package client calls the auth services over NATS from outside the process.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/auth-service/domain/user"
	"github.com/example/auth-service/modules/auth"
	"github.com/nats-io/nats.go"
)

// DefaultTimeout bounds a single request when the context has no deadline.
const DefaultTimeout = 5 * time.Second

// SubjectPrefix is where the auth module's request-reply services live.
const SubjectPrefix = "services.auth."

// Client is a NATS request-reply client for the auth services.
type Client struct {
	nc      *nats.Conn
	timeout time.Duration
}

var _ auth.AuthPort = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Connect dials the given NATS servers.
func Connect(servers []string, opts ...Option) (*Client, error) {
	if len(servers) == 0 {
		return nil, errors.New("no NATS servers given")
	}

	nc, err := nats.Connect(strings.Join(servers, ","),
		nats.Name("auth-client"),
		nats.Timeout(DefaultTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return New(nc, opts...), nil
}

// New wraps an existing connection. Close closes it.
func New(nc *nats.Conn, opts ...Option) *Client {
	c := &Client{
		nc:      nc,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close drains and closes the connection.
func (c *Client) Close() error {
	return c.nc.Drain()
}

// Register calls register-user.
func (c *Client) Register(ctx context.Context, req auth.RegisterRequest) (*domain.AuthResult, error) {
	return c.call(ctx, auth.ServiceRegisterUser, req)
}

// Login calls login-user.
func (c *Client) Login(ctx context.Context, req auth.LoginRequest) (*domain.AuthResult, error) {
	return c.call(ctx, auth.ServiceLoginUser, req)
}

// Verify calls verify-user with the token as a bare JSON string.
func (c *Client) Verify(ctx context.Context, token string) (*domain.AuthResult, error) {
	return c.call(ctx, auth.ServiceVerifyUser, token)
}

// call sends payload to the service and decodes the reply. A structured
// failure comes back as *auth.RPCError.
func (c *Client) call(ctx context.Context, service string, payload any) (*domain.AuthResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", service, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.nc.RequestWithContext(ctx, SubjectPrefix+service, data)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", service, err)
	}

	var resp auth.AuthResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", service, err)
	}
	return resp.Result()
}
