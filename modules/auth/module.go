package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/example/auth-service/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Options configures the auth module.
type Options struct {
	DatabaseURL string
	Token       TokenConfig
	BcryptCost  int
}

// AuthModule exposes registration, login and token verification as
// request-reply services.
type AuthModule struct {
	opts     Options
	store    CredentialStore
	service  *AuthService
	eventBus mono.EventBus
	logger   types.Logger

	// injected is set when the store was supplied by the caller, in which
	// case Stop leaves it open.
	injected bool
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.EventBusAwareModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule that opens its store on Start.
func NewModule(opts Options, logger types.Logger) *AuthModule {
	return &AuthModule{
		opts:   opts,
		logger: logger,
	}
}

// NewModuleWithStore creates an AuthModule backed by an existing store.
func NewModuleWithStore(store CredentialStore, opts Options, logger types.Logger) *AuthModule {
	return &AuthModule{
		opts:     opts,
		store:    store,
		logger:   logger,
		injected: true,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// SetEventBus receives the EventBus from the framework.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		UserRegisteredV1.ToBase(),
	}
}

// Start connects the credential store and builds the service.
func (m *AuthModule) Start(ctx context.Context) error {
	codec, err := NewTokenCodec(m.opts.Token)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}

	if m.store == nil {
		store, err := OpenStore(ctx, m.opts.DatabaseURL, m.logger)
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		m.store = store
	}

	m.service = NewAuthService(m.store, NewPasswordHasher(m.opts.BcryptCost), codec, m.logger)
	m.logger.Info("Auth module started", "store", m.store.Driver(), "token_ttl", m.opts.Token.TTL.String())
	return nil
}

// Stop closes the credential store.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.store == nil || m.injected {
		m.logger.Info("Auth module stopped")
		return nil
	}
	err := m.store.Close()
	m.store = nil
	if err != nil {
		return fmt.Errorf("failed to close credential store: %w", err)
	}
	m.logger.Info("Auth module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil || m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "credential store not initialized",
		}
	}
	if err := m.store.Ping(ctx); err != nil {
		m.logger.Warn("Credential store ping failed", "store", m.store.Driver(), "error", err)
		return mono.HealthStatus{
			Healthy: false,
			Message: "credential store unreachable",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"store": m.store.Driver(),
		},
	}
}

// Service returns the underlying AuthService. It is nil before Start.
func (m *AuthModule) Service() *AuthService {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes names with "services.auth.".
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	for name, handler := range m.requestHandlers() {
		if err := container.RegisterRequestReplyService(name, handler); err != nil {
			return fmt.Errorf("failed to register %s service: %w", name, err)
		}
	}

	m.logger.Info("Registered services",
		"services", "services.auth.{register-user,login-user,verify-user}")
	return nil
}

func (m *AuthModule) requestHandlers() map[string]mono.RequestReplyHandler {
	return map[string]mono.RequestReplyHandler{
		ServiceRegisterUser: jsonHandler(ServiceRegisterUser, m.logger, m.handleRegister),
		ServiceLoginUser:    jsonHandler(ServiceLoginUser, m.logger, m.handleLogin),
		ServiceVerifyUser:   jsonHandler(ServiceVerifyUser, m.logger, m.handleVerify),
	}
}

// jsonHandler decodes the payload itself so that a malformed request still
// gets an AuthResponse carrying a 400.
func jsonHandler[Req any](
	service string,
	logger types.Logger,
	handle types.TypedRequestReplyHandler[Req, AuthResponse],
) mono.RequestReplyHandler {
	return func(ctx context.Context, msg *mono.Msg) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logger.Debug("Request rejected", "service", service, "reason", "malformed payload", "error", err)
			return json.Marshal(newAuthResponse(nil, ErrMalformedPayload))
		}

		resp, err := handle(ctx, req, msg)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("service '%s': failed to marshal response: %w", service, err)
		}
		return data, nil
	}
}

// Handlers always reply with an AuthResponse; business failures travel in
// its Error field rather than as transport errors.

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (AuthResponse, error) {
	result, err := m.service.Register(ctx, req.Name, req.Email, req.Password)
	m.logFailure(ServiceRegisterUser, err)
	if err == nil {
		m.publishRegistered(result)
	}
	return newAuthResponse(result, err), nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (AuthResponse, error) {
	result, err := m.service.Login(ctx, req.Email, req.Password)
	m.logFailure(ServiceLoginUser, err)
	return newAuthResponse(result, err), nil
}

func (m *AuthModule) handleVerify(ctx context.Context, req VerifyRequest, _ *mono.Msg) (AuthResponse, error) {
	result, err := m.service.VerifyToken(ctx, req.Token)
	m.logFailure(ServiceVerifyUser, err)
	return newAuthResponse(result, err), nil
}

// publishRegistered is best-effort: a publish failure does not fail the
// registration.
func (m *AuthModule) publishRegistered(result *domain.AuthResult) {
	if m.eventBus == nil {
		return
	}
	event := UserRegisteredEvent{
		UserID:       result.User.ID,
		Name:         result.User.Name,
		Email:        result.User.Email,
		RegisteredAt: time.Now().UTC(),
	}
	if err := UserRegisteredV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish UserRegistered event", "user_id", event.UserID, "error", err)
	}
}

func (m *AuthModule) logFailure(service string, err error) {
	if err == nil {
		return
	}
	rpcErr := ToRPCError(err)
	if errors.Is(err, ErrStoreUnavailable) {
		m.logger.Warn("Request failed", "service", service, "status", rpcErr.Status)
		return
	}
	m.logger.Debug("Request rejected", "service", service, "status", rpcErr.Status, "reason", rpcErr.Message)
}
