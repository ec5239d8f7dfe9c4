package api

import (
	"errors"
	"strings"

	"github.com/example/auth-service/modules/auth"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse mirrors the RPC failure shape.
type ErrorResponse struct {
	Error auth.RPCError `json:"error"`
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authAdapter auth.AuthPort
	logger      types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authAdapter auth.AuthPort, logger types.Logger) *Handlers {
	return &Handlers{
		authAdapter: authAdapter,
		logger:      logger,
	}
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req auth.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	result, err := h.authAdapter.Register(c.UserContext(), req)
	if err != nil {
		return h.handleAuthError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req auth.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	result, err := h.authAdapter.Login(c.UserContext(), req)
	if err != nil {
		return h.handleAuthError(c, err)
	}
	return c.JSON(result)
}

// Verify checks a token and returns a refreshed one. The token comes from
// the JSON body or an Authorization: Bearer header.
func (h *Handlers) Verify(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" && len(c.Body()) > 0 {
		var req auth.VerifyRequest
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
		token = req.Token
	}

	result, err := h.authAdapter.Verify(c.UserContext(), token)
	if err != nil {
		return h.handleAuthError(c, err)
	}
	return c.JSON(result)
}

// handleAuthError passes structured errors through with their status and
// hides everything else behind a 502.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	var rpcErr *auth.RPCError
	if errors.As(err, &rpcErr) {
		return c.Status(rpcErr.Status).JSON(ErrorResponse{Error: *rpcErr})
	}

	h.logger.Error("Auth call failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{
		Error: auth.RPCError{Status: fiber.StatusBadGateway, Message: "auth service unavailable"},
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: auth.RPCError{Status: fiber.StatusBadRequest, Message: "invalid request body"},
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
