package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"stockflow/backend/internal/domain"
	"stockflow/backend/internal/service"
)

const (
	localActor = "actor"

	kindTooManyRequests = "TooManyRequests"
	maxBodyBytes        = 1 << 20
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	commands      map[string]command
	loginMax      int
	loginWindow   time.Duration
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	a := &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginMax:      5,
		loginWindow:   time.Minute,
	}
	a.commands = a.commandTable()
	return a
}

// App builds the fiber application with every route and middleware mounted.
func (a *API) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "stockflow",
		BodyLimit:             maxBodyBytes,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrorHandler,
	})
	a.withMiddleware(app)

	app.Get("/healthz", a.handleHealth)

	v1 := app.Group("/api/v1")
	v1.Post("/auth/login", a.loginLimiter(), a.handleLogin)
	v1.Post("/commands/:command", a.requireAuth(a.handleCommand, domain.RoleCashier, domain.RoleAdmin))

	return app
}

func (a *API) withMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New(helmet.Config{
		XFrameOptions:  "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: a.allowedOrigin,
		AllowHeaders: "Content-Type, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}))
	app.Use(requestLogger)
}

func (a *API) loginLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        a.loginMax,
		Expiration: a.loginWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return writeError(c, fiber.StatusTooManyRequests, errors.New("too many login attempts"))
		},
	})
}

func requestLogger(c *fiber.Ctx) error {
	startedAt := time.Now()
	err := c.Next()
	if err != nil {
		if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(startedAt)).
		Msg("http request")
	return nil
}

func (a *API) requireAuth(next fiber.Handler, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			return writeError(c, fiber.StatusUnauthorized, errors.New("missing bearer token"))
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, err)
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			return writeError(c, fiber.StatusForbidden, errors.New("forbidden role"))
		}

		c.Locals(localActor, actor)
		c.SetUserContext(service.WithActor(c.UserContext(), actor))
		return next(c)
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func actorFrom(c *fiber.Ctx) (domain.Actor, bool) {
	actor, ok := c.Locals(localActor).(domain.Actor)
	return actor, ok
}

func (a *API) handleHealth(c *fiber.Ctx) error {
	return writeJSON(c, fiber.StatusOK, fiber.Map{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := decodeJSON(c.Body(), &req); err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()
	resp, err := a.auth.Login(ctx, req)
	if err != nil {
		return writeServiceError(c, err)
	}

	return writeJSON(c, fiber.StatusOK, resp)
}

type commandEnvelope struct {
	TenantID string          `json:"tenant_id"`
	Payload  json.RawMessage `json:"payload"`
}

func (a *API) handleCommand(c *fiber.Ctx) error {
	name := c.Params("command")
	cmd, ok := a.commands[name]
	if !ok {
		return writeError(c, fiber.StatusNotFound, fmt.Errorf("unknown command %q", name))
	}

	actor, ok := actorFrom(c)
	if !ok {
		return writeError(c, fiber.StatusUnauthorized, errors.New("missing actor"))
	}
	if !isRoleAllowed(actor.Role, cmd.roles) {
		return writeError(c, fiber.StatusForbidden, fmt.Errorf("role %s may not run %s", actor.Role, name))
	}

	var envelope commandEnvelope
	if err := decodeJSON(c.Body(), &envelope); err != nil {
		return writeError(c, fiber.StatusBadRequest, err)
	}
	if actor.TenantID != "" && actor.TenantID != envelope.TenantID {
		return writeError(c, fiber.StatusForbidden, fmt.Errorf("token is not valid for tenant %s", envelope.TenantID))
	}

	result, err := cmd.run(c.UserContext(), envelope.TenantID, envelope.Payload)
	if err != nil {
		return writeServiceError(c, err)
	}

	return writeJSON(c, fiber.StatusOK, fiber.Map{"result": result})
}

func decodeJSON(raw []byte, dest any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// decodePayload accepts an absent or null payload as the zero request.
func decodePayload[T any](raw json.RawMessage) (T, error) {
	var req T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return req, nil
	}
	if err := decodeJSON(trimmed, &req); err != nil {
		return req, fmt.Errorf("%w: malformed payload: %v", domain.ErrValidation, err)
	}
	return req, nil
}

func statusFor(kind string) int {
	switch kind {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInvalidTransition, domain.KindConflict:
		return fiber.StatusConflict
	case domain.KindInvalidQuantity:
		return fiber.StatusUnprocessableEntity
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindUnauthorized:
		return fiber.StatusUnauthorized
	case domain.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// kindFor names an error for the envelope. Errors without a domain kind take
// the kind implied by the status they are written with.
func kindFor(status int, err error) string {
	if kind := domain.KindOf(err); kind != domain.KindInternal {
		return kind
	}
	switch {
	case status == fiber.StatusUnauthorized:
		return domain.KindUnauthorized
	case status == fiber.StatusForbidden:
		return domain.KindForbidden
	case status == fiber.StatusNotFound:
		return domain.KindNotFound
	case status == fiber.StatusTooManyRequests:
		return kindTooManyRequests
	case status < fiber.StatusInternalServerError:
		return domain.KindValidation
	default:
		return domain.KindInternal
	}
}

func writeServiceError(c *fiber.Ctx, err error) error {
	return writeError(c, statusFor(domain.KindOf(err)), err)
}

func writeError(c *fiber.Ctx, status int, err error) error {
	// 5xx details stay in the log.
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Str("path", c.Path()).Msg("internal error")
		msg = "internal server error"
	}
	return writeJSON(c, status, fiber.Map{
		"error": fiber.Map{"kind": kindFor(status, err), "message": msg},
	})
}

func writeJSON(c *fiber.Ctx, status int, payload any) error {
	return c.Status(status).JSON(payload)
}

// fiberErrorHandler renders errors raised by fiber itself, such as unknown
// routes or oversized bodies, in the same envelope as command errors.
func fiberErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeError(c, fe.Code, fe)
	}
	return writeServiceError(c, err)
}
