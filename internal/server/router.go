package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HeaderRequestID carries the per-request correlation id.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "requestid"

// Options wires the app's dependencies.
type Options struct {
	Generator AnswerGenerator
	Logger    *zap.Logger
	Checkers  []Checker
	Now       func() time.Time
}

// New builds the fiber app with every route registered.
func New(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	app := fiber.New(fiber.Config{
		AppName:               "supportagent",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(opts.Logger, opts.Now),
	})

	app.Use(requestid.New(requestid.Config{
		Header:     HeaderRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(recover.New())

	register(app,
		&chatHandler{gen: opts.Generator, logger: opts.Logger, now: opts.Now},
		&healthHandler{checkers: append([]Checker{providerChecker(opts.Generator)}, opts.Checkers...)},
	)
	return app
}

// register wires all HTTP routes onto the app.
func register(app *fiber.App, chat *chatHandler, health *healthHandler) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", health.health)
	v1.Get("/ready", health.ready)
	v1.Post("/chat", chat.chat)

	// Unversioned alias used by the chat UI.
	api.Post("/chat", chat.chat)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// errorHandler renders errors that escape a handler, including recovered
// panics and unknown routes, as an ErrorEnvelope.
func errorHandler(logger *zap.Logger, now func() time.Time) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, code, msg := classify(err)
		if _, isFiber := err.(*fiber.Error); !isFiber {
			status, code, msg = fiber.StatusInternalServerError, CodeInternal, "internal error"
		}
		fields := []zap.Field{
			zap.String("request_id", requestIDOf(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Error("unhandled request error", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
		return c.Status(status).JSON(ErrorEnvelope{
			Code:      code,
			Message:   msg,
			Timestamp: now().UTC(),
			RequestID: requestIDOf(c),
		})
	}
}

// providerChecker reports not ready while no provider can be resolved.
func providerChecker(gen AnswerGenerator) Checker {
	return CheckFunc{CheckName: "provider", Fn: func(context.Context) error {
		_, err := gen.Resolve()
		return err
	}}
}

func requestIDOf(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return ""
}
