package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Checker is one readiness dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.CheckName }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

type healthHandler struct {
	checkers []Checker
}

// health reports liveness.
func (h *healthHandler) health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// ready runs every checker and fails on the first error.
func (h *healthHandler) ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()

	for _, ch := range h.checkers {
		if err := ch.Check(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":  "not_ready",
				"details": fmt.Sprintf("%s: %v", ch.Name(), err),
			})
		}
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ready"})
}
