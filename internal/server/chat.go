package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/abhisek/supportagent/internal/llm"
	"github.com/abhisek/supportagent/internal/support"
)

var errNoAnswer = errors.New("generator returned no answer")

// Response headers set on every successful chat reply.
const (
	HeaderPromptVersion = "X-Prompt-Version"
	HeaderModel         = "X-Model"
)

// AnswerGenerator produces one validated answer per message.
type AnswerGenerator interface {
	Generate(ctx context.Context, userMessage string) (*support.Result, error)
	Resolve() (llm.ProviderConfig, error)
}

// chatRequest accepts either a bare query or the chat UI's message list.
// Only the last user message is used when messages are sent.
type chatRequest struct {
	Query    string                `json:"query"`
	Messages []support.ChatMessage `json:"messages"`
}

func (r chatRequest) userMessage() string {
	if strings.TrimSpace(r.Query) != "" {
		return r.Query
	}
	return support.LastUserContent(r.Messages)
}

type chatHandler struct {
	gen    AnswerGenerator
	logger *zap.Logger
	now    func() time.Time
}

// chat answers one message. The response body is the SupportAnswer itself
// on success and an ErrorEnvelope otherwise.
func (h *chatHandler) chat(c *fiber.Ctx) error {
	requestID := requestIDOf(c)
	start := h.now()

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return h.fail(c, requestID, &badRequest{msg: "request body must be JSON with a query or messages field"})
	}

	msg := req.userMessage()
	if strings.TrimSpace(msg) == "" {
		return h.fail(c, requestID, &badRequest{msg: "query must not be empty"})
	}

	ctx := llm.WithRequestID(c.UserContext(), requestID)
	result, err := h.gen.Generate(ctx, msg)
	if err != nil {
		return h.fail(c, requestID, err)
	}
	if result == nil || result.Answer == nil {
		return h.fail(c, requestID, &internalError{msg: "generate", err: errNoAnswer})
	}

	generationDuration.WithLabelValues(string(result.Config.Provider)).
		Observe(h.now().Sub(start).Seconds())
	chatRequests.WithLabelValues(codeOK).Inc()

	h.logger.Info("chat answered",
		zap.String("request_id", requestID),
		zap.String("provider", string(result.Config.Provider)),
		zap.String("model", result.Model),
		zap.String("prompt_version", result.PromptVersion),
		zap.String("code", codeOK),
		zap.String("category", string(result.Answer.Category)),
		zap.Bool("requires_human", result.Answer.RequiresHuman),
		zap.Duration("latency", h.now().Sub(start)),
	)

	c.Set(HeaderPromptVersion, result.PromptVersion)
	c.Set(HeaderModel, result.Model)
	return c.Status(fiber.StatusOK).JSON(result.Answer)
}

func (h *chatHandler) fail(c *fiber.Ctx, requestID string, err error) error {
	status, code, msg := classify(err)
	chatRequests.WithLabelValues(string(code)).Inc()

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("code", string(code)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("chat failed", fields...)
	} else {
		h.logger.Warn("chat failed", fields...)
	}

	return c.Status(status).JSON(ErrorEnvelope{
		Code:      code,
		Message:   msg,
		Timestamp: h.now().UTC(),
		RequestID: requestID,
	})
}
