package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abhisek/supportagent/internal/llm"
	"github.com/abhisek/supportagent/internal/support"
)

// ErrorCode is the machine-readable failure class in an ErrorEnvelope.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION_ERROR"
	CodeAI         ErrorCode = "AI_ERROR"
	CodeRateLimit  ErrorCode = "RATE_LIMIT"
	CodeInternal   ErrorCode = "INTERNAL_ERROR"
	CodeUnknown    ErrorCode = "UNKNOWN_ERROR"
)

// ErrorEnvelope is the body of every failed request.
type ErrorEnvelope struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// internalError marks failures in the endpoint's own logic.
type internalError struct {
	msg string
	err error
}

func (e *internalError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *internalError) Unwrap() error { return e.err }

// badRequest marks a malformed or empty client request.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

// classify maps an error to its HTTP status, envelope code, and the message
// shown to clients. Upstream error text is not echoed back.
func classify(err error) (int, ErrorCode, string) {
	var (
		bad      *badRequest
		cfgErr   *llm.ErrConfig
		invalid  *llm.ErrInvalidResponse
		rate     *llm.ErrRateLimit
		provider *llm.ErrProvider
		maxTok   *llm.ErrMaxTokensExceeded
		internal *internalError
		fiberErr *fiber.Error
	)

	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, CodeValidation, bad.msg
	case errors.Is(err, support.ErrEmptyQuery):
		return http.StatusBadRequest, CodeValidation, "query must not be empty"
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest, CodeValidation, cfgErr.Error()
	case errors.As(err, &invalid):
		return http.StatusBadGateway, CodeValidation, "the AI response did not match the answer schema"
	case errors.As(err, &rate):
		return http.StatusTooManyRequests, CodeRateLimit, "the AI provider is rate limiting requests; try again later"
	case errors.As(err, &maxTok):
		return http.StatusBadGateway, CodeAI, "the AI response was truncated"
	case errors.As(err, &provider):
		return http.StatusBadGateway, CodeAI, "the AI provider request failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeAI, "the AI provider did not respond in time"
	case errors.As(err, &internal):
		return http.StatusInternalServerError, CodeInternal, "internal error"
	case errors.As(err, &fiberErr):
		if fiberErr.Code >= 500 {
			return fiberErr.Code, CodeInternal, "internal error"
		}
		return fiberErr.Code, CodeValidation, fiberErr.Message
	}
	return http.StatusInternalServerError, CodeUnknown, "unexpected error"
}
