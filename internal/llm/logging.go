package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/supportagent/internal/store"
)

// LoggingProvider is a decorator that logs every upstream call and, when an
// event repo is configured, records it as an event.
type LoggingProvider struct {
	inner     Provider
	logger    *zap.Logger
	eventRepo store.EventRepo
}

// WithLogging wraps a Provider with structured logging and event recording.
// repo may be nil.
func WithLogging(p Provider, logger *zap.Logger, repo store.EventRepo) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, logger: logger, eventRepo: repo}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	requestID := RequestIDFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	latency := time.Since(start)

	data := store.LLMRequestEventData{
		RequestID:   requestID,
		Provider:    string(l.inner.Name()),
		Model:       l.inner.ModelID(),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
		data.ResponseBody = string(resp.Content)
	}

	// Rejected output still carries the raw model text.
	var (
		invalid   *ErrInvalidResponse
		truncated *ErrMaxTokensExceeded
	)
	switch {
	case errors.As(err, &invalid):
		data.ResponseBody = string(invalid.Content)
	case errors.As(err, &truncated):
		data.ResponseBody = string(truncated.Content)
	}

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("provider", data.Provider),
		zap.String("model", data.Model),
		zap.Duration("latency", latency),
		zap.Int("input_tokens", data.InputTokens),
		zap.Int("output_tokens", data.OutputTokens),
	}
	if cost := LookupCost(data.Model); cost != nil {
		fields = append(fields, zap.Float64("cost_usd", cost.Cost(data.InputTokens, data.OutputTokens)))
	}

	if err != nil {
		data.ErrorMessage = err.Error()
		l.logger.Warn("model call failed", append(fields, zap.Error(err))...)
	} else {
		l.logger.Info("model call completed", fields...)
	}

	if l.eventRepo != nil {
		// Recording is best-effort; the caller still gets the model result.
		if logErr := l.eventRepo.AppendLLMRequest(ctx, data); logErr != nil {
			l.logger.Warn("failed to record model call event",
				zap.String("request_id", requestID), zap.Error(logErr))
		}
	}

	return resp, err
}

func (l *LoggingProvider) Name() ProviderName {
	return l.inner.Name()
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the model request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			b.WriteString(fmt.Sprintf("[schema: %s]\n", req.Schema.Name))
			b.WriteString(string(schemaDef))
			b.WriteString("\n")
		}
	}

	return b.String()
}
