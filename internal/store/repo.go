package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	RequestID string    // exact match when set
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
}

// LLMRequestEventData captures the data for a single upstream model call.
type LLMRequestEventData struct {
	RequestID    string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a recorded model call.
type LLMRequestEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and read access to model call events.
type EventRepo interface {
	// AppendLLMRequest records a model API call.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns the event with the given id, or nil if none exists.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByModel aggregates usage per model, most used first.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}
