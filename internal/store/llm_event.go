package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/abhisek/supportagent/ent"
	"github.com/abhisek/supportagent/ent/llmrequestevent"
)

// eventRepo implements EventRepo backed by ent.
type eventRepo struct {
	client *ent.Client
	now    func() time.Time
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	create := r.client.LLMRequestEvent.Create().
		SetRequestID(data.RequestID).
		SetProvider(data.Provider).
		SetModel(data.Model).
		SetInputTokens(data.InputTokens).
		SetOutputTokens(data.OutputTokens).
		SetLatencyMs(data.LatencyMs).
		SetSuccess(data.Success).
		SetErrorMessage(data.ErrorMessage).
		SetRequestBody(data.RequestBody).
		SetResponseBody(data.ResponseBody)
	if r.now != nil {
		create.SetTimestamp(r.now().UTC())
	} else {
		create.SetTimestamp(time.Now().UTC())
	}

	if _, err := create.Save(ctx); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	query := r.client.LLMRequestEvent.Query().
		Order(ent.Desc(llmrequestevent.FieldID))

	if opts.RequestID != "" {
		query = query.Where(llmrequestevent.RequestID(opts.RequestID))
	}
	if !opts.From.IsZero() {
		query = query.Where(llmrequestevent.TimestampGTE(opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		query = query.Where(llmrequestevent.TimestampLTE(opts.To.UTC()))
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	events, err := query.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}

	records := make([]LLMRequestEvent, len(events))
	for i, e := range events {
		records[i] = toLLMRequestEvent(e)
	}
	return records, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error) {
	e, err := r.client.LLMRequestEvent.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get LLM event: %w", err)
	}
	rec := toLLMRequestEvent(e)
	return &rec, nil
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]ModelUsage, error) {
	events, err := r.client.LLMRequestEvent.Query().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query model usage: %w", err)
	}

	byModel := make(map[string]*ModelUsage)
	latency := make(map[string]int64)
	for _, e := range events {
		u, ok := byModel[e.Model]
		if !ok {
			u = &ModelUsage{Model: e.Model}
			byModel[e.Model] = u
		}
		u.Calls++
		if !e.Success {
			u.Failures++
		}
		u.InputTokens += e.InputTokens
		u.OutputTokens += e.OutputTokens
		latency[e.Model] += e.LatencyMs
	}

	out := make([]ModelUsage, 0, len(byModel))
	for model, u := range byModel {
		u.AvgLatencyMs = latency[model] / int64(u.Calls)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Model < out[j].Model
	})
	return out, nil
}

func toLLMRequestEvent(e *ent.LLMRequestEvent) LLMRequestEvent {
	return LLMRequestEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		LLMRequestEventData: LLMRequestEventData{
			RequestID:    e.RequestID,
			Provider:     e.Provider,
			Model:        e.Model,
			InputTokens:  e.InputTokens,
			OutputTokens: e.OutputTokens,
			LatencyMs:    e.LatencyMs,
			Success:      e.Success,
			ErrorMessage: e.ErrorMessage,
			RequestBody:  e.RequestBody,
			ResponseBody: e.ResponseBody,
		},
	}
}
