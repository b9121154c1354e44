package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMRequestEvent records every LLM API call for cost tracking and debugging.
type LLMRequestEvent struct {
	ent.Schema
}

func (LLMRequestEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (LLMRequestEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("request_id").
			Default("").
			Immutable().
			Comment("Inbound request this call served"),
		field.String("provider").
			Immutable().
			Comment("Provider name: anthropic, openai"),
		field.String("model").
			Immutable().
			Comment("Actual model ID used"),
		field.Int("input_tokens").
			Default(0).
			Immutable().
			Comment("Tokens in the request"),
		field.Int("output_tokens").
			Default(0).
			Immutable().
			Comment("Tokens in the response"),
		field.Int64("latency_ms").
			Default(0).
			Immutable().
			Comment("Wall-clock time for the request"),
		field.Bool("success").
			Immutable().
			Comment("Whether the request succeeded"),
		field.String("error_message").
			Default("").
			Immutable().
			Comment("Error message if failed"),
		field.Text("request_body").
			Default("").
			Immutable().
			Comment("Rendered prompt sent upstream"),
		field.Text("response_body").
			Default("").
			Immutable().
			Comment("Raw model output, kept for rejected responses too"),
	}
}

func (LLMRequestEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("request_id"),
		index.Fields("provider"),
		index.Fields("model"),
		index.Fields("success"),
	}
}
