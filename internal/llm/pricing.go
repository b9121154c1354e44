package llm

// ModelCost holds per-million-token pricing for a model in USD.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost calculates the total USD cost for the given token counts.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	return nil
}

// modelCosts covers the models reachable through the resolver.
var modelCosts = map[string]ModelCost{
	// Anthropic
	"claude-3-5-haiku-20241022":  {0.8, 4},
	"claude-3-5-haiku-latest":    {0.8, 4},
	"claude-3-7-sonnet-20250219": {3, 15},
	"claude-3-7-sonnet-latest":   {3, 15},
	"claude-haiku-4-5":           {1, 5},
	"claude-haiku-4-5-20251001":  {1, 5},
	"claude-opus-4-1":            {15, 75},
	"claude-opus-4-1-20250805":   {15, 75},
	"claude-opus-4-5":            {5, 25},
	"claude-opus-4-5-20251101":   {5, 25},
	"claude-sonnet-4-0":          {3, 15},
	"claude-sonnet-4-20250514":   {3, 15},
	"claude-sonnet-4-5":          {3, 15},
	"claude-sonnet-4-5-20250929": {3, 15},

	// OpenAI
	"gpt-4.1":           {2, 8},
	"gpt-4.1-mini":      {0.4, 1.6},
	"gpt-4.1-nano":      {0.1, 0.4},
	"gpt-4o":            {2.5, 10},
	"gpt-4o-2024-08-06": {2.5, 10},
	"gpt-4o-2024-11-20": {2.5, 10},
	"gpt-4o-mini":       {0.15, 0.6},
	"gpt-5":             {1.25, 10},
	"gpt-5-mini":        {0.25, 2},
	"gpt-5-nano":        {0.05, 0.4},
	"o1":                {15, 60},
	"o3":                {2, 8},
	"o3-mini":           {1.1, 4.4},
	"o4-mini":           {1.1, 4.4},
}
