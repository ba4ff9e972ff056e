// Package finops tracks model token usage, derives monetary cost and
// enforces advisory per-user quotas.
package finops

// ModelRate holds per-token pricing in USD.
type ModelRate struct {
	InputPerToken  float64
	OutputPerToken float64
}

// DefaultModel is the pricing fallback for unknown model identifiers.
const DefaultModel = "gpt-4o-mini"

// modelRates lists known model pricing. Unknown models fall back to
// DefaultModel rather than failing the record.
var modelRates = map[string]ModelRate{
	"gpt-4o":        {InputPerToken: 2.50 / 1e6, OutputPerToken: 10.00 / 1e6},
	"gpt-4o-mini":   {InputPerToken: 0.15 / 1e6, OutputPerToken: 0.60 / 1e6},
	"deepseek-chat": {InputPerToken: 0.14 / 1e6, OutputPerToken: 0.28 / 1e6},
	"o3-mini":       {InputPerToken: 1.10 / 1e6, OutputPerToken: 4.40 / 1e6},
}

// RateFor returns the pricing for a model, falling back to the default
// model's rate when unknown.
func RateFor(model string) ModelRate {
	if rate, ok := modelRates[model]; ok {
		return rate
	}
	return modelRates[DefaultModel]
}

// CostOf computes the monetary cost of one invocation.
func CostOf(model string, promptTokens, completionTokens int) float64 {
	rate := RateFor(model)
	return float64(promptTokens)*rate.InputPerToken + float64(completionTokens)*rate.OutputPerToken
}
