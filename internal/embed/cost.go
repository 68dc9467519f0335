package embed

import "math"

// perMillionRateUSD gives the per-million-token price for models this
// service knows the pricing of. Unknown models estimate at zero cost
// rather than guessing.
var perMillionRateUSD = map[string]float64{
	"text-embedding-3-small": 0.02,
	"text-embedding-3-large": 0.13,
	"text-embedding-ada-002": 0.10,
	"voyage-code-3":          0.18,
}

// CostEstimate is the result of estimateTokens.
type CostEstimate struct {
	TotalChars int
	EstTokens  int
	EstCostUSD float64
}

// EstimateTokens estimates token count and USD cost for a batch of texts
// about to be embedded, without calling the provider. estTokens is
// ceil(totalChars/4); estCostUsd is 0 for a model with no known rate.
func EstimateTokens(texts []string, model string) CostEstimate {
	var totalChars int
	for _, t := range texts {
		totalChars += len(t)
	}
	estTokens := int(math.Ceil(float64(totalChars) / 4.0))

	rate := perMillionRateUSD[model]
	estCost := float64(estTokens) / 1e6 * rate

	return CostEstimate{
		TotalChars: totalChars,
		EstTokens:  estTokens,
		EstCostUSD: estCost,
	}
}
