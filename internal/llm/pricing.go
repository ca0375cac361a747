package llm

import (
	"log/slog"
	"strings"
)

// modelRate is the USD price per 1K tokens, split by input and output.
type modelRate struct {
	inputPer1K  float64
	outputPer1K float64
}

// modelRates is the fixed price table. Keys are matched by prefix so dated
// model snapshots (gpt-4o-mini-2024-07-18) share their family's rate.
var modelRates = map[string]modelRate{
	"gpt-4o-mini":   {inputPer1K: 0.00015, outputPer1K: 0.0006},
	"gpt-4o":        {inputPer1K: 0.0025, outputPer1K: 0.01},
	"gpt-4.1-mini":  {inputPer1K: 0.0004, outputPer1K: 0.0016},
	"gpt-4.1":       {inputPer1K: 0.002, outputPer1K: 0.008},
	"gpt-3.5-turbo": {inputPer1K: 0.0005, outputPer1K: 0.0015},
	"mock":          {},
}

// GetCostEstimate returns the estimated USD cost for one call. Unknown models
// cost zero; the mismatch is logged once per call so a missing table entry
// does not silently hide spend.
func GetCostEstimate(modelName string, usage Usage) float64 {
	rate, ok := lookupRate(modelName)
	if !ok {
		slog.Warn("llm: no price table entry for model, estimating zero cost", "model", modelName)

		return 0
	}

	return float64(usage.PromptTokens)/1000*rate.inputPer1K +
		float64(usage.CompletionTokens)/1000*rate.outputPer1K
}

func lookupRate(modelName string) (modelRate, bool) {
	if rate, ok := modelRates[modelName]; ok {
		return rate, true
	}

	// Longest-prefix match so "gpt-4o-mini-..." resolves to gpt-4o-mini, not gpt-4o.
	var (
		best    modelRate
		bestLen = -1
	)

	for name, rate := range modelRates {
		if strings.HasPrefix(modelName, name) && len(name) > bestLen {
			best = rate
			bestLen = len(name)
		}
	}

	return best, bestLen >= 0
}
