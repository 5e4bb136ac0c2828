package ai

import (
	"context"
	"fmt"

	"yt-analytics/internal/etl"
	"yt-analytics/shared/config"
)

// NewScorer builds the sentiment scorer selected by cfg.
func NewScorer(ctx context.Context, cfg config.AIConfig) (etl.Scorer, error) {
	switch cfg.SentimentProvider {
	case "", config.ProviderVader:
		return NewVaderScorer(), nil
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required for the %q provider", config.ProviderGemini)
		}
		return NewGeminiScorer(ctx, cfg.GeminiAPIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown sentiment provider %q", cfg.SentimentProvider)
	}
}
