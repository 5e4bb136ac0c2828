package ai

import (
	"context"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
)

// VaderScorer rates polarity offline with the VADER lexicon and rules. The
// score is VADER's compound value, already normalized to [-1, 1].
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon. The analyzer is read-only after
// construction and safe for concurrent use.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Score implements the sentiment scorer interface. It never fails.
func (v *VaderScorer) Score(_ context.Context, text string) (float64, error) {
	return v.Polarity(text), nil
}

// Polarity scores text in [-1, 1]. Comments stored as HTML are reduced to
// their text first.
func (v *VaderScorer) Polarity(text string) float64 {
	text = strings.TrimSpace(html.UnescapeString(tagPattern.ReplaceAllString(text, " ")))
	if text == "" {
		return 0
	}
	compound := v.analyzer.PolarityScores(text).Compound
	if math.IsNaN(compound) {
		return 0
	}
	return math.Max(-1, math.Min(1, compound))
}
