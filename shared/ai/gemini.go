// Package ai provides the sentiment scorers used to enrich videos from their
// comments.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

// maxCommentLength bounds the text sent to the model per comment.
const maxCommentLength = 2000

// ErrNoPolarity is returned when a model response carries no usable score.
var ErrNoPolarity = errors.New("no polarity in response")

// GeminiScorer rates comment polarity with a Gemini model.
type GeminiScorer struct {
	client *genai.Client
	model  string
}

// NewGeminiScorer creates a scorer using the given API key and model.
func NewGeminiScorer(ctx context.Context, apiKey, model string) (*GeminiScorer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiScorer{client: client, model: model}, nil
}

// Score asks the model for the polarity of text in [-1, 1].
func (g *GeminiScorer) Score(ctx context.Context, text string) (float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildPolarityPrompt(text), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return 0, fmt.Errorf("failed to score comment: %w", err)
	}

	responseText := result.Text()
	if responseText == "" {
		return 0, fmt.Errorf("empty response from model: %w", ErrNoPolarity)
	}

	return parsePolarity(responseText)
}

func buildPolarityPrompt(text string) string {
	return fmt.Sprintf(`You rate the sentiment polarity of YouTube comments.

Return a polarity between -1.0 (very negative) and 1.0 (very positive), with 0.0 for neutral or
unclear text. Judge the commenter's attitude, not the topic of the video.

COMMENT:
%s

Respond with JSON only, in the form {"polarity": number}`, truncateString(text, maxCommentLength))
}

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// parsePolarity reads {"polarity": x} from a model response, falling back to
// the first number in the text. The result is clamped to [-1, 1].
func parsePolarity(response string) (float64, error) {
	var value float64
	found := false

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx != -1 && endIdx > startIdx {
		var result struct {
			Polarity *float64 `json:"polarity"`
		}
		if err := json.Unmarshal([]byte(response[startIdx:endIdx+1]), &result); err == nil && result.Polarity != nil {
			value, found = *result.Polarity, true
		}
	}

	if !found {
		match := numberPattern.FindString(response)
		if match == "" {
			return 0, fmt.Errorf("%w: %q", ErrNoPolarity, truncateString(response, 200))
		}
		v, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNoPolarity, match)
		}
		value = v
	}

	if math.IsNaN(value) {
		return 0, fmt.Errorf("%w: not a number", ErrNoPolarity)
	}
	return math.Max(-1, math.Min(1, value)), nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	cut := maxLength
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
