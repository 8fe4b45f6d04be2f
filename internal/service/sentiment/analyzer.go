package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"citywatch/internal/domain/area"
	"citywatch/internal/domain/event"
	"citywatch/internal/domain/narrative"
)

const maxKeywords = 8

// Analyzer produces a per-source sentiment result for a batch of texts.
// Implementations other than the narrative-backed one exist only in tests.
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, source string, texts []string) (area.SentimentResult, error)
}

// NarrativeAnalyzer asks the narrative service to score a batch of texts.
type NarrativeAnalyzer struct {
	client narrative.Client
	logger *zap.Logger
}

// NewNarrativeAnalyzer creates a sentiment analyzer backed by the narrative
// service.
func NewNarrativeAnalyzer(client narrative.Client, logger *zap.Logger) *NarrativeAnalyzer {
	return &NarrativeAnalyzer{
		client: client,
		logger: logger,
	}
}

// sentimentResponse is the sentiment schema the narrative service returns.
type sentimentResponse struct {
	Score          *float64 `json:"score"`
	Classification string   `json:"classification"`
	Confidence     *float64 `json:"confidence"`
	Keywords       []string `json:"keywords"`
	Summary        string   `json:"summary"`
}

// AnalyzeSentiment scores the given texts as one batch. An empty batch is a
// neutral zero-confidence result without a service call. Out-of-range numeric
// fields are clamped; an inconsistent classification is recomputed from the
// score rather than rejected.
func (a *NarrativeAnalyzer) AnalyzeSentiment(ctx context.Context, source string, texts []string) (area.SentimentResult, error) {
	if len(texts) == 0 {
		return area.SentimentResult{Classification: area.ClassNeutral}, nil
	}

	raw, err := a.client.Generate(ctx, buildSentimentPrompt(source, texts))
	if err != nil {
		return area.SentimentResult{}, fmt.Errorf("sentiment generation: %w", err)
	}

	block, ok := narrative.ExtractJSONBlock(raw)
	if !ok {
		a.logger.Error("unparseable sentiment response",
			zap.String("source", source),
			zap.String("raw_response", raw),
		)
		return area.SentimentResult{}, fmt.Errorf("sentiment response for %s: %w", source, event.ErrSynthesisParse)
	}

	var resp sentimentResponse
	if err := json.Unmarshal([]byte(block), &resp); err != nil {
		a.logger.Error("undecodable sentiment response",
			zap.String("source", source),
			zap.String("raw_response", raw),
		)
		return area.SentimentResult{}, fmt.Errorf("sentiment response for %s: %w", source, event.ErrSynthesisParse)
	}

	score := 0.0
	if resp.Score != nil {
		score = clamp(*resp.Score, -1, 1)
	}

	confidence := 0.5
	if resp.Confidence != nil {
		confidence = clamp(*resp.Confidence, 0, 1)
	}

	keywords := resp.Keywords
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return area.SentimentResult{
		Score:          score,
		Classification: Classify(score),
		Confidence:     confidence,
		Keywords:       keywords,
		Summary:        resp.Summary,
	}, nil
}

func buildSentimentPrompt(source string, texts []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rate the overall public mood of the following %s posts from one area. ", source)
	b.WriteString("Respond with a single JSON object containing: score (-1 to 1), ")
	b.WriteString("classification (positive|neutral|negative), confidence (0 to 1), ")
	b.WriteString("keywords (up to 8 strings), summary (max 100 chars).\n\n")

	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}

	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
