package synthesize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/narrative"
	"citywatch/internal/domain/post"
	"citywatch/internal/service/locate"
)

const (
	maxTitleLen   = 80
	maxSummaryLen = 300

	defaultEventType  = event.TypeEmergency
	defaultSeverity   = event.SeverityMedium
	defaultConfidence = 0.7
)

// Synthesizer builds one structured event per duplicate cluster by combining
// location inference with the external narrative service.
type Synthesizer struct {
	client narrative.Client
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer using the given narrative client.
func NewSynthesizer(client narrative.Client, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		client: client,
		logger: logger,
	}
}

// Synthesize builds a SynthesizedEvent from a cluster of posts and its
// duplicate-group breakdown. Callers only submit batches of 3 or more posts;
// smaller batches are noise and are never synthesized.
//
// Structural failures (no JSON in the response, no located posts) are fatal
// to this call. Content failures inside the parsed JSON degrade to defaults.
func (s *Synthesizer) Synthesize(ctx context.Context, posts []post.Post, groups []event.DuplicateGroup) (event.SynthesizedEvent, error) {
	estimate, err := locate.Infer(posts)
	if err != nil {
		return event.SynthesizedEvent{}, fmt.Errorf("inferring cluster location: %w", err)
	}

	prompt := buildPrompt(posts, groups)

	raw, err := s.client.Generate(ctx, prompt)
	if err != nil {
		return event.SynthesizedEvent{}, fmt.Errorf("narrative generation: %w", err)
	}

	resp, err := parseResponse(raw)
	if err != nil {
		s.logger.Error("unparseable narrative response",
			zap.Int("post_count", len(posts)),
			zap.String("raw_response", raw),
		)
		return event.SynthesizedEvent{}, err
	}

	modelConfidence := defaultConfidence
	if resp.Confidence != nil {
		modelConfidence = clamp(*resp.Confidence, 0, 1)
	}

	// The weaker signal caps the combined score.
	confidence := modelConfidence
	if estimate.ConfidenceScore < confidence {
		confidence = estimate.ConfidenceScore
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	return event.SynthesizedEvent{
		ID:                uuid.New().String(),
		Title:             truncate(resp.Title, maxTitleLen),
		Summary:           truncate(resp.Summary, maxSummaryLen),
		SuggestedAction:   resp.SuggestedAction,
		EventType:         normalizeEventType(resp.EventType),
		Severity:          normalizeSeverity(resp.Severity),
		Confidence:        confidence,
		Location:          estimate.Center,
		AffectedRadius:    estimate.RadiusMeters,
		EstimatedDuration: resp.EstimatedDuration,
		KeyInsights:       resp.KeyInsights,
		SourcePostIDs:     ids,
		DuplicateGroups:   groups,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// buildPrompt enumerates each post and the duplicate-group breakdown for the
// narrative service.
func buildPrompt(posts []post.Post, groups []event.DuplicateGroup) string {
	var b strings.Builder

	b.WriteString("Analyze the following citizen reports about a possible real-world incident ")
	b.WriteString("and respond with a single JSON object containing: title (max 80 chars), ")
	b.WriteString("summary (max 300 chars), suggestedAction, eventType (emergency|traffic|infrastructure|weather|crime|community|other), ")
	b.WriteString("severity (low|medium|high|critical), confidence (0-1), estimatedDuration, keyInsights (array of strings).\n\n")
	b.WriteString("Reports:\n")

	for i, p := range posts {
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, p.Source, p.Timestamp.UTC().Format(time.RFC3339), p.Text)
	}

	if len(groups) > 0 {
		b.WriteString("\nDuplicate groups (reports describing the same occurrence):\n")
		for i, g := range groups {
			fmt.Fprintf(&b, "group %d: %s\n", i+1, strings.Join(g, ", "))
		}
	}

	return b.String()
}

func normalizeEventType(raw string) event.EventType {
	if raw == "" {
		return defaultEventType
	}
	t := event.EventType(strings.ToLower(strings.TrimSpace(raw)))
	if !event.ValidEventType(t) {
		return event.TypeOther
	}
	return t
}

func normalizeSeverity(raw string) event.Severity {
	s := event.Severity(strings.ToLower(strings.TrimSpace(raw)))
	if !event.ValidSeverity(s) {
		return defaultSeverity
	}
	return s
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

// truncate limits s to max characters. Limits are in runes, not bytes, so
// multi-byte text never ends up cut mid-rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
