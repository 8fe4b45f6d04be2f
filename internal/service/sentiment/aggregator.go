package sentiment

import (
	"citywatch/internal/domain/area"
)

// Classification and trend thresholds.
const (
	positiveThreshold = 0.2
	negativeThreshold = -0.2
	trendDeadband     = 0.1
)

// Classify labels a combined score. Scores within the neutral band of
// (-0.2, 0.2] on the positive side and [-0.2, ...) on the negative side
// stay neutral.
func Classify(score float64) area.Classification {
	switch {
	case score > positiveThreshold:
		return area.ClassPositive
	case score < negativeThreshold:
		return area.ClassNegative
	default:
		return area.ClassNeutral
	}
}

// Aggregate combines the social and citizen-report sentiment for one area
// into a single result. Each source is weighted by its signal count over the
// total plus one; the extra count guards the zero-volume case and pulls the
// combined score toward zero when overall volume is low. Confidence is the
// maximum of the two sub-signals, not an average.
func Aggregate(social, reports area.SentimentResult, socialCount, reportCount int) area.SentimentResult {
	denominator := float64(socialCount + reportCount + 1)
	socialWeight := float64(socialCount) / denominator
	reportWeight := float64(reportCount) / denominator

	score := social.Score*socialWeight + reports.Score*reportWeight

	confidence := social.Confidence
	if reports.Confidence > confidence {
		confidence = reports.Confidence
	}

	keywords := make([]string, 0, len(social.Keywords)+len(reports.Keywords))
	seen := make(map[string]struct{})
	for _, kw := range append(append([]string{}, social.Keywords...), reports.Keywords...) {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	summary := social.Summary
	if summary == "" {
		summary = reports.Summary
	}

	return area.SentimentResult{
		Score:          score,
		Classification: Classify(score),
		Confidence:     confidence,
		Keywords:       keywords,
		Summary:        summary,
	}
}

// Trend compares the current combined score against the area's previous
// score. Movements smaller than the deadband are reported as stable.
func Trend(current, previous float64) area.TrendDirection {
	diff := current - previous
	if diff < trendDeadband && diff > -trendDeadband {
		return area.TrendStable
	}
	if diff > 0 {
		return area.TrendUp
	}
	return area.TrendDown
}
