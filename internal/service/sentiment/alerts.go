package sentiment

import (
	"time"

	"github.com/google/uuid"

	"citywatch/internal/domain/area"
)

// Alert rule thresholds.
const (
	negativeSentimentScore      = -0.7
	negativeSentimentConfidence = 0.8
	sentimentDeclineScore       = -0.5
)

// EvaluateAlerts scans a completed sweep and emits a record for every rule
// that fires. The two rules are independent and can both fire for the same
// area. No de-duplication across sweeps happens here; a qualifying area
// re-emits every sweep and suppression belongs to the delivery layer.
func EvaluateAlerts(results []area.Sentiment, now time.Time) []area.Alert {
	var alerts []area.Alert

	for _, r := range results {
		if r.Sentiment.Score < negativeSentimentScore && r.Sentiment.Confidence > negativeSentimentConfidence {
			alerts = append(alerts, area.Alert{
				ID:             uuid.New().String(),
				AreaName:       r.AreaName,
				AlertType:      area.AlertNegativeSentiment,
				Severity:       "high",
				Score:          r.Sentiment.Score,
				Confidence:     r.Sentiment.Confidence,
				TrendDirection: r.TrendDirection,
				TriggeredAt:    now,
			})
		}

		if r.TrendDirection == area.TrendDown && r.Sentiment.Score < sentimentDeclineScore {
			alerts = append(alerts, area.Alert{
				ID:             uuid.New().String(),
				AreaName:       r.AreaName,
				AlertType:      area.AlertSentimentDecline,
				Severity:       "medium",
				Score:          r.Sentiment.Score,
				Confidence:     r.Sentiment.Confidence,
				TrendDirection: r.TrendDirection,
				TriggeredAt:    now,
			})
		}
	}

	return alerts
}
