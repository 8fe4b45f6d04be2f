package area

import (
	"time"

	"citywatch/internal/domain/post"
)

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether the point falls inside the rectangle.
func (b Bounds) Contains(p post.GeoPoint) bool {
	return p.Latitude <= b.North && p.Latitude >= b.South &&
		p.Longitude <= b.East && p.Longitude >= b.West
}

// Definition is a fixed, named geographic rectangle used to bucket reports.
// Definitions are owned by configuration and read-only to the processing layer.
type Definition struct {
	Name   string        `json:"name"`
	Bounds Bounds        `json:"bounds"`
	Center post.GeoPoint `json:"center"`
}

// Classification labels the polarity of a sentiment score.
type Classification string

const (
	ClassPositive Classification = "positive"
	ClassNeutral  Classification = "neutral"
	ClassNegative Classification = "negative"
)

// TrendDirection is the qualitative change versus the previous measurement.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// SentimentResult is one sentiment measurement, either from a single source
// or combined across sources.
type SentimentResult struct {
	Score          float64        `json:"score"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Keywords       []string       `json:"keywords,omitempty"`
	Summary        string         `json:"summary,omitempty"`
}

// SourceCounts breaks down how many signals fed an area measurement.
type SourceCounts struct {
	Social      int `json:"social"`
	UserReports int `json:"user_reports"`
	Civic       int `json:"civic"`
}

// Sentiment is the rolling mood summary for one area.
type Sentiment struct {
	AreaName       string          `json:"area_name"`
	Coordinates    post.GeoPoint   `json:"coordinates"`
	Bounds         Bounds          `json:"bounds"`
	Sentiment      SentimentResult `json:"sentiment"`
	ReportCount    int             `json:"report_count"`
	Sources        SourceCounts    `json:"sources"`
	TrendDirection TrendDirection  `json:"trend_direction"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// Alert types emitted by the evaluator.
const (
	AlertNegativeSentiment = "negative_sentiment"
	AlertSentimentDecline  = "sentiment_decline"
)

// Alert records one threshold rule firing for an area. Repeat qualifying
// sweeps re-emit; suppression is the delivery layer's concern.
type Alert struct {
	ID             string         `json:"id"`
	AreaName       string         `json:"area_name"`
	AlertType      string         `json:"alert_type"`
	Severity       string         `json:"severity"`
	Score          float64        `json:"score"`
	Confidence     float64        `json:"confidence"`
	TrendDirection TrendDirection `json:"trend_direction"`
	TriggeredAt    time.Time      `json:"triggered_at"`
}

// DefaultDefinitions returns the built-in partition of the monitored region.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:   "Downtown",
			Bounds: Bounds{North: 37.7955, South: 37.7749, East: -122.3927, West: -122.4194},
			Center: post.GeoPoint{Latitude: 37.7852, Longitude: -122.4061},
		},
		{
			Name:   "Mission District",
			Bounds: Bounds{North: 37.7699, South: 37.7480, East: -122.4034, West: -122.4286},
			Center: post.GeoPoint{Latitude: 37.7590, Longitude: -122.4160},
		},
		{
			Name:   "SoMa",
			Bounds: Bounds{North: 37.7876, South: 37.7665, East: -122.3891, West: -122.4137},
			Center: post.GeoPoint{Latitude: 37.7770, Longitude: -122.4014},
		},
		{
			Name:   "Richmond District",
			Bounds: Bounds{North: 37.7880, South: 37.7694, East: -122.4458, West: -122.5107},
			Center: post.GeoPoint{Latitude: 37.7787, Longitude: -122.4783},
		},
		{
			Name:   "Sunset District",
			Bounds: Bounds{North: 37.7649, South: 37.7340, East: -122.4458, West: -122.5107},
			Center: post.GeoPoint{Latitude: 37.7494, Longitude: -122.4783},
		},
		{
			Name:   "North Beach",
			Bounds: Bounds{North: 37.8070, South: 37.7955, East: -122.4027, West: -122.4194},
			Center: post.GeoPoint{Latitude: 37.8013, Longitude: -122.4111},
		},
	}
}
