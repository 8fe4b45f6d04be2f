package event

import (
	"errors"
	"time"

	"citywatch/internal/domain/post"
)

// EventType categorizes a synthesized event.
type EventType string

const (
	TypeEmergency      EventType = "emergency"
	TypeTraffic        EventType = "traffic"
	TypeInfrastructure EventType = "infrastructure"
	TypeWeather        EventType = "weather"
	TypeCrime          EventType = "crime"
	TypeCommunity      EventType = "community"
	TypeOther          EventType = "other"
)

// Severity ranks how serious an event is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidEventType reports whether t is a known event type.
func ValidEventType(t EventType) bool {
	switch t {
	case TypeEmergency, TypeTraffic, TypeInfrastructure, TypeWeather, TypeCrime, TypeCommunity, TypeOther:
		return true
	}
	return false
}

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// DuplicateGroup is an ordered list of post ids judged to describe the same
// real-world occurrence. Each id appears in at most one group per detection run.
type DuplicateGroup []string

// LocationEstimate is the inferred geographic footprint of a cluster.
type LocationEstimate struct {
	Center          post.GeoPoint `json:"center"`
	ConfidenceScore float64       `json:"confidence_score"`
	RadiusMeters    float64       `json:"radius_meters"`
}

// Address holds reverse-geocoded context for an event location.
type Address struct {
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// SynthesizedEvent is one de-duplicated, geolocated, severity-ranked event
// built from a cluster of posts.
type SynthesizedEvent struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Summary           string           `json:"summary"`
	SuggestedAction   string           `json:"suggested_action"`
	EventType         EventType        `json:"event_type"`
	Severity          Severity         `json:"severity"`
	Confidence        float64          `json:"confidence"`
	Location          post.GeoPoint    `json:"location"`
	Address           Address          `json:"address"`
	AffectedRadius    float64          `json:"affected_radius"`
	EstimatedDuration string           `json:"estimated_duration,omitempty"`
	KeyInsights       []string         `json:"key_insights,omitempty"`
	SourcePostIDs     []string         `json:"source_post_ids"`
	DuplicateGroups   []DuplicateGroup `json:"duplicate_groups"`
	CreatedAt         time.Time        `json:"created_at"`
}

// Sentinel errors for the processing pipeline.
var (
	// ErrNoLocationData indicates that no post in a cluster carried coordinates,
	// so no location estimate can be inferred.
	ErrNoLocationData = errors.New("no location data in posts")

	// ErrSynthesisParse indicates the narrative response contained no parseable
	// JSON object. The raw response is logged by the caller for diagnosis.
	ErrSynthesisParse = errors.New("no parseable JSON in narrative response")
)
