package post

import (
	"context"
	"time"
)

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Engagement holds interaction counts reported by the source platform.
type Engagement struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
}

// Post is a single first-person signal about a real-world incident.
// Posts are immutable once ingested; the processing layer only reads them.
type Post struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	Location   *GeoPoint  `json:"location,omitempty"`
	Source     string     `json:"source"`
	Engagement Engagement `json:"engagement"`
}

// HasLocation reports whether the post carries coordinates.
func (p Post) HasLocation() bool {
	return p.Location != nil
}

// Filter defines criteria for querying stored posts.
type Filter struct {
	Since time.Time
	Until time.Time
	North float64
	South float64
	East  float64
	West  float64
	// Bounded indicates the rectangle fields are set.
	Bounded bool
	Limit   int
}

// Source defines a platform that can deliver recent posts.
type Source interface {
	// Name returns the platform tag recorded on posts from this source.
	Name() string

	// FetchRecent returns posts published since the given time.
	FetchRecent(ctx context.Context, since time.Time) ([]Post, error)
}
