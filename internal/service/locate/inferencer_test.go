package locate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citywatch/internal/domain/event"
	"citywatch/internal/domain/post"
	"citywatch/internal/geo"
)

func located(lat, lon float64) post.Post {
	return post.Post{
		ID:        "p",
		Text:      "report",
		Timestamp: time.Now(),
		Location:  &post.GeoPoint{Latitude: lat, Longitude: lon},
	}
}

func TestInferNoLocatedPosts(t *testing.T) {
	posts := []post.Post{
		{ID: "a", Text: "no coords here"},
		{ID: "b", Text: "none here either"},
	}

	_, err := Infer(posts)
	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrNoLocationData)
}

func TestInferEmptyInput(t *testing.T) {
	_, err := Infer(nil)
	assert.ErrorIs(t, err, event.ErrNoLocationData)
}

func TestInferSinglePost(t *testing.T) {
	est, err := Infer([]post.Post{located(37.7749, -122.4194)})
	require.NoError(t, err)

	assert.Equal(t, 0.5, est.ConfidenceScore)
	assert.Equal(t, 1000.0, est.RadiusMeters)
	assert.Equal(t, post.GeoPoint{Latitude: 37.7749, Longitude: -122.4194}, est.Center)
}

func TestInferIgnoresUnlocatedPosts(t *testing.T) {
	posts := []post.Post{
		{ID: "a", Text: "unlocated"},
		located(37.7749, -122.4194),
	}

	est, err := Infer(posts)
	require.NoError(t, err)
	assert.Equal(t, 0.5, est.ConfidenceScore)
	assert.Equal(t, 1000.0, est.RadiusMeters)
}

func TestInferCoLocatedPosts(t *testing.T) {
	posts := []post.Post{
		located(37.7749, -122.4194),
		located(37.7749, -122.4194),
		located(37.7749, -122.4194),
	}

	est, err := Infer(posts)
	require.NoError(t, err)

	// Zero spread: full confidence, floor radius.
	assert.Equal(t, 1.0, est.ConfidenceScore)
	assert.Equal(t, 500.0, est.RadiusMeters)
	assert.Equal(t, post.GeoPoint{Latitude: 37.7749, Longitude: -122.4194}, est.Center)
}

func TestInferSpreadDegradesConfidence(t *testing.T) {
	// Two points ~2.2 km apart; each sits ~1.1 km from the centroid.
	a := located(37.7749, -122.4194)
	b := located(37.7949, -122.4194)

	est, err := Infer([]post.Post{a, b})
	require.NoError(t, err)

	center := post.GeoPoint{Latitude: 37.7849, Longitude: -122.4194}
	assert.InDelta(t, center.Latitude, est.Center.Latitude, 1e-9)

	maxDist := geo.Distance(center, *b.Location)
	assert.InDelta(t, 1-maxDist/5000, est.ConfidenceScore, 1e-9)
	assert.Greater(t, est.ConfidenceScore, 0.7)

	// Both points equidistant from the centroid, so avg == max.
	assert.InDelta(t, maxDist*1.5, est.RadiusMeters, 1e-9)
}

func TestInferFarOutlierHitsConfidenceFloor(t *testing.T) {
	// ~22 km apart: the farthest point is well past the 5 km falloff.
	posts := []post.Post{
		located(37.70, -122.4194),
		located(37.90, -122.4194),
	}

	est, err := Infer(posts)
	require.NoError(t, err)
	assert.Equal(t, 0.1, est.ConfidenceScore)
}

func TestInferConfidenceNeverNegative(t *testing.T) {
	posts := []post.Post{
		located(37.0, -122.0),
		located(38.0, -123.0),
	}

	est, err := Infer(posts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, est.ConfidenceScore, 0.1)
	assert.LessOrEqual(t, est.ConfidenceScore, 1.0)
}
