package locate

import (
	"citywatch/internal/domain/event"
	"citywatch/internal/domain/post"
	"citywatch/internal/geo"
)

// Inference tuning constants. Confidence degrades linearly as the farthest
// report moves away from the centroid, bottoming out at the floor once it
// passes the falloff distance.
const (
	singlePostConfidence = 0.5
	singlePostRadius     = 1000.0
	confidenceFloor      = 0.1
	confidenceFalloff    = 5000.0
	radiusSpreadFactor   = 1.5
	minRadiusMeters      = 500.0
)

// Infer computes a representative center, confidence score, and affected
// radius from the located posts in a cluster. Posts without coordinates are
// ignored; if none carry a location, event.ErrNoLocationData is returned.
func Infer(posts []post.Post) (event.LocationEstimate, error) {
	var points []post.GeoPoint
	for _, p := range posts {
		if p.HasLocation() {
			points = append(points, *p.Location)
		}
	}

	if len(points) == 0 {
		return event.LocationEstimate{}, event.ErrNoLocationData
	}

	if len(points) == 1 {
		return event.LocationEstimate{
			Center:          points[0],
			ConfidenceScore: singlePostConfidence,
			RadiusMeters:    singlePostRadius,
		}, nil
	}

	center, _ := geo.Centroid(points)

	var total, max float64
	for _, p := range points {
		d := geo.Distance(center, p)
		total += d
		if d > max {
			max = d
		}
	}
	avg := total / float64(len(points))

	confidence := 1 - max/confidenceFalloff
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}

	radius := avg * radiusSpreadFactor
	if radius < minRadiusMeters {
		radius = minRadiusMeters
	}

	return event.LocationEstimate{
		Center:          center,
		ConfidenceScore: confidence,
		RadiusMeters:    radius,
	}, nil
}
