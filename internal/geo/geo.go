package geo

import (
	"math"

	"citywatch/internal/domain/post"
)

const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between two points in meters,
// using the haversine formula.
func Distance(a, b post.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180.0
	lon1 := a.Longitude * math.Pi / 180.0
	lat2 := b.Latitude * math.Pi / 180.0
	lon2 := b.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// BoundsOf returns the minimal lat/lon rectangle covering the points.
// Returns false when the slice is empty.
func BoundsOf(points []post.GeoPoint) (north, south, east, west float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, 0, 0, false
	}

	north, south = points[0].Latitude, points[0].Latitude
	east, west = points[0].Longitude, points[0].Longitude

	for _, p := range points[1:] {
		north = math.Max(north, p.Latitude)
		south = math.Min(south, p.Latitude)
		east = math.Max(east, p.Longitude)
		west = math.Min(west, p.Longitude)
	}

	return north, south, east, west, true
}

// Centroid returns a representative center for the points: the midpoint of
// their bounding rectangle. Bounds-based rather than a coordinate mean so a
// single far outlier shifts the center no further than half the box growth.
// Returns false when the slice is empty.
func Centroid(points []post.GeoPoint) (post.GeoPoint, bool) {
	north, south, east, west, ok := BoundsOf(points)
	if !ok {
		return post.GeoPoint{}, false
	}

	return post.GeoPoint{
		Latitude:  (north + south) / 2,
		Longitude: (east + west) / 2,
	}, true
}
