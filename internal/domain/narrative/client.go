package narrative

import (
	"context"
	"errors"
)

// ErrUnavailable indicates a transport or API failure talking to the
// text-generation service. It is propagated, never retried here.
var ErrUnavailable = errors.New("narrative service unavailable")

// Client is the external text-generation collaborator. It accepts a prompt
// and returns free text expected to contain exactly one JSON object; callers
// locate and parse that object themselves.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Geocoder resolves human-readable address context for coordinates. It is
// invoked after location inference, never as part of it.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (address, city, state, country string, err error)
}

// NopGeocoder is a Geocoder that resolves nothing. Used when no geocoding
// backend is configured.
type NopGeocoder struct{}

// ReverseGeocode returns empty address context.
func (NopGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, string, string, string, error) {
	return "", "", "", "", nil
}
