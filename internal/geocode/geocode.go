// Package geocode resolves a place name to coordinates through the Google
// Geocoding API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/met-local-forecast/internal/weather"
)

var errNoAPIKey = errors.New("geocoder api key is not configured")

// apiKeyMu guards the package-level key the geocoder library reads.
var apiKeyMu sync.Mutex

// Google resolves places with github.com/kelvins/geocoder.
type Google struct {
	apiKey string
}

// NewGoogle returns a resolver using apiKey.
func NewGoogle(apiKey string) *Google {
	return &Google{apiKey: apiKey}
}

// Resolve returns the coordinates of city in country. A place the API has
// no results for is reported as weather.ErrLocationNotFound; any other
// failure is returned as is.
func (g *Google) Resolve(ctx context.Context, city, country string) (weather.Coordinates, error) {
	if g.apiKey == "" {
		return weather.Coordinates{}, errNoAPIKey
	}
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, err
	}

	apiKeyMu.Lock()
	defer apiKeyMu.Unlock()
	geocoder.ApiKey = g.apiKey

	loc, err := geocoder.Geocoding(geocoder.Address{
		City:    city,
		Country: country,
	})
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("geocode %s,%s: %w", city, country, classify(err))
	}
	return weather.Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
}

// classify marks the API's ZERO_RESULTS status as a missing place.
func classify(err error) error {
	if strings.Contains(err.Error(), "ZERO_RESULTS") {
		return fmt.Errorf("%w: %v", weather.ErrLocationNotFound, err)
	}
	return err
}
