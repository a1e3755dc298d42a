// Package setup validates a new location before it becomes a config entry.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/met-local-forecast/internal/registry"
	"github.com/i474232898/met-local-forecast/internal/weather"
)

// Error codes reported back to whoever drives the flow.
const (
	CodeInvalidInput      = "invalid_input"
	CodeNotFound          = "not_found"
	CodeUnknown           = "unknown"
	CodeAlreadyConfigured = "already_configured"
)

var (
	ErrInvalidInput = errors.New(CodeInvalidInput)
	ErrNotFound     = errors.New(CodeNotFound)
	ErrUnknown      = errors.New(CodeUnknown)
)

var validate = validator.New()

// Input is what a user submits to configure a location. Either both
// coordinates or a city (resolved through the geocoder) must be given.
type Input struct {
	Name      string   `json:"name" validate:"required,max=64"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	City      string   `json:"city" validate:"omitempty,max=128"`
	Country   string   `json:"country" validate:"omitempty,max=64"`
}

// Resolver turns a place name into coordinates. It reports a place that
// does not exist by wrapping weather.ErrLocationNotFound.
type Resolver interface {
	Resolve(ctx context.Context, city, country string) (weather.Coordinates, error)
}

// Flow performs one validation fetch and, on success, registers the entry.
type Flow struct {
	fetcher  weather.Fetcher
	registry *registry.Registry
	resolver Resolver
}

// NewFlow creates a Flow. resolver may be nil, in which case coordinates
// are mandatory.
func NewFlow(fetcher weather.Fetcher, reg *registry.Registry, resolver Resolver) *Flow {
	return &Flow{fetcher: fetcher, registry: reg, resolver: resolver}
}

// Submit validates in and creates a config entry for it. The returned error
// maps to one of the Code constants through Code.
func (f *Flow) Submit(ctx context.Context, in Input) (*registry.Location, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	coords, err := f.coordinates(ctx, in)
	if err != nil {
		return nil, err
	}

	if _, err := f.fetcher.FetchForecast(ctx, coords); err != nil {
		if errors.Is(err, weather.ErrLocationNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		log.Printf("ERROR: setup: unexpected error validating %s: %v", in.Name, err)
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	loc, err := f.registry.Add(ctx, registry.NewEntry(in.Name, coords))
	if err != nil {
		if errors.Is(err, registry.ErrAlreadyConfigured) {
			return nil, err
		}
		log.Printf("ERROR: setup: could not store %s: %v", in.Name, err)
		return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	log.Printf("INFO: setup: configured %s at %s", in.Name, coords.Key())
	return loc, nil
}

func (f *Flow) coordinates(ctx context.Context, in Input) (weather.Coordinates, error) {
	switch {
	case in.Latitude != nil && in.Longitude != nil:
		return weather.Coordinates{Latitude: *in.Latitude, Longitude: *in.Longitude}, nil
	case in.Latitude != nil || in.Longitude != nil:
		return weather.Coordinates{}, fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidInput)
	case in.City == "":
		return weather.Coordinates{}, fmt.Errorf("%w: latitude and longitude are required", ErrInvalidInput)
	case f.resolver == nil:
		return weather.Coordinates{}, fmt.Errorf("%w: geocoding is not configured; latitude and longitude are required", ErrInvalidInput)
	}

	coords, err := f.resolver.Resolve(ctx, in.City, in.Country)
	if err != nil {
		if errors.Is(err, weather.ErrLocationNotFound) {
			return weather.Coordinates{}, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		log.Printf("ERROR: setup: geocoding %s failed: %v", in.City, err)
		return weather.Coordinates{}, fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	return coords, nil
}

// Code returns the error code for an error returned by Submit, or "" for nil.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, registry.ErrAlreadyConfigured):
		return CodeAlreadyConfigured
	default:
		return CodeUnknown
	}
}
