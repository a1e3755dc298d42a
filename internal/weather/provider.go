package weather

import (
	"context"
	"errors"
)

var (
	// ErrLocationNotFound is returned by a Fetcher when the remote endpoint
	// answers with anything other than a success status.
	ErrLocationNotFound = errors.New("location not found")

	// ErrUnknownMetric is returned when a metric key has no projection.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrMissingValue is returned when the cached payload lacks the value
	// a metric projects to.
	ErrMissingValue = errors.New("value missing from forecast")
)

// Fetcher abstracts the remote forecast call (e.g. met.no Locationforecast).
type Fetcher interface {
	FetchForecast(ctx context.Context, coords Coordinates) (*Payload, error)
}
