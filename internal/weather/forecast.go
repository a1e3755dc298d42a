package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// RefreshInterval is how long a fetched payload is served before the next
// EnsureFresh goes back to the network.
const RefreshInterval = 300 * time.Second

// fetchTimeout bounds a shared fetch, which no single caller's context owns.
const fetchTimeout = 30 * time.Second

// snapshot pairs a payload with the time it was fetched. It is replaced as a
// whole so readers never see one without the other.
type snapshot struct {
	payload   *Payload
	updatedAt time.Time
}

// LocationForecast owns the cached forecast for one configured location.
type LocationForecast struct {
	name    string
	coords  Coordinates
	fetcher Fetcher

	mu   sync.RWMutex
	snap *snapshot

	flight singleflight.Group
	now    func() time.Time

	fetches  atomic.Int64
	failures atomic.Int64
}

// NewLocationForecast creates a forecast for name at coords. Nothing is
// fetched until the first EnsureFresh.
func NewLocationForecast(name string, coords Coordinates, fetcher Fetcher) *LocationForecast {
	return &LocationForecast{
		name:    name,
		coords:  coords,
		fetcher: fetcher,
		now:     time.Now,
	}
}

// Name returns the location name.
func (f *LocationForecast) Name() string {
	return f.name
}

// Coordinates returns the location's coordinates.
func (f *LocationForecast) Coordinates() Coordinates {
	return f.coords
}

func (f *LocationForecast) current() *snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snap
}

func (f *LocationForecast) needsRefresh() bool {
	s := f.current()
	return s == nil || f.now().Sub(s.updatedAt) > RefreshInterval
}

// EnsureFresh fetches a new payload when none has been fetched yet or the
// cached one is older than RefreshInterval. A failed fetch leaves the cached
// payload and its timestamp untouched, so the next call tries again.
// Concurrent callers share a single in-flight fetch; each stops waiting when
// its own ctx is done, without canceling the fetch for the others.
func (f *LocationForecast) EnsureFresh(ctx context.Context) error {
	if !f.needsRefresh() {
		return nil
	}

	ch := f.flight.DoChan("refresh", func() (interface{}, error) {
		// Another flight may have completed between the check above and now.
		if !f.needsRefresh() {
			return nil, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		f.fetches.Inc()
		payload, err := f.fetcher.FetchForecast(fetchCtx, f.coords)
		if err != nil {
			f.failures.Inc()
			return nil, fmt.Errorf("refresh %s: %w", f.name, err)
		}

		f.mu.Lock()
		f.snap = &snapshot{payload: payload, updatedAt: f.now()}
		f.mu.Unlock()

		log.Printf("INFO: %s updated", f.name)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("refresh %s: %w", f.name, ctx.Err())
	}
}

// ReadMetric projects key out of the first timeseries entry of the cached
// payload. It returns NotReady when nothing has been fetched yet.
func (f *LocationForecast) ReadMetric(key MetricKey) (Result, error) {
	s := f.current()
	if s == nil {
		return NotReady(), nil
	}
	v, err := project(s.payload, key)
	if err != nil {
		return NotReady(), err
	}
	return Ready(v), nil
}

// State reports whether the forecast is uninitialized, fresh or stale.
func (f *LocationForecast) State() State {
	s := f.current()
	switch {
	case s == nil:
		return StateUninitialized
	case f.now().Sub(s.updatedAt) > RefreshInterval:
		return StateStale
	default:
		return StateFresh
	}
}

// UpdatedAt returns the time of the last successful fetch, or the zero time.
func (f *LocationForecast) UpdatedAt() time.Time {
	if s := f.current(); s != nil {
		return s.updatedAt
	}
	return time.Time{}
}

// Stats returns the fetch counters for this location.
func (f *LocationForecast) Stats() Stats {
	return Stats{
		Fetches:  f.fetches.Load(),
		Failures: f.failures.Load(),
	}
}
