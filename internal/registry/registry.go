package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/met-local-forecast/internal/weather"
)

var (
	// ErrNotFound is returned when no entry exists for an id.
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyConfigured is returned when an entry for the same
	// coordinates already exists.
	ErrAlreadyConfigured = errors.New("location already configured")
)

// Entry is one configured location.
type Entry struct {
	ID        string    `json:"id"`
	UniqueID  string    `json:"unique_id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntry builds an entry with a fresh id and the coordinate-derived unique id.
func NewEntry(name string, coords weather.Coordinates) Entry {
	return Entry{
		ID:        uuid.NewString(),
		UniqueID:  coords.Key(),
		Name:      name,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
		CreatedAt: time.Now().UTC(),
	}
}

// Coordinates returns the entry's point location.
func (e Entry) Coordinates() weather.Coordinates {
	return weather.Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}
}

// Store persists entries across restarts.
type Store interface {
	Save(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Entry, error)
}

// Location is a live entry: its forecast and the readings bound to it.
type Location struct {
	Entry    Entry
	Forecast *weather.LocationForecast
	Readings []*weather.Reading
}

// Listener is notified when locations come and go.
type Listener interface {
	LocationAdded(loc *Location)
	LocationRemoved(loc *Location)
}

// Registry maps entries to live locations sharing one Fetcher.
type Registry struct {
	fetcher weather.Fetcher
	store   Store

	writeMu   sync.Mutex // serializes Add and Remove
	mu        sync.RWMutex
	locations map[string]*Location
	listeners []Listener
}

// New creates a Registry. All locations fetch through fetcher.
func New(fetcher weather.Fetcher, store Store) *Registry {
	return &Registry{
		fetcher:   fetcher,
		store:     store,
		locations: make(map[string]*Location),
	}
}

// Subscribe registers l for add/remove notifications.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Load materializes every stored entry.
func (r *Registry) Load(ctx context.Context) error {
	entries, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	for _, e := range entries {
		r.setup(e)
	}
	log.Printf("INFO: registry loaded %d entries", len(entries))
	return nil
}

// Add persists e and sets up its location.
func (r *Registry) Add(ctx context.Context, e Entry) (*Location, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.HasUniqueID(e.UniqueID) {
		return nil, ErrAlreadyConfigured
	}
	if err := r.store.Save(ctx, e); err != nil {
		return nil, fmt.Errorf("save entry: %w", err)
	}
	return r.setup(e), nil
}

func (r *Registry) setup(e Entry) *Location {
	forecast := weather.NewLocationForecast(e.Name, e.Coordinates(), r.fetcher)

	descs := weather.DefaultDescriptions()
	readings := make([]*weather.Reading, 0, len(descs))
	for _, d := range descs {
		readings = append(readings, weather.NewReading(forecast, d))
	}

	loc := &Location{Entry: e, Forecast: forecast, Readings: readings}

	r.mu.Lock()
	r.locations[e.ID] = loc
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	log.Printf("INFO: adding %d readings for %s", len(readings), e.Name)
	for _, l := range listeners {
		l.LocationAdded(loc)
	}
	return loc
}

// Remove deletes the entry with id and then unloads its location. If the
// delete fails the location stays live.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, err := r.Get(id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	r.mu.Lock()
	loc := r.locations[id]
	delete(r.locations, id)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l.LocationRemoved(loc)
	}
	return nil
}

// Get returns the live location for id.
func (r *Registry) Get(id string) (*Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return loc, nil
}

// List returns all live locations ordered by creation time.
func (r *Registry) List() []*Location {
	r.mu.RLock()
	out := make([]*Location, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, loc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Entry.CreatedAt.Before(out[j].Entry.CreatedAt)
	})
	return out
}

// HasUniqueID reports whether a location with uid is configured.
func (r *Registry) HasUniqueID(uid string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, loc := range r.locations {
		if loc.Entry.UniqueID == uid {
			return true
		}
	}
	return false
}
