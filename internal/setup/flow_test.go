package setup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/i474232898/met-local-forecast/internal/registry"
	"github.com/i474232898/met-local-forecast/internal/store"
	"github.com/i474232898/met-local-forecast/internal/weather"
	"github.com/i474232898/met-local-forecast/internal/weather/providers"
)

type stubFetcher struct {
	err   error
	calls int
}

func (s *stubFetcher) FetchForecast(ctx context.Context, coords weather.Coordinates) (*weather.Payload, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &weather.Payload{}, nil
}

type stubResolver struct {
	coords weather.Coordinates
	err    error
}

func (s stubResolver) Resolve(ctx context.Context, city, country string) (weather.Coordinates, error) {
	return s.coords, s.err
}

func ptr(v float64) *float64 { return &v }

func newFlow(fetcher weather.Fetcher, resolver Resolver) (*Flow, *registry.Registry, *store.MemoryStore) {
	st := store.NewMemoryStore()
	reg := registry.New(fetcher, st)
	return NewFlow(fetcher, reg, resolver), reg, st
}

func TestSubmitCreatesEntry(t *testing.T) {
	fetcher := &stubFetcher{}
	flow, reg, st := newFlow(fetcher, nil)

	loc, err := flow.Submit(context.Background(), Input{Name: " Oslo ", Latitude: ptr(59.91), Longitude: ptr(10.75)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Entry.Name != "Oslo" {
		t.Fatalf("expected trimmed name Oslo, got %q", loc.Entry.Name)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly 1 validation fetch, got %d", fetcher.calls)
	}
	if len(reg.List()) != 1 {
		t.Fatalf("expected 1 registered location, got %d", len(reg.List()))
	}
	if entries, _ := st.List(context.Background()); len(entries) != 1 {
		t.Fatalf("expected 1 stored entry, got %d", len(entries))
	}
}

func TestSubmitRemote404IsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := providers.NewMetNoProvider(providers.MetNoConfig{BaseURL: srv.URL})
	flow, reg, st := newFlow(fetcher, nil)

	_, err := flow.Submit(context.Background(), Input{Name: "Nowhere", Latitude: ptr(89.9), Longitude: ptr(179.9)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if Code(err) != CodeNotFound {
		t.Fatalf("expected code %q, got %q", CodeNotFound, Code(err))
	}
	if len(reg.List()) != 0 {
		t.Fatal("no location should be registered after not found")
	}
	if entries, _ := st.List(context.Background()); len(entries) != 0 {
		t.Fatal("no entry should be stored after not found")
	}
}

func TestSubmitTransportErrorIsUnknown(t *testing.T) {
	flow, reg, _ := newFlow(&stubFetcher{err: errors.New("dial tcp: connection refused")}, nil)

	_, err := flow.Submit(context.Background(), Input{Name: "Oslo", Latitude: ptr(59.91), Longitude: ptr(10.75)})
	if Code(err) != CodeUnknown {
		t.Fatalf("expected code %q, got %q (%v)", CodeUnknown, Code(err), err)
	}
	if len(reg.List()) != 0 {
		t.Fatal("no location should be registered after an unknown error")
	}
}

func TestSubmitAlreadyConfigured(t *testing.T) {
	flow, _, _ := newFlow(&stubFetcher{}, nil)
	in := Input{Name: "Oslo", Latitude: ptr(59.91), Longitude: ptr(10.75)}

	if _, err := flow.Submit(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in.Name = "Oslo 2"
	_, err := flow.Submit(context.Background(), in)
	if Code(err) != CodeAlreadyConfigured {
		t.Fatalf("expected code %q, got %q (%v)", CodeAlreadyConfigured, Code(err), err)
	}
}

func TestSubmitInvalidInput(t *testing.T) {
	fetcher := &stubFetcher{}
	flow, _, _ := newFlow(fetcher, nil)

	cases := []Input{
		{Latitude: ptr(59.91), Longitude: ptr(10.75)},
		{Name: "Pole", Latitude: ptr(91), Longitude: ptr(0)},
		{Name: "Dateline", Latitude: ptr(0), Longitude: ptr(-181)},
		{Name: "Half", Latitude: ptr(10)},
		{Name: "Half with city", Longitude: ptr(10), City: "Oslo"},
		{Name: "City without geocoder", City: "Oslo"},
	}
	for _, in := range cases {
		_, err := flow.Submit(context.Background(), in)
		if Code(err) != CodeInvalidInput {
			t.Fatalf("%+v: expected code %q, got %q (%v)", in, CodeInvalidInput, Code(err), err)
		}
	}
	if fetcher.calls != 0 {
		t.Fatalf("invalid input must not reach the remote, got %d calls", fetcher.calls)
	}
}

func TestSubmitGeocodesCity(t *testing.T) {
	fetcher := &stubFetcher{}
	flow, _, _ := newFlow(fetcher, stubResolver{coords: weather.Coordinates{Latitude: 60.39, Longitude: 5.32}})

	loc, err := flow.Submit(context.Background(), Input{Name: "Bergen", City: "Bergen", Country: "Norway"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Entry.Latitude != 60.39 || loc.Entry.Longitude != 5.32 {
		t.Fatalf("unexpected coordinates: %+v", loc.Entry)
	}

	flow, _, _ = newFlow(fetcher, stubResolver{err: fmt.Errorf("%w: ZERO_RESULTS", weather.ErrLocationNotFound)})
	_, err = flow.Submit(context.Background(), Input{Name: "Atlantis", City: "Atlantis"})
	if Code(err) != CodeNotFound {
		t.Fatalf("expected code %q, got %q (%v)", CodeNotFound, Code(err), err)
	}

	flow, _, _ = newFlow(fetcher, stubResolver{err: errors.New("dial tcp: i/o timeout")})
	_, err = flow.Submit(context.Background(), Input{Name: "Bergen", City: "Bergen"})
	if Code(err) != CodeUnknown {
		t.Fatalf("expected code %q, got %q (%v)", CodeUnknown, Code(err), err)
	}
}

func TestSubmitHalfCoordinatesWithResolver(t *testing.T) {
	fetcher := &stubFetcher{}
	flow, _, _ := newFlow(fetcher, stubResolver{coords: weather.Coordinates{Latitude: 60.39, Longitude: 5.32}})

	_, err := flow.Submit(context.Background(), Input{Name: "Bergen", Latitude: ptr(60.39), City: "Bergen"})
	if Code(err) != CodeInvalidInput {
		t.Fatalf("expected code %q, got %q (%v)", CodeInvalidInput, Code(err), err)
	}
	if fetcher.calls != 0 {
		t.Fatalf("invalid input must not reach the remote, got %d calls", fetcher.calls)
	}
}
