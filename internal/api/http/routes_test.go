package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/met-local-forecast/internal/registry"
	"github.com/i474232898/met-local-forecast/internal/setup"
	"github.com/i474232898/met-local-forecast/internal/store"
	"github.com/i474232898/met-local-forecast/internal/weather/providers"
)

const compactBody = `{"properties":{"timeseries":[{"data":{"instant":{"details":{"air_temperature":5.2,"air_pressure_at_sea_level":1013.0,"relative_humidity":80,"wind_speed":3.1,"wind_from_direction":270}}}}]}}`

// newTestApp wires the routes against a fake met.no endpoint answering status.
func newTestApp(t *testing.T, status int) (*fiber.App, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_, _ = w.Write([]byte(compactBody))
	}))
	t.Cleanup(upstream.Close)

	fetcher := providers.NewMetNoProvider(providers.MetNoConfig{BaseURL: upstream.URL})
	reg := registry.New(fetcher, store.NewMemoryStore())
	flow := setup.NewFlow(fetcher, reg, nil)

	app := fiber.New()
	RegisterRoutes(app, reg, flow)
	return app, &hits
}

func do(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func TestCreateLocationAndReadValues(t *testing.T) {
	app, hits := newTestApp(t, http.StatusOK)

	resp := do(t, app, http.MethodPost, "/api/v1/locations", `{"name":"Oslo","latitude":59.91,"longitude":10.75}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	var created struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an entry id")
	}
	if created.State != "uninitialized" {
		t.Fatalf("expected uninitialized state, got %q", created.State)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/locations/"+created.ID+"/readings", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var body struct {
		Readings []struct {
			Key   string  `json:"key"`
			Unit  string  `json:"unit"`
			Value float64 `json:"value"`
		} `json:"readings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]float64{
		"native_temperature": 5.2,
		"native_pressure":    1013.0,
		"humidity":           80,
		"native_wind_speed":  3.1,
		"wind_bearing":       270,
	}
	if len(body.Readings) != len(want) {
		t.Fatalf("expected %d readings, got %d", len(want), len(body.Readings))
	}
	for _, r := range body.Readings {
		if r.Value != want[r.Key] {
			t.Fatalf("%s: expected %v, got %v", r.Key, want[r.Key], r.Value)
		}
	}

	resp = do(t, app, http.MethodGet, "/api/v1/locations/"+created.ID+"/readings/humidity", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	// One validation call plus one refresh; everything else is cached.
	if n := hits.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
}

func TestCreateLocationNotFound(t *testing.T) {
	app, _ := newTestApp(t, http.StatusNotFound)

	resp := do(t, app, http.MethodPost, "/api/v1/locations", `{"name":"Nowhere","latitude":1,"longitude":2}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/locations", "")
	var list []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no entries, got %d", len(list))
	}
}

func TestCreateLocationValidationAndConflict(t *testing.T) {
	app, _ := newTestApp(t, http.StatusOK)

	resp := do(t, app, http.MethodPost, "/api/v1/locations", `{"name":"","latitude":1,"longitude":2}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	body := `{"name":"Oslo","latitude":59.91,"longitude":10.75}`
	if resp := do(t, app, http.MethodPost, "/api/v1/locations", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	if resp := do(t, app, http.MethodPost, "/api/v1/locations", body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestUnknownLocationAndDelete(t *testing.T) {
	app, _ := newTestApp(t, http.StatusOK)

	if resp := do(t, app, http.MethodGet, "/api/v1/locations/missing/readings", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
	if resp := do(t, app, http.MethodDelete, "/api/v1/locations/missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}

	resp := do(t, app, http.MethodPost, "/api/v1/locations", `{"name":"Oslo","latitude":59.91,"longitude":10.75}`)
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp := do(t, app, http.MethodPost, "/api/v1/locations/"+created.ID+"/refresh", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if resp := do(t, app, http.MethodGet, "/api/v1/locations/"+created.ID+"/readings/dew_point", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
	if resp := do(t, app, http.MethodDelete, "/api/v1/locations/"+created.ID, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if resp := do(t, app, http.MethodGet, "/api/v1/locations/"+created.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}
