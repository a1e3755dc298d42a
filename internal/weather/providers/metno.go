package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/met-local-forecast/internal/weather"
)

const (
	// DefaultBaseURL is the Locationforecast 2.0 API root.
	DefaultBaseURL = "https://api.met.no/weatherapi/locationforecast/2.0"

	// DefaultUserAgent identifies this client to met.no, which rejects
	// anonymous requests.
	DefaultUserAgent = "met-local-forecast github.com/i474232898/met-local-forecast"

	compactEndpoint = "/compact"
)

// MetNoConfig configures the met.no client.
type MetNoConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Limit     LimitConfig
}

// MetNoProvider implements weather.Fetcher against met.no Locationforecast.
type MetNoProvider struct {
	client  *resty.Client
	limiter *rate.Limiter

	mu sync.Mutex
	// key: coordinates key
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewMetNoProvider creates a client that issues one GET per FetchForecast.
func NewMetNoProvider(cfg MetNoConfig) *MetNoProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &MetNoProvider{
		client:   client,
		limiter:  newLimiter(cfg.Limit),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breaker returns the circuit breaker for coords, so one failing location
// never affects calls for another.
func (p *MetNoProvider) breaker(coords weather.Coordinates) *gobreaker.CircuitBreaker {
	key := coords.Key()

	p.mu.Lock()
	defer p.mu.Unlock()
	cb, ok := p.breakers[key]
	if !ok {
		cb = newCircuitBreaker("metno " + key)
		p.breakers[key] = cb
	}
	return cb
}

// FetchForecast returns the compact forecast for coords. Any non-200 answer
// is reported as weather.ErrLocationNotFound; transport errors are returned
// unchanged in kind.
func (p *MetNoProvider) FetchForecast(ctx context.Context, coords weather.Coordinates) (*weather.Payload, error) {
	return doRequest(ctx, p.limiter, p.breaker(coords), func() (*weather.Payload, error) {
		resp, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"lat": strconv.FormatFloat(coords.Latitude, 'f', -1, 64),
				"lon": strconv.FormatFloat(coords.Longitude, 'f', -1, 64),
			}).
			Get(compactEndpoint)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", weather.ErrLocationNotFound, resp.StatusCode())
		}

		var payload weather.Payload
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return nil, fmt.Errorf("decode forecast: %w", err)
		}
		return &payload, nil
	})
}

var _ weather.Fetcher = (*MetNoProvider)(nil)
