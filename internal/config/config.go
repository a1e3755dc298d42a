package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/met-local-forecast/internal/weather/providers"
)

// Location is a location configured through the environment.
type Location struct {
	Name      string
	Latitude  float64
	Longitude float64
}

type AppConfig struct {
	// Upstream API.
	MetBaseURL   string
	MetUserAgent string
	HTTPTimeout  time.Duration
	RateLimit    providers.LimitConfig

	// DBPath is the SQLite file holding config entries; empty keeps them in memory.
	DBPath string

	// GeocoderAPIKey enables city lookups in the setup flow.
	GeocoderAPIKey string

	// Locations to configure at startup (skipped if already configured).
	Locations []Location

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.MetBaseURL = getenvDefault("MET_BASE_URL", providers.DefaultBaseURL)
	cfg.MetUserAgent = getenvDefault("MET_USER_AGENT", providers.DefaultUserAgent)

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "20s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	rps, err := strconv.ParseFloat(getenvDefault("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}
	cfg.RateLimit = providers.LimitConfig{
		RequestsPerSecond: rps,
		Burst:             getenvInt("RATE_LIMIT_BURST", 5),
	}

	cfg.DBPath = os.Getenv("DB_PATH")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.Port = getenvDefault("PORT", "8080")

	locs, err := parseLocations(os.Getenv("WEATHER_LOCATIONS"))
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// parseLocations reads "name:lat:lon" items separated by commas.
func parseLocations(s string) ([]Location, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var locs []Location
	for _, item := range strings.Split(s, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid WEATHER_LOCATIONS item %q: want name:lat:lon", item)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", item, err)
		}
		lon, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", item, err)
		}
		locs = append(locs, Location{
			Name:      strings.TrimSpace(parts[0]),
			Latitude:  lat,
			Longitude: lon,
		})
	}

	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
