package weather

import (
	"strconv"
	"time"
)

// Coordinates is a point location in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for indexing this point, latitude
// immediately followed by longitude.
func (c Coordinates) Key() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// Payload is the decoded Locationforecast "compact" document.
// Only the parts consumed by the readings are modelled.
type Payload struct {
	Type       string `json:"type"`
	Properties struct {
		Meta       Meta         `json:"meta"`
		Timeseries []Timeseries `json:"timeseries"`
	} `json:"properties"`
}

// Meta carries the document-level metadata.
type Meta struct {
	UpdatedAt time.Time         `json:"updated_at"`
	Units     map[string]string `json:"units"`
}

// Timeseries is one timestamped entry of the forecast.
type Timeseries struct {
	Time time.Time `json:"time"`
	Data struct {
		Instant struct {
			Details Details `json:"details"`
		} `json:"instant"`
	} `json:"data"`
}

// Details holds the instantaneous values of a timeseries entry.
// Fields are pointers so that a value missing from the document is
// distinguishable from a zero reading.
type Details struct {
	AirTemperature        *float64 `json:"air_temperature"`
	AirPressureAtSeaLevel *float64 `json:"air_pressure_at_sea_level"`
	RelativeHumidity      *float64 `json:"relative_humidity"`
	WindSpeed             *float64 `json:"wind_speed"`
	WindFromDirection     *float64 `json:"wind_from_direction"`
}

// State is the lifecycle position of a LocationForecast.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateFresh         State = "fresh"
	StateStale         State = "stale"
)

// Stats counts outbound fetches made on behalf of one location.
type Stats struct {
	Fetches  int64 `json:"fetches"`
	Failures int64 `json:"failures"`
}
