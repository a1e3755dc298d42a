package weather

import "fmt"

// MetricKey names a scalar projected out of a forecast payload.
type MetricKey string

const (
	MetricTemperature MetricKey = "native_temperature"
	MetricPressure    MetricKey = "native_pressure"
	MetricHumidity    MetricKey = "humidity"
	MetricWindSpeed   MetricKey = "native_wind_speed"
	MetricWindBearing MetricKey = "wind_bearing"
)

// projections maps each metric to the detail field of the first timeseries entry.
var projections = map[MetricKey]func(Details) *float64{
	MetricTemperature: func(d Details) *float64 { return d.AirTemperature },
	MetricPressure:    func(d Details) *float64 { return d.AirPressureAtSeaLevel },
	MetricHumidity:    func(d Details) *float64 { return d.RelativeHumidity },
	MetricWindSpeed:   func(d Details) *float64 { return d.WindSpeed },
	MetricWindBearing: func(d Details) *float64 { return d.WindFromDirection },
}

// Result is the outcome of reading a metric: either a ready value or
// not-ready because nothing has been fetched yet.
type Result struct {
	value float64
	ready bool
}

// Ready wraps an available value.
func Ready(v float64) Result {
	return Result{value: v, ready: true}
}

// NotReady is the result for a metric requested before the first successful fetch.
func NotReady() Result {
	return Result{}
}

// Get returns the value and whether it is available.
func (r Result) Get() (float64, bool) {
	return r.value, r.ready
}

// IsReady reports whether the result carries a value.
func (r Result) IsReady() bool {
	return r.ready
}

// project reads key from the first timeseries entry of p.
func project(p *Payload, key MetricKey) (float64, error) {
	fn, ok := projections[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	if len(p.Properties.Timeseries) == 0 {
		return 0, fmt.Errorf("%w: empty timeseries", ErrMissingValue)
	}
	v := fn(p.Properties.Timeseries[0].Data.Instant.Details)
	if v == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingValue, key)
	}
	return *v, nil
}
