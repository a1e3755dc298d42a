package weather

import (
	"context"
	"errors"
)

// NotReadyValue is reported by a Reading whose location has never been fetched.
const NotReadyValue = -1

// Description is the metadata a host needs to render a reading.
type Description struct {
	Key         MetricKey `json:"key"`
	Unit        string    `json:"unit"`
	DeviceClass string    `json:"device_class"`
	StateClass  string    `json:"state_class"`
}

// DefaultDescriptions lists one description per supported metric.
func DefaultDescriptions() []Description {
	return []Description{
		{Key: MetricTemperature, Unit: "°C", DeviceClass: "temperature", StateClass: "measurement"},
		{Key: MetricPressure, Unit: "hPa", DeviceClass: "pressure", StateClass: "measurement"},
		{Key: MetricHumidity, Unit: "%", DeviceClass: "humidity", StateClass: "measurement"},
		{Key: MetricWindSpeed, Unit: "m/s", DeviceClass: "wind_speed", StateClass: "measurement"},
		{Key: MetricWindBearing, Unit: "°", DeviceClass: "wind_direction", StateClass: "measurement"},
	}
}

// Reading exposes one metric of a LocationForecast as a single value.
// Readings bound to the same forecast share its cache.
type Reading struct {
	forecast    *LocationForecast
	description Description
}

// NewReading binds desc to forecast.
func NewReading(forecast *LocationForecast, desc Description) *Reading {
	return &Reading{forecast: forecast, description: desc}
}

// Description returns the reading's metadata.
func (r *Reading) Description() Description {
	return r.description
}

// UniqueID identifies the reading across the host.
func (r *Reading) UniqueID() string {
	return "local-forecast-" + r.forecast.Name() + "-" + string(r.description.Key)
}

// Update refreshes the shared forecast if it is stale.
func (r *Reading) Update(ctx context.Context) error {
	return r.forecast.EnsureFresh(ctx)
}

// NativeValue returns the cached value, or NotReadyValue before the first
// successful fetch.
func (r *Reading) NativeValue() (float64, error) {
	res, err := r.forecast.ReadMetric(r.description.Key)
	if err != nil {
		return 0, err
	}
	if v, ok := res.Get(); ok {
		return v, nil
	}
	return NotReadyValue, nil
}

// Value updates the forecast and then reads the metric. A failed update is
// reported alongside the value served from the previous payload.
func (r *Reading) Value(ctx context.Context) (float64, error) {
	updateErr := r.Update(ctx)
	v, err := r.NativeValue()
	return v, errors.Join(updateErr, err)
}
