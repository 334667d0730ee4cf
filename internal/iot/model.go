// Package iot provides the sensor ingestion and alerting engine: incoming
// readings are evaluated against per-sensor thresholds, a health status
// is derived, and critical readings fan out alerts.
package iot

import "time"

// Type identifies what a sensor measures.
type Type string

const (
	TypeAirQuality    Type = "air_quality"
	TypeNoise         Type = "noise"
	TypeWaterPressure Type = "water_pressure"
	TypeTemperature   Type = "temperature"
)

// Status is the derived health of a sensor. It is always a pure function
// of (current value, threshold) and is never set independently.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Threshold is the [Min, Max] band defining a sensor's normal operating
// range.
type Threshold struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Site is where a sensor is installed.
type Site struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

// Sensor is a named physical sensor's current state. SensorID is the
// stable external id readings are addressed to; ID is the store's
// internal record id.
type Sensor struct {
	ID           string    `json:"id"`
	SensorID     string    `json:"sensor_id"`
	Type         Type      `json:"type"`
	Location     Site      `json:"location"`
	CurrentValue float64   `json:"current_value"`
	Unit         string    `json:"unit"`
	Threshold    Threshold `json:"threshold"`
	Status       Status    `json:"status"`
	LastUpdated  time.Time `json:"last_updated"`
}

// StatusForValue derives a sensor status from a reading. Outside the
// hard band is critical. Inside it, the warning band is asymmetric on
// purpose: min*1.1 loosens toward the min while max*0.9 tightens toward
// the max, a direct consequence of the multiplicative margins.
func StatusForValue(value float64, t Threshold) Status {
	if value < t.Min || value > t.Max {
		return StatusCritical
	}
	if value < t.Min*1.1 || value > t.Max*0.9 {
		return StatusWarning
	}
	return StatusNormal
}
