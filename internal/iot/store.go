package iot

import (
	"context"
	"time"
)

// Store is the persistence interface for sensors.
type Store interface {
	// GetBySensorID looks a sensor up by its external id. When duplicate
	// external ids exist the store returns the first match it finds;
	// uniqueness is assumed but not enforced.
	GetBySensorID(ctx context.Context, sensorID string) (*Sensor, bool, error)

	// UpdateReading overwrites value, status, and last-updated together
	// on the record with the given internal id.
	UpdateReading(ctx context.Context, id string, value float64, status Status, at time.Time) error

	// InsertSensor adds a provisioned sensor record.
	InsertSensor(ctx context.Context, s *Sensor) error

	// ListSensors returns all sensors, optionally filtered by type.
	ListSensors(ctx context.Context, typ Type) ([]*Sensor, error)
}
