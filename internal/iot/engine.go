package iot

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/namangaonkar/civiclens/internal/civic"
	"github.com/namangaonkar/civiclens/internal/notify"
)

// Engine evaluates incoming readings against per-sensor thresholds and
// fans out alerts when a reading lands in critical.
type Engine struct {
	store      Store
	recipients notify.RecipientResolver
	fanout     *notify.Fanout
	metrics    *Metrics
	logger     log.Logger
}

// NewEngine creates a sensor engine. The recipient resolver decides the
// alert audience; the engine itself has no notion of roles or
// subscriptions.
func NewEngine(store Store, recipients notify.RecipientResolver, fanout *notify.Fanout, metrics *Metrics, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		store:      store,
		recipients: recipients,
		fanout:     fanout,
		metrics:    metrics,
		logger:     logger,
	}
}

// Ingest records a reading for the sensor with the given external id and
// returns the internal record id. Value, derived status, and the
// last-updated timestamp are always written together. Every ingestion
// that lands in critical fans out an alert; there is no debounce, and
// warning/normal never alert.
func (e *Engine) Ingest(ctx context.Context, sensorID string, value float64) (string, error) {
	sensor, ok, err := e.store.GetBySensorID(ctx, sensorID)
	if err != nil {
		return "", fmt.Errorf("sensor lookup: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("ingest: sensor %s: %w", sensorID, civic.ErrNotFound)
	}

	status := StatusForValue(value, sensor.Threshold)

	if err := e.store.UpdateReading(ctx, sensor.ID, value, status, time.Now()); err != nil {
		return "", fmt.Errorf("update reading: %w", err)
	}

	if e.metrics != nil {
		e.metrics.ReadingsTotal.WithLabelValues(string(sensor.Type), string(status)).Inc()
	}

	if status == StatusCritical {
		e.alert(ctx, sensor, value)
	}

	return sensor.ID, nil
}

// ListSensors returns all sensors, optionally filtered by type.
func (e *Engine) ListSensors(ctx context.Context, typ Type) ([]*Sensor, error) {
	sensors, err := e.store.ListSensors(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	return sensors, nil
}

// alert fans out one iot_alert per resolved recipient. Resolution
// failures are logged and swallowed: alerting is best-effort and must
// never fail the ingestion that triggered it.
func (e *Engine) alert(ctx context.Context, sensor *Sensor, value float64) {
	recipients, err := e.recipients.Recipients(ctx)
	if err != nil {
		e.logger.Error(ctx, err, "alert recipient resolution failed", "sensor_id", sensor.SensorID)
		return
	}

	msg := fmt.Sprintf("%s sensor at %s is reporting critical values: %g%s",
		sensor.Type, sensor.Location.Name, value, sensor.Unit)

	delivered := e.fanout.Notify(ctx, recipients,
		notify.TypeIoTAlert,
		"IoT Sensor Alert",
		msg,
		notify.Ref{SensorID: sensor.SensorID},
	)

	if e.metrics != nil {
		e.metrics.AlertsTotal.Inc()
	}

	e.logger.Info(ctx, "critical sensor alert fanned out",
		"sensor_id", sensor.SensorID,
		"type", string(sensor.Type),
		"value", value,
		"recipients", len(recipients),
		"delivered", delivered,
	)
}
