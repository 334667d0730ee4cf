// Package civicapi exposes the report, sensor, and notification
// operations over HTTP. Handlers are thin glue: decode, call the
// service, map sentinel errors to status codes.
package civicapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/namangaonkar/civiclens/internal/civic"
	"github.com/namangaonkar/civiclens/internal/iot"
	"github.com/namangaonkar/civiclens/internal/notify"
)

// ReportService defines the report operations the API needs.
type ReportService interface {
	Create(ctx context.Context, in civic.CreateInput) (string, error)
	Get(ctx context.Context, reportID string) (*civic.ReportView, bool, error)
	List(ctx context.Context, f civic.ListFilter) ([]*civic.ReportView, error)
	Search(ctx context.Context, term, category string, status civic.Status) ([]*civic.ReportView, error)
	UpdateStatus(ctx context.Context, reportID string, status civic.Status, assigneeID, actorID string) (string, error)
	Upvote(ctx context.Context, reportID, actorID string) (int, error)
	AddComment(ctx context.Context, reportID, actorID, content string) (*civic.Comment, error)
	Stats(ctx context.Context) (*civic.DashboardStats, error)
}

// SensorService defines the sensor operations the API needs.
type SensorService interface {
	Ingest(ctx context.Context, sensorID string, value float64) (string, error)
	ListSensors(ctx context.Context, typ iot.Type) ([]*iot.Sensor, error)
}

// NotificationStore lists a user's notification feed.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, limit int) ([]*notify.Notification, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger  log.Logger
	reports ReportService
	sensors SensorService
	notes   NotificationStore
}

// New creates a new API handler. notes may be nil, in which case the
// notifications endpoint returns an empty feed.
func New(logger log.Logger, reports ReportService, sensors SensorService, notes NotificationStore) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if reports == nil {
		panic(xerrors.New("report service is required"))
	}
	if sensors == nil {
		panic(xerrors.New("sensor service is required"))
	}
	return &API{
		logger:  logger,
		reports: reports,
		sensors: sensors,
		notes:   notes,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", a.handleCreateReport)
		r.Get("/reports", a.handleListReports)
		r.Get("/reports/search", a.handleSearchReports)
		r.Get("/reports/{id}", a.handleGetReport)
		r.Post("/reports/{id}/status", a.handleUpdateStatus)
		r.Post("/reports/{id}/upvote", a.handleUpvote)
		r.Post("/reports/{id}/comments", a.handleAddComment)
		r.Get("/stats", a.handleStats)
		r.Get("/sensors", a.handleListSensors)
		r.Post("/sensors/{sensorId}/readings", a.handleIngestReading)
		r.Get("/notifications", a.handleListNotifications)
	})
}

func (a *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(ctx, err, "failed to encode response")
	}
}

// writeError maps service sentinel errors onto HTTP status codes.
// Anything unrecognized is an internal error and gets logged.
func (a *API) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, civic.ErrValidation):
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
	case errors.Is(err, civic.ErrUnauthenticated):
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
	case errors.Is(err, civic.ErrNotFound):
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	default:
		a.logger.Error(ctx, err, "request failed")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
