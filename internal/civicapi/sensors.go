package civicapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/namangaonkar/civiclens/internal/authmw"
	"github.com/namangaonkar/civiclens/internal/iot"
	"github.com/namangaonkar/civiclens/internal/notify"
)

func (a *API) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensors, err := a.sensors.ListSensors(r.Context(), iot.Type(r.URL.Query().Get("type")))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if sensors == nil {
		sensors = []*iot.Sensor{}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, sensors)
}

type ingestReadingRequest struct {
	Value float64 `json:"value"`
}

func (a *API) handleIngestReading(w http.ResponseWriter, r *http.Request) {
	sensorID := chi.URLParam(r, "sensorId")

	var req ingestReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	id, err := a.sensors.Ingest(r.Context(), sensorID, req.Value)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusAccepted, map[string]string{"id": id})
}

const defaultNotificationLimit = 50

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	actorID := authmw.ActorID(r.Context())
	if actorID == "" {
		http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
		return
	}

	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	notes := []*notify.Notification{}
	if a.notes != nil {
		var err error
		notes, err = a.notes.ListNotifications(r.Context(), actorID, limit)
		if err != nil {
			a.writeError(r.Context(), w, err)
			return
		}
		if notes == nil {
			notes = []*notify.Notification{}
		}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, notes)
}
