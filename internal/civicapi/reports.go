package civicapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/namangaonkar/civiclens/internal/authmw"
	"github.com/namangaonkar/civiclens/internal/civic"
)

type createReportRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	Location    civic.Location `json:"location"`
	ImageRef    string         `json:"image_ref"`
	AudioRef    string         `json:"audio_ref"`
	Tags        []string       `json:"tags"`
}

func (a *API) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	id, err := a.reports.Create(r.Context(), civic.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		ImageRef:    req.ImageRef,
		AudioRef:    req.AudioRef,
		Tags:        req.Tags,
		ReporterID:  authmw.ActorID(r.Context()),
	})
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) handleListReports(w http.ResponseWriter, r *http.Request) {
	f := civic.ListFilter{
		Status:   civic.Status(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	views, err := a.reports.List(r.Context(), f)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if views == nil {
		views = []*civic.ReportView{}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, views)
}

func (a *API) handleSearchReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	views, err := a.reports.Search(r.Context(),
		q.Get("q"),
		q.Get("category"),
		civic.Status(q.Get("status")),
	)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if views == nil {
		views = []*civic.ReportView{}
	}

	a.writeJSON(r.Context(), w, http.StatusOK, views)
}

func (a *API) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("civiclens.report.id", id))

	view, ok, err := a.reports.Get(r.Context(), id)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	span.SetAttributes(attribute.String("civiclens.report.status", string(view.Status)))

	a.writeJSON(r.Context(), w, http.StatusOK, view)
}

type updateStatusRequest struct {
	Status     civic.Status `json:"status"`
	AssigneeID string       `json:"assignee_id"`
}

func (a *API) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	reportID, err := a.reports.UpdateStatus(r.Context(), id, req.Status, req.AssigneeID, authmw.ActorID(r.Context()))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"id":     reportID,
		"status": string(req.Status),
	})
}

func (a *API) handleUpvote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	upvotes, err := a.reports.Upvote(r.Context(), id, authmw.ActorID(r.Context()))
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusOK, map[string]int{"upvotes": upvotes})
}

type addCommentRequest struct {
	Content string `json:"content"`
}

func (a *API) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	c, err := a.reports.AddComment(r.Context(), id, authmw.ActorID(r.Context()), req.Content)
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusCreated, c)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.reports.Stats(r.Context())
	if err != nil {
		a.writeError(r.Context(), w, err)
		return
	}

	a.writeJSON(r.Context(), w, http.StatusOK, stats)
}
