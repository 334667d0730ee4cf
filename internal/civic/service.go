package civic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/namangaonkar/civiclens/internal/blob"
	"github.com/namangaonkar/civiclens/internal/notify"
)

const (
	defaultListLimit = 50
	searchLimit      = 20
)

// Scheduler enqueues the asynchronous image triage task for a report.
// Enqueue must return without waiting for classification.
type Scheduler interface {
	Enqueue(ctx context.Context, reportID, imageRef string)
}

// CreateInput carries the caller-supplied fields for a new report.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Location    Location
	ImageRef    string
	AudioRef    string
	Tags        []string
	ReporterID  string
}

// Service owns the report lifecycle: creation, status transitions,
// priority derivation, comment/upvote mutation, and dispatch of the
// asynchronous classification step.
type Service struct {
	store     Store
	users     UserStore
	blobs     blob.Resolver
	fanout    *notify.Fanout
	scheduler Scheduler
	metrics   *Metrics
	logger    log.Logger
}

// NewService creates a report service. scheduler may be nil, in which
// case image triage is disabled and reports keep their caller-supplied
// category and default priority.
func NewService(store Store, users UserStore, blobs blob.Resolver, fanout *notify.Fanout, scheduler Scheduler, metrics *Metrics, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:     store,
		users:     users,
		blobs:     blobs,
		fanout:    fanout,
		scheduler: scheduler,
		metrics:   metrics,
		logger:    logger,
	}
}

// Create inserts a new report in status open with priority medium. If an
// image reference is present, a triage task is enqueued fire-and-forget;
// creation never waits on the classifier.
func (s *Service) Create(ctx context.Context, in CreateInput) (string, error) {
	if in.ReporterID == "" {
		return "", fmt.Errorf("create report: %w", ErrUnauthenticated)
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Description) == "" {
		return "", fmt.Errorf("%w: description is required", ErrValidation)
	}

	r := &Report{
		ID:          ulid.Make().String(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    PriorityMedium,
		Status:      StatusOpen,
		Location:    in.Location,
		ImageRef:    in.ImageRef,
		AudioRef:    in.AudioRef,
		ReporterID:  in.ReporterID,
		Upvotes:     0,
		Comments:    []Comment{},
		Tags:        in.Tags,
		CreatedAt:   time.Now(),
	}

	if err := s.store.Insert(ctx, r); err != nil {
		return "", fmt.Errorf("insert report: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ReportsCreated.Inc()
	}

	if r.ImageRef != "" && s.scheduler != nil {
		s.scheduler.Enqueue(ctx, r.ID, r.ImageRef)
	}

	s.logger.Info(ctx, "report created",
		"report_id", r.ID,
		"category", r.Category,
		"has_image", r.ImageRef != "",
	)

	return r.ID, nil
}

// ApplyAnalysis stores a classification result on a report, re-derives
// its priority from the urgency score, and overwrites the category with
// the suggested one. Status and all other fields are untouched, so the
// task that calls this can safely interleave with user mutations.
// Reapplying the same analysis yields the same final state.
func (s *Service) ApplyAnalysis(ctx context.Context, reportID string, a Analysis) (string, error) {
	priority := PriorityForScore(a.UrgencyScore)
	category := a.SuggestedCategory

	_, ok, err := s.store.Patch(ctx, reportID, ReportPatch{
		AIAnalysis: &a,
		Priority:   &priority,
		Category:   &category,
	})
	if err != nil {
		return "", fmt.Errorf("apply analysis: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("apply analysis: report %s: %w", reportID, ErrNotFound)
	}

	if s.metrics != nil {
		s.metrics.AnalysesApplied.WithLabelValues(string(priority)).Inc()
	}

	s.logger.Info(ctx, "analysis applied",
		"report_id", reportID,
		"priority", string(priority),
		"category", category,
		"urgency_score", a.UrgencyScore,
	)

	return reportID, nil
}

// UpdateStatus patches a report's status (and assignee, if given) and
// notifies the original reporter. No transition table is enforced: any
// status is reachable from any status, callers needing a strict
// workflow must enforce it themselves.
func (s *Service) UpdateStatus(ctx context.Context, reportID string, status Status, assigneeID, actorID string) (string, error) {
	if actorID == "" {
		return "", fmt.Errorf("update status: %w", ErrUnauthenticated)
	}
	if !ValidStatus(status) {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	r, ok, err := s.store.Get(ctx, reportID)
	if err != nil {
		return "", fmt.Errorf("get report: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("update status: report %s: %w", reportID, ErrNotFound)
	}

	patch := ReportPatch{Status: &status}
	if assigneeID != "" {
		patch.AssigneeID = &assigneeID
	}
	if _, _, err := s.store.Patch(ctx, reportID, patch); err != nil {
		return "", fmt.Errorf("patch report: %w", err)
	}

	if s.metrics != nil {
		s.metrics.StatusUpdates.WithLabelValues(string(status)).Inc()
	}

	// Exactly one notice to the reporter, whatever the new status is.
	s.fanout.Notify(ctx, []string{r.ReporterID},
		notify.TypeReportUpdate,
		"Report Status Updated",
		fmt.Sprintf("Your report %q status changed to %s", r.Title, status),
		notify.Ref{ReportID: reportID},
	)

	return reportID, nil
}

// Upvote increments a report's vote counter by exactly one and returns
// the new count. No per-actor dedup: the same actor may upvote the same
// report repeatedly. Accepted design limitation.
func (s *Service) Upvote(ctx context.Context, reportID, actorID string) (int, error) {
	if actorID == "" {
		return 0, fmt.Errorf("upvote: %w", ErrUnauthenticated)
	}

	r, ok, err := s.store.Patch(ctx, reportID, ReportPatch{UpvoteDelta: 1})
	if err != nil {
		return 0, fmt.Errorf("upvote: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("upvote: report %s: %w", reportID, ErrNotFound)
	}

	if s.metrics != nil {
		s.metrics.UpvotesTotal.Inc()
	}

	return r.Upvotes, nil
}

// AddComment appends a comment with a server-assigned timestamp to the
// end of the report's comment list. Comments are append-only; there is
// no edit or delete.
func (s *Service) AddComment(ctx context.Context, reportID, actorID, content string) (*Comment, error) {
	if actorID == "" {
		return nil, fmt.Errorf("add comment: %w", ErrUnauthenticated)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content is required", ErrValidation)
	}

	c := Comment{
		AuthorID:  actorID,
		Content:   content,
		CreatedAt: time.Now(),
	}

	_, ok, err := s.store.Patch(ctx, reportID, ReportPatch{AppendComment: &c})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("add comment: report %s: %w", reportID, ErrNotFound)
	}

	if s.metrics != nil {
		s.metrics.CommentsTotal.Inc()
	}

	return &c, nil
}

// Get returns a single report enriched with reporter display fields and
// resolved image/audio URLs.
func (s *Service) Get(ctx context.Context, reportID string) (*ReportView, bool, error) {
	r, ok, err := s.store.Get(ctx, reportID)
	if err != nil || !ok {
		return nil, ok, err
	}
	v := s.enrich(ctx, r, true)
	return v, true, nil
}

// List returns reports matching the filter in reverse-chronological
// order, each enriched with reporter fields and a resolved image URL.
func (s *Service) List(ctx context.Context, f ListFilter) ([]*ReportView, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	reports, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return s.enrichAll(ctx, reports), nil
}

// Search runs a full-text match against descriptions, optionally
// narrowed by category and status. Results come back in engine-defined
// relevance order, capped at 20.
func (s *Service) Search(ctx context.Context, term, category string, status Status) ([]*ReportView, error) {
	reports, err := s.store.Search(ctx, term, category, status, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search reports: %w", err)
	}
	return s.enrichAll(ctx, reports), nil
}

func (s *Service) enrichAll(ctx context.Context, reports []*Report) []*ReportView {
	views := make([]*ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, s.enrich(ctx, r, false))
	}
	return views
}

// enrich attaches reporter display fields and resolved blob URLs.
// Resolution failures degrade to missing fields, never errors: listing
// must not break because a blob or user record went away.
func (s *Service) enrich(ctx context.Context, r *Report, withAudio bool) *ReportView {
	v := &ReportView{Report: *r}

	if u, ok, err := s.users.GetUser(ctx, r.ReporterID); err != nil {
		s.logger.Error(ctx, err, "reporter lookup failed", "report_id", r.ID)
	} else if ok {
		v.Reporter = &ReporterInfo{Name: u.Name, Email: u.Email}
	}

	if r.ImageRef != "" {
		if url, ok, err := s.blobs.ResolveURL(ctx, r.ImageRef); err != nil {
			s.logger.Error(ctx, err, "image url resolution failed", "report_id", r.ID)
		} else if ok {
			v.ImageURL = url
		}
	}

	if withAudio && r.AudioRef != "" {
		if url, ok, err := s.blobs.ResolveURL(ctx, r.AudioRef); err != nil {
			s.logger.Error(ctx, err, "audio url resolution failed", "report_id", r.ID)
		} else if ok {
			v.AudioURL = url
		}
	}

	return v
}
