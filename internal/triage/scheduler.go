// Package triage runs the asynchronous AI classification step for newly
// created reports: resolve the uploaded image, ask the vision classifier
// for a structured assessment, and feed the result back into the report
// lifecycle. Every failure mode is confined here; classification can
// never block or fail report creation.
package triage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/namangaonkar/civiclens/internal/blob"
	"github.com/namangaonkar/civiclens/internal/civic"
)

// Classifier is the external vision gateway. It returns the model's raw
// text content; the scheduler parses it. An empty content string with a
// nil error means the gateway answered but produced nothing usable.
type Classifier interface {
	Classify(ctx context.Context, imageURL, instruction string) (string, error)
}

// Applier receives the parsed classification. Implemented by the report
// service.
type Applier interface {
	ApplyAnalysis(ctx context.Context, reportID string, a civic.Analysis) (string, error)
}

// The instruction sent with every image. The category set is closed on
// purpose so downstream filtering stays predictable.
const instruction = `Analyze this civic infrastructure image and provide:
1. Detected objects/issues (e.g., pothole, broken streetlight, graffiti, damaged sidewalk)
2. Suggested category (Infrastructure, Safety, Environment, Transportation, Public Services)
3. Urgency score (1-10, where 10 is most urgent)
4. Brief description of the issue

Respond in JSON format with keys: detectedObjects (array), suggestedCategory (string), urgencyScore (number), description (string)`

// defaultConfidence is attached to every applied analysis; the gateway's
// response carries no confidence score in this design.
const defaultConfidence = 0.8

// Task outcomes, used as the metrics label.
const (
	outcomeApplied     = "applied"
	outcomeFallback    = "fallback"
	outcomeGatewayErr  = "gateway_error"
	outcomeBlobMissing = "blob_missing"
	outcomeApplyErr    = "apply_error"
)

// Scheduler dispatches one-shot, fire-and-forget classification tasks.
// Tasks for different reports run concurrently with no ordering between
// them and share no mutable state.
type Scheduler struct {
	classifier Classifier
	blobs      blob.Resolver
	applier    Applier
	metrics    *Metrics
	logger     log.Logger
	tasks      sync.WaitGroup
}

// NewScheduler creates a triage scheduler with the given collaborators.
func NewScheduler(classifier Classifier, blobs blob.Resolver, applier Applier, metrics *Metrics, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Scheduler{
		classifier: classifier,
		blobs:      blobs,
		applier:    applier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Enqueue launches the classification task for a report and returns
// immediately. The task is detached from the caller's cancellation: the
// enclosing request finishing (or failing) must not abort it.
func (s *Scheduler) Enqueue(ctx context.Context, reportID, imageRef string) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		s.run(context.WithoutCancel(ctx), reportID, imageRef)
	}()
}

// Drain blocks until all in-flight tasks finish. Used at shutdown and in
// tests; callers of Enqueue never wait on it per request.
func (s *Scheduler) Drain() {
	s.tasks.Wait()
}

func (s *Scheduler) run(ctx context.Context, reportID, imageRef string) {
	start := time.Now()
	L := s.logger.With("report_id", reportID, "image_ref", imageRef)

	url, ok, err := s.blobs.ResolveURL(ctx, imageRef)
	if err != nil {
		L.Error(ctx, err, "image url resolution failed")
		s.done(outcomeBlobMissing, start)
		return
	}
	if !ok {
		// Blob was deleted between upload and triage. Nothing to do.
		L.Warn(ctx, "image blob no longer resolves, skipping triage")
		s.done(outcomeBlobMissing, start)
		return
	}

	content, err := s.classifier.Classify(ctx, url, instruction)
	if err != nil {
		// Gateway unreachable or errored: log and terminate. The report
		// keeps its creation-time category and priority; retries, if
		// any, are an external concern.
		L.Error(ctx, err, "classifier call failed")
		s.done(outcomeGatewayErr, start)
		return
	}

	analysis, parsed := parseAnalysis(content)
	outcome := outcomeApplied
	if !parsed {
		outcome = outcomeFallback
	}

	if _, err := s.applier.ApplyAnalysis(ctx, reportID, analysis); err != nil {
		L.Error(ctx, err, "analysis application failed")
		s.done(outcomeApplyErr, start)
		return
	}

	s.done(outcome, start)
	L.Info(ctx, "triage complete",
		"outcome", outcome,
		"category", analysis.SuggestedCategory,
		"urgency_score", analysis.UrgencyScore,
		"duration", time.Since(start).Seconds(),
	)
}

func (s *Scheduler) done(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.TasksTotal.WithLabelValues(outcome).Inc()
	s.metrics.TaskDuration.Observe(time.Since(start).Seconds())
}

// fallbackAnalysis is substituted whenever the gateway's content cannot
// be parsed, so the pipeline always completes with a classified report.
func fallbackAnalysis() civic.Analysis {
	return civic.Analysis{
		DetectedObjects:   []string{"infrastructure_issue"},
		Confidence:        defaultConfidence,
		SuggestedCategory: "Infrastructure",
		UrgencyScore:      5,
	}
}

// rawAnalysis mirrors the JSON shape requested from the classifier.
type rawAnalysis struct {
	DetectedObjects   []string `json:"detectedObjects"`
	SuggestedCategory string   `json:"suggestedCategory"`
	UrgencyScore      float64  `json:"urgencyScore"`
	Description       string   `json:"description"`
}

// parseAnalysis turns the gateway content into an Analysis. Any shape
// mismatch or absent content yields the fixed fallback (parsed=false).
// Absent fields inside an otherwise valid document are defaulted the
// same way: empty object list, Infrastructure category, urgency 5.
func parseAnalysis(content string) (civic.Analysis, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return fallbackAnalysis(), false
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return fallbackAnalysis(), false
	}

	a := civic.Analysis{
		DetectedObjects:   raw.DetectedObjects,
		Confidence:        defaultConfidence,
		SuggestedCategory: raw.SuggestedCategory,
		UrgencyScore:      int(raw.UrgencyScore),
	}
	if a.DetectedObjects == nil {
		a.DetectedObjects = []string{}
	}
	if a.SuggestedCategory == "" {
		a.SuggestedCategory = "Infrastructure"
	}
	if a.UrgencyScore == 0 {
		a.UrgencyScore = 5
	}
	return a, true
}
