package civic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/namangaonkar/civiclens/internal/notify"
)

// fakeStore is a minimal in-memory Store for exercising the service
// without pulling in the real store implementations.
type fakeStore struct {
	mu      sync.Mutex
	reports map[string]*Report
	order   []string

	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string]*Report)}
}

func (f *fakeStore) Get(_ context.Context, id string) (*Report, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (f *fakeStore) Insert(_ context.Context, r *Report) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.reports[r.ID] = &cp
	f.order = append(f.order, r.ID)
	return nil
}

func (f *fakeStore) Patch(_ context.Context, id string, p ReportPatch) (*Report, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return nil, false, nil
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.AssigneeID != nil {
		r.AssigneeID = *p.AssigneeID
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.AIAnalysis != nil {
		cp := *p.AIAnalysis
		r.AIAnalysis = &cp
	}
	r.Upvotes += p.UpvoteDelta
	if p.AppendComment != nil {
		r.Comments = append(r.Comments, *p.AppendComment)
	}
	cp := *r
	return &cp, true, nil
}

func (f *fakeStore) List(_ context.Context, fl ListFilter) ([]*Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Report
	for i := len(f.order) - 1; i >= 0; i-- {
		r := f.reports[f.order[i]]
		if fl.Status != "" && r.Status != fl.Status {
			continue
		}
		if fl.Category != "" && r.Category != fl.Category {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if fl.Limit > 0 && len(out) == fl.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Search(_ context.Context, term, category string, status Status, limit int) ([]*Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Report
	for i := len(f.order) - 1; i >= 0; i-- {
		r := f.reports[f.order[i]]
		if !strings.Contains(strings.ToLower(r.Description), strings.ToLower(term)) {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[string]*User
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*User, bool, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, false, nil
	}
	cp := *u
	return &cp, true, nil
}

func (f *fakeUsers) ListUsers(_ context.Context) ([]*User, error) {
	out := make([]*User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type fakeBlobs struct {
	urls    map[string]string
	failRef string
}

func (f *fakeBlobs) ResolveURL(_ context.Context, ref string) (string, bool, error) {
	if ref == f.failRef {
		return "", false, errors.New("blob backend down")
	}
	url, ok := f.urls[ref]
	return url, ok, nil
}

type fakeNoteStore struct {
	mu        sync.Mutex
	inserted  []*notify.Notification
	insertErr error
}

func (f *fakeNoteStore) InsertNotification(_ context.Context, n *notify.Notification) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *n
	f.inserted = append(f.inserted, &cp)
	return nil
}

func (f *fakeNoteStore) ListNotifications(_ context.Context, userID string, limit int) ([]*notify.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*notify.Notification
	for i := len(f.inserted) - 1; i >= 0; i-- {
		if f.inserted[i].UserID != userID {
			continue
		}
		cp := *f.inserted[i]
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeScheduler struct {
	mu       sync.Mutex
	enqueued [][2]string
}

func (f *fakeScheduler) Enqueue(_ context.Context, reportID, imageRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, [2]string{reportID, imageRef})
}

type serviceFixture struct {
	svc   *Service
	store *fakeStore
	notes *fakeNoteStore
	sched *fakeScheduler
	blobs *fakeBlobs
}

func newTestService(t *testing.T) *serviceFixture {
	t.Helper()
	store := newFakeStore()
	users := &fakeUsers{users: map[string]*User{
		"user-1": {ID: "user-1", Name: "Ada", Email: "ada@example.com"},
		"user-2": {ID: "user-2", Name: "Grace", Email: "grace@example.com"},
	}}
	blobs := &fakeBlobs{urls: map[string]string{
		"img-1": "https://blobs.test/img-1",
	}}
	notes := &fakeNoteStore{}
	sched := &fakeScheduler{}
	fanout := notify.NewFanout(notes, nil, nil)
	svc := NewService(store, users, blobs, fanout, sched, nil, nil)
	return &serviceFixture{svc: svc, store: store, notes: notes, sched: sched, blobs: blobs}
}

func mustCreate(t *testing.T, fx *serviceFixture, in CreateInput) string {
	t.Helper()
	id, err := fx.svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return id
}

func TestCreate_Defaults(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title:       "Pothole",
		Description: "Deep pothole on Main Street",
		Category:    "Roads",
		ReporterID:  "user-1",
	})

	r, ok, err := fx.store.Get(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("stored report: ok=%v err=%v", ok, err)
	}
	if r.Status != StatusOpen {
		t.Errorf("status = %q, want open", r.Status)
	}
	if r.Priority != PriorityMedium {
		t.Errorf("priority = %q, want medium", r.Priority)
	}
	if r.Upvotes != 0 {
		t.Errorf("upvotes = %d, want 0", r.Upvotes)
	}
	if r.AIAnalysis != nil {
		t.Error("new report has analysis before classification")
	}
	if len(fx.sched.enqueued) != 0 {
		t.Errorf("enqueued = %v, want none without image", fx.sched.enqueued)
	}
}

func TestCreate_EnqueuesTriageForImage(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title:       "Pothole",
		Description: "Deep pothole",
		ReporterID:  "user-1",
		ImageRef:    "img-1",
	})

	if len(fx.sched.enqueued) != 1 {
		t.Fatalf("enqueued = %d tasks, want 1", len(fx.sched.enqueued))
	}
	if got := fx.sched.enqueued[0]; got[0] != id || got[1] != "img-1" {
		t.Errorf("enqueued = %v, want [%s img-1]", got, id)
	}

	// The stored report is the pre-classification state.
	r, _, _ := fx.store.Get(context.Background(), id)
	if r.Priority != PriorityMedium || r.AIAnalysis != nil {
		t.Errorf("report = priority %q analysis %v, want medium/none", r.Priority, r.AIAnalysis)
	}
}

func TestCreate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{"no reporter", CreateInput{Title: "t", Description: "d"}, ErrUnauthenticated},
		{"no title", CreateInput{Description: "d", ReporterID: "user-1"}, ErrValidation},
		{"blank title", CreateInput{Title: "   ", Description: "d", ReporterID: "user-1"}, ErrValidation},
		{"no description", CreateInput{Title: "t", ReporterID: "user-1"}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fx := newTestService(t)
			_, err := fx.svc.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyAnalysis(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Collapsed drain", Description: "Drain caved in", Category: "Other", ReporterID: "user-1",
	})

	a := Analysis{
		DetectedObjects:   []string{"drain", "road_damage"},
		Confidence:        0.8,
		SuggestedCategory: "Infrastructure",
		UrgencyScore:      8,
	}
	if _, err := fx.svc.ApplyAnalysis(context.Background(), id, a); err != nil {
		t.Fatalf("ApplyAnalysis: %v", err)
	}

	r, _, _ := fx.store.Get(context.Background(), id)
	if r.Priority != PriorityCritical {
		t.Errorf("priority = %q, want critical for score 8", r.Priority)
	}
	if r.Category != "Infrastructure" {
		t.Errorf("category = %q, want Infrastructure", r.Category)
	}
	if r.AIAnalysis == nil || r.AIAnalysis.UrgencyScore != 8 {
		t.Errorf("analysis = %+v, want stored with score 8", r.AIAnalysis)
	}
	if r.Status != StatusOpen {
		t.Errorf("status = %q changed by analysis, want open", r.Status)
	}

	// Reapplying is idempotent.
	if _, err := fx.svc.ApplyAnalysis(context.Background(), id, a); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	r2, _, _ := fx.store.Get(context.Background(), id)
	if r2.Priority != r.Priority || r2.Category != r.Category || r2.Upvotes != r.Upvotes {
		t.Errorf("reapply changed state: %+v vs %+v", r2, r)
	}
}

func TestApplyAnalysis_NotFound(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	_, err := fx.svc.ApplyAnalysis(context.Background(), "missing", Analysis{UrgencyScore: 5})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus_NotifiesReporterOnce(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	for _, status := range []Status{StatusInProgress, StatusResolved, StatusClosed, StatusOpen} {
		if _, err := fx.svc.UpdateStatus(context.Background(), id, status, "", "user-2"); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", status, err)
		}
	}

	notes, _ := fx.notes.ListNotifications(context.Background(), "user-1", 100)
	if len(notes) != 4 {
		t.Fatalf("notifications = %d, want one per status change (4)", len(notes))
	}
	for _, n := range notes {
		if n.Type != notify.TypeReportUpdate {
			t.Errorf("notification type = %q, want report_update", n.Type)
		}
		if n.ReportID != id {
			t.Errorf("notification report = %q, want %q", n.ReportID, id)
		}
	}

	// The actor never gets notified.
	actorNotes, _ := fx.notes.ListNotifications(context.Background(), "user-2", 100)
	if len(actorNotes) != 0 {
		t.Errorf("actor notifications = %d, want 0", len(actorNotes))
	}
}

func TestUpdateStatus_Assignee(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	if _, err := fx.svc.UpdateStatus(context.Background(), id, StatusInProgress, "user-2", "user-2"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	r, _, _ := fx.store.Get(context.Background(), id)
	if r.AssigneeID != "user-2" {
		t.Errorf("assignee = %q, want user-2", r.AssigneeID)
	}

	// Omitting the assignee on the next transition keeps the current one.
	if _, err := fx.svc.UpdateStatus(context.Background(), id, StatusResolved, "", "user-2"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	r, _, _ = fx.store.Get(context.Background(), id)
	if r.AssigneeID != "user-2" {
		t.Errorf("assignee after second update = %q, want user-2", r.AssigneeID)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	tests := []struct {
		name     string
		reportID string
		status   Status
		actorID  string
		wantErr  error
	}{
		{"anonymous", id, StatusResolved, "", ErrUnauthenticated},
		{"invalid status", id, "bogus", "user-2", ErrValidation},
		{"missing report", "missing", StatusResolved, "user-2", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := fx.svc.UpdateStatus(context.Background(), tt.reportID, tt.status, "", tt.actorID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpvote_Increments(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	for want := 1; want <= 3; want++ {
		n, err := fx.svc.Upvote(context.Background(), id, "user-2")
		if err != nil {
			t.Fatalf("Upvote: %v", err)
		}
		if n != want {
			t.Errorf("upvotes = %d, want %d", n, want)
		}
	}
}

func TestUpvote_Concurrent(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	const voters = 50
	var wg sync.WaitGroup
	wg.Add(voters)
	for i := 0; i < voters; i++ {
		go func(i int) {
			defer wg.Done()
			if _, err := fx.svc.Upvote(context.Background(), id, fmt.Sprintf("actor-%d", i)); err != nil {
				t.Errorf("Upvote: %v", err)
			}
		}(i)
	}
	wg.Wait()

	r, _, _ := fx.store.Get(context.Background(), id)
	if r.Upvotes != voters {
		t.Errorf("upvotes = %d, want %d (no lost increments)", r.Upvotes, voters)
	}
}

func TestAddComment(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	c, err := fx.svc.AddComment(context.Background(), id, "user-2", "On it")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.AuthorID != "user-2" || c.Content != "On it" {
		t.Errorf("comment = %+v", c)
	}
	if c.CreatedAt.IsZero() {
		t.Error("comment has zero timestamp")
	}

	if _, err := fx.svc.AddComment(context.Background(), id, "user-1", "Thanks"); err != nil {
		t.Fatalf("second AddComment: %v", err)
	}

	r, _, _ := fx.store.Get(context.Background(), id)
	if len(r.Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(r.Comments))
	}
	if r.Comments[0].Content != "On it" || r.Comments[1].Content != "Thanks" {
		t.Errorf("comment order = %q, %q", r.Comments[0].Content, r.Comments[1].Content)
	}
}

func TestAddComment_Errors(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
	})

	if _, err := fx.svc.AddComment(context.Background(), id, "", "hello"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous comment error = %v, want ErrUnauthenticated", err)
	}
	if _, err := fx.svc.AddComment(context.Background(), id, "user-2", "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank comment error = %v, want ErrValidation", err)
	}
	if _, err := fx.svc.AddComment(context.Background(), "missing", "user-2", "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing report error = %v, want ErrNotFound", err)
	}
}

func TestGet_Enrichment(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
		ImageRef: "img-1", AudioRef: "img-1",
	})

	v, ok, err := fx.svc.Get(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v.Reporter == nil || v.Reporter.Name != "Ada" {
		t.Errorf("reporter = %+v, want Ada", v.Reporter)
	}
	if v.ImageURL != "https://blobs.test/img-1" {
		t.Errorf("image url = %q", v.ImageURL)
	}
	if v.AudioURL != "https://blobs.test/img-1" {
		t.Errorf("audio url = %q", v.AudioURL)
	}
}

func TestGet_EnrichmentDegrades(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	fx.blobs.failRef = "img-broken"
	id := mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "ghost-user",
		ImageRef: "img-broken",
	})

	// Unknown reporter and a failing blob backend still yield the report.
	v, ok, err := fx.svc.Get(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if v.Reporter != nil {
		t.Errorf("reporter = %+v, want nil for unknown user", v.Reporter)
	}
	if v.ImageURL != "" {
		t.Errorf("image url = %q, want empty on resolver failure", v.ImageURL)
	}
}

func TestList_OmitsAudioURL(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	mustCreate(t, fx, CreateInput{
		Title: "Pothole", Description: "Deep pothole", ReporterID: "user-1",
		ImageRef: "img-1", AudioRef: "img-1",
	})

	views, err := fx.svc.List(context.Background(), ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	if views[0].ImageURL == "" {
		t.Error("list view missing image url")
	}
	if views[0].AudioURL != "" {
		t.Error("list view resolved audio url; audio is detail-only")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	for i, s := range []Status{StatusOpen, StatusOpen, StatusInProgress, StatusResolved} {
		id := mustCreate(t, fx, CreateInput{
			Title:       fmt.Sprintf("Report %d", i),
			Description: "description",
			Category:    "Roads",
			ReporterID:  "user-1",
		})
		if s != StatusOpen {
			if _, err := fx.svc.UpdateStatus(context.Background(), id, s, "", "user-2"); err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
		}
	}

	// One stale report outside the 7-day recent window.
	old := &Report{
		ID:          ulid.Make().String(),
		Title:       "Old graffiti",
		Description: "faded",
		Category:    "Environment",
		Priority:    PriorityLow,
		Status:      StatusResolved,
		ReporterID:  "user-1",
		CreatedAt:   time.Now().AddDate(0, 0, -30),
	}
	if err := fx.store.Insert(context.Background(), old); err != nil {
		t.Fatalf("insert old report: %v", err)
	}

	st, err := fx.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if st.TotalReports != 5 {
		t.Errorf("total = %d, want 5", st.TotalReports)
	}
	if st.OpenReports != 2 || st.InProgressReports != 1 || st.ResolvedReports != 2 {
		t.Errorf("status counts = %d/%d/%d, want 2/1/2", st.OpenReports, st.InProgressReports, st.ResolvedReports)
	}
	if st.RecentReports != 4 {
		t.Errorf("recent = %d, want 4", st.RecentReports)
	}
	if st.CategoryBreakdown["Roads"] != 4 || st.CategoryBreakdown["Environment"] != 1 {
		t.Errorf("categories = %v", st.CategoryBreakdown)
	}
	if st.ResolutionRate != 40 {
		t.Errorf("resolution rate = %d, want 40", st.ResolutionRate)
	}
}

func TestStats_Empty(t *testing.T) {
	t.Parallel()

	fx := newTestService(t)
	st, err := fx.svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalReports != 0 || st.ResolutionRate != 0 {
		t.Errorf("empty stats = %+v", st)
	}
}
