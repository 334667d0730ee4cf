// Package memstore provides an in-memory implementation of the entity
// store interfaces (reports, users, sensors, notifications). Suitable
// for dev/testing. Writes to a single record are serialized by the
// store's lock, which is the serialization guarantee the core assumes.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/namangaonkar/civiclens/internal/civic"
	"github.com/namangaonkar/civiclens/internal/iot"
	"github.com/namangaonkar/civiclens/internal/notify"
)

// Store holds all entities in memory. Copies go in and out so callers
// never share pointers with the store.
type Store struct {
	mu            sync.RWMutex
	reports       map[string]*civic.Report
	reportOrder   []string // insertion order, oldest first
	users         map[string]*civic.User
	userOrder     []string
	sensors       []*iot.Sensor // slice keeps duplicate-external-id lookup deterministic
	notifications map[string][]*notify.Notification // user id -> notifications
}

// New initializes an empty in-memory Store.
func New() *Store {
	return &Store{
		reports:       make(map[string]*civic.Report),
		users:         make(map[string]*civic.User),
		notifications: make(map[string][]*notify.Notification),
	}
}

//  reports

// Get retrieves a report by id. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*civic.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, false, nil
	}
	return copyReport(r), true, nil
}

// Insert stores a copy of the report.
func (s *Store) Insert(_ context.Context, r *civic.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[r.ID]; !exists {
		s.reportOrder = append(s.reportOrder, r.ID)
	}
	s.reports[r.ID] = copyReport(r)
	return nil
}

// Patch applies a partial update atomically under the store lock and
// returns a copy of the updated report. ok=false when the id is unknown.
func (s *Store) Patch(_ context.Context, id string, p civic.ReportPatch) (*civic.Report, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
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
		a := *p.AIAnalysis
		a.DetectedObjects = append([]string(nil), p.AIAnalysis.DetectedObjects...)
		r.AIAnalysis = &a
	}
	if p.UpvoteDelta != 0 {
		r.Upvotes += p.UpvoteDelta
	}
	if p.AppendComment != nil {
		r.Comments = append(r.Comments, *p.AppendComment)
	}
	return copyReport(r), true, nil
}

// List returns reports newest-first, filtered by status/category, bounded
// by the limit when positive.
func (s *Store) List(_ context.Context, f civic.ListFilter) ([]*civic.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*civic.Report
	for i := len(s.reportOrder) - 1; i >= 0; i-- {
		r := s.reports[s.reportOrder[i]]
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		out = append(out, copyReport(r))
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Search matches the term against report descriptions, with optional
// equality filters. Relevance here is occurrence count, ties broken by
// recency; real relevance ranking belongs to the SQL store.
func (s *Store) Search(_ context.Context, term, category string, status civic.Status, limit int) ([]*civic.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(term)

	type scored struct {
		r     *civic.Report
		score int
		idx   int
	}
	var matches []scored
	for i, id := range s.reportOrder {
		r := s.reports[id]
		if status != "" && r.Status != status {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		score := strings.Count(strings.ToLower(r.Description), needle)
		if needle == "" || score == 0 {
			continue
		}
		matches = append(matches, scored{r: r, score: score, idx: i})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].idx > matches[j].idx
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*civic.Report, 0, len(matches))
	for _, m := range matches {
		out = append(out, copyReport(m.r))
	}
	return out, nil
}

//  users

// PutUser stores a copy of the user record.
func (s *Store) PutUser(_ context.Context, u *civic.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; !exists {
		s.userOrder = append(s.userOrder, u.ID)
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// GetUser retrieves a user by id. Returns a copy.
func (s *Store) GetUser(_ context.Context, id string) (*civic.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false, nil
	}
	cp := *u
	return &cp, true, nil
}

// ListUsers returns all users in insertion order.
func (s *Store) ListUsers(_ context.Context) ([]*civic.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*civic.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		cp := *s.users[id]
		out = append(out, &cp)
	}
	return out, nil
}

// ListUserIDs returns all user ids in insertion order.
func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.userOrder...), nil
}

//  sensors

// InsertSensor stores a copy of the sensor record.
func (s *Store) InsertSensor(_ context.Context, sensor *iot.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sensor
	s.sensors = append(s.sensors, &cp)
	return nil
}

// GetBySensorID returns the first sensor with the given external id.
func (s *Store) GetBySensorID(_ context.Context, sensorID string) (*iot.Sensor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sensor := range s.sensors {
		if sensor.SensorID == sensorID {
			cp := *sensor
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// UpdateReading overwrites value, status, and last-updated together.
func (s *Store) UpdateReading(_ context.Context, id string, value float64, status iot.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sensor := range s.sensors {
		if sensor.ID == id {
			sensor.CurrentValue = value
			sensor.Status = status
			sensor.LastUpdated = at
			return nil
		}
	}
	return nil
}

// ListSensors returns all sensors, optionally filtered by type.
func (s *Store) ListSensors(_ context.Context, typ iot.Type) ([]*iot.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*iot.Sensor
	for _, sensor := range s.sensors {
		if typ != "" && sensor.Type != typ {
			continue
		}
		cp := *sensor
		out = append(out, &cp)
	}
	return out, nil
}

//  notifications

// InsertNotification stores a copy of the notification.
func (s *Store) InsertNotification(_ context.Context, n *notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications[n.UserID] = append(s.notifications[n.UserID], &cp)
	return nil
}

// ListNotifications returns a user's notifications newest-first, bounded
// by the limit when positive.
func (s *Store) ListNotifications(_ context.Context, userID string, limit int) ([]*notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.notifications[userID]
	out := make([]*notify.Notification, 0, len(ns))
	for i := len(ns) - 1; i >= 0; i-- {
		cp := *ns[i]
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func copyReport(r *civic.Report) *civic.Report {
	cp := *r
	cp.Comments = append([]civic.Comment(nil), r.Comments...)
	cp.Tags = append([]string(nil), r.Tags...)
	if r.AIAnalysis != nil {
		a := *r.AIAnalysis
		a.DetectedObjects = append([]string(nil), r.AIAnalysis.DetectedObjects...)
		cp.AIAnalysis = &a
	}
	return &cp
}
