// Package notify creates notification records for users. It is shared by
// the report lifecycle (status-change notices) and the sensor alerting
// engine (critical alerts): one record per recipient per triggering
// event, best-effort, never batched.
package notify

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// Type categorizes a notification for client-side routing.
type Type string

const (
	TypeReportUpdate Type = "report_update"
	TypeAssignment   Type = "assignment"
	TypeIoTAlert     Type = "iot_alert"
	TypeSystem       Type = "system"
)

// Notification is a one-way message to a single user. Immutable after
// creation except for the read flag.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	ReportID  string    `json:"report_id,omitempty"`
	SensorID  string    `json:"sensor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ref optionally correlates a notification with the report or sensor
// that triggered it.
type Ref struct {
	ReportID string
	SensorID string
}

// Store is the persistence interface for notifications.
type Store interface {
	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
}

// RecipientResolver decides which users receive a fan-out. The alerting
// engine is policy-agnostic; swapping the resolver changes the audience
// without touching engine logic.
type RecipientResolver interface {
	Recipients(ctx context.Context) ([]string, error)
}

// Directory lists known user ids. Implemented by the entity stores.
type Directory interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// AllUsers resolves the fan-out audience to every user in the directory.
type AllUsers struct {
	dir Directory
}

// NewAllUsers creates a resolver that targets every registered user.
func NewAllUsers(dir Directory) *AllUsers {
	return &AllUsers{dir: dir}
}

// Recipients returns every user id in the directory.
func (a *AllUsers) Recipients(ctx context.Context) ([]string, error) {
	return a.dir.ListUserIDs(ctx)
}

// Fanout creates one notification record per recipient. Inserts are
// independent: a failed recipient is logged and skipped, already-written
// records are not rolled back.
type Fanout struct {
	store   Store
	logger  log.Logger
	metrics *Metrics
}

// NewFanout creates a notification fan-out over the given store.
func NewFanout(store Store, logger log.Logger, metrics *Metrics) *Fanout {
	if logger == nil {
		logger = log.Nop()
	}
	return &Fanout{store: store, logger: logger, metrics: metrics}
}

// Notify writes one unread notification per recipient and returns how
// many inserts succeeded.
func (f *Fanout) Notify(ctx context.Context, recipients []string, typ Type, title, message string, ref Ref) int {
	delivered := 0
	for _, userID := range recipients {
		n := &Notification{
			ID:        ulid.Make().String(),
			UserID:    userID,
			Type:      typ,
			Title:     title,
			Message:   message,
			Read:      false,
			ReportID:  ref.ReportID,
			SensorID:  ref.SensorID,
			CreatedAt: time.Now(),
		}
		if err := f.store.InsertNotification(ctx, n); err != nil {
			f.logger.Error(ctx, err, "notification insert failed",
				"user_id", userID,
				"type", string(typ),
			)
			if f.metrics != nil {
				f.metrics.InsertFailures.Inc()
			}
			continue
		}
		delivered++
		if f.metrics != nil {
			f.metrics.NotificationsTotal.WithLabelValues(string(typ)).Inc()
		}
	}
	return delivered
}
