package notify

import (
	"context"
	"errors"
	"testing"
)

type recordingStore struct {
	inserted []*Notification
	failFor  map[string]error
}

func (r *recordingStore) InsertNotification(_ context.Context, n *Notification) error {
	if err, ok := r.failFor[n.UserID]; ok {
		return err
	}
	cp := *n
	r.inserted = append(r.inserted, &cp)
	return nil
}

func (r *recordingStore) ListNotifications(_ context.Context, userID string, limit int) ([]*Notification, error) {
	var out []*Notification
	for _, n := range r.inserted {
		if n.UserID == userID {
			cp := *n
			out = append(out, &cp)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type staticDirectory struct {
	ids []string
	err error
}

func (s *staticDirectory) ListUserIDs(context.Context) ([]string, error) {
	return s.ids, s.err
}

func TestNotify_OneRecordPerRecipient(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	f := NewFanout(store, nil, nil)

	n := f.Notify(context.Background(), []string{"u1", "u2", "u3"},
		TypeIoTAlert, "IoT Sensor Alert", "critical values", Ref{SensorID: "WATER001"})

	if n != 3 {
		t.Fatalf("delivered = %d, want 3", n)
	}
	if len(store.inserted) != 3 {
		t.Fatalf("inserted = %d, want 3", len(store.inserted))
	}

	seen := make(map[string]bool)
	for _, rec := range store.inserted {
		seen[rec.UserID] = true
		if rec.ID == "" {
			t.Error("notification has no id")
		}
		if rec.Read {
			t.Error("new notification marked read")
		}
		if rec.Type != TypeIoTAlert {
			t.Errorf("type = %q, want iot_alert", rec.Type)
		}
		if rec.SensorID != "WATER001" || rec.ReportID != "" {
			t.Errorf("ref = sensor %q report %q, want WATER001/empty", rec.SensorID, rec.ReportID)
		}
		if rec.CreatedAt.IsZero() {
			t.Error("notification has zero timestamp")
		}
	}
	if len(seen) != 3 {
		t.Errorf("distinct recipients = %d, want 3", len(seen))
	}
}

func TestNotify_PartialFailureContinues(t *testing.T) {
	t.Parallel()

	store := &recordingStore{failFor: map[string]error{"u2": errors.New("disk full")}}
	f := NewFanout(store, nil, nil)

	n := f.Notify(context.Background(), []string{"u1", "u2", "u3"},
		TypeReportUpdate, "Report Status Updated", "resolved", Ref{ReportID: "r1"})

	if n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("inserted = %d, want 2", len(store.inserted))
	}
	for _, rec := range store.inserted {
		if rec.UserID == "u2" {
			t.Error("failed recipient was recorded")
		}
	}
}

func TestNotify_NoRecipients(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	f := NewFanout(store, nil, nil)

	if n := f.Notify(context.Background(), nil, TypeSystem, "t", "m", Ref{}); n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted = %d, want 0", len(store.inserted))
	}
}

func TestAllUsers_Recipients(t *testing.T) {
	t.Parallel()

	r := NewAllUsers(&staticDirectory{ids: []string{"u1", "u2"}})
	got, err := r.Recipients(context.Background())
	if err != nil {
		t.Fatalf("Recipients: %v", err)
	}
	if len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("recipients = %v, want [u1 u2]", got)
	}
}

func TestAllUsers_DirectoryError(t *testing.T) {
	t.Parallel()

	r := NewAllUsers(&staticDirectory{err: errors.New("unavailable")})
	if _, err := r.Recipients(context.Background()); err == nil {
		t.Error("expected directory error to propagate")
	}
}
