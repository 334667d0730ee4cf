// Package pgstore provides a PostgreSQL implementation of the entity
// store interfaces (reports, users, sensors, notifications).
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/namangaonkar/civiclens/internal/civic"
	"github.com/namangaonkar/civiclens/internal/iot"
	"github.com/namangaonkar/civiclens/internal/notify"
)

var tracer = otel.Tracer("github.com/namangaonkar/civiclens/internal/store/pgstore")

//go:embed schema.sql
var schema string

// Store persists CivicLens entities in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema and returns a ready Store over the given pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func spanErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

//  reports

const reportColumns = `id, title, description, category, priority, status, location,
	image_ref, audio_ref, reporter_id, assignee_id, ai_analysis, upvotes, comments, tags, created_at`

// Get retrieves a report by id.
func (s *Store) Get(ctx context.Context, id string) (*civic.Report, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	r, err := scanReport(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	return r, true, nil
}

// Insert stores a new report.
func (s *Store) Insert(ctx context.Context, r *civic.Report) error {
	ctx, span := startSpan(ctx, "pgstore.Insert", "INSERT")
	defer span.End()

	location, err := json.Marshal(r.Location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	comments, err := json.Marshal(r.Comments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}
	tags, err := json.Marshal(r.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	var analysis []byte
	if r.AIAnalysis != nil {
		if analysis, err = json.Marshal(r.AIAnalysis); err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
	}

	query := `INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = s.pool.Exec(ctx, query,
		r.ID, r.Title, r.Description, r.Category, string(r.Priority), string(r.Status),
		location, r.ImageRef, r.AudioRef, r.ReporterID, r.AssigneeID, analysis,
		r.Upvotes, comments, tags, r.CreatedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Patch applies a partial update in a single UPDATE so concurrent
// patches to disjoint fields never clobber each other and upvote
// increments and comment appends are atomic.
func (s *Store) Patch(ctx context.Context, id string, p civic.ReportPatch) (*civic.Report, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Patch", "UPDATE")
	defer span.End()

	var (
		set  []string
		args []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf(expr, len(args)))
	}

	if p.Status != nil {
		add("status = $%d", string(*p.Status))
	}
	if p.AssigneeID != nil {
		add("assignee_id = $%d", *p.AssigneeID)
	}
	if p.Category != nil {
		add("category = $%d", *p.Category)
	}
	if p.Priority != nil {
		add("priority = $%d", string(*p.Priority))
	}
	if p.AIAnalysis != nil {
		b, err := json.Marshal(p.AIAnalysis)
		if err != nil {
			return nil, false, fmt.Errorf("marshal analysis: %w", err)
		}
		add("ai_analysis = $%d", b)
	}
	if p.UpvoteDelta != 0 {
		add("upvotes = upvotes + $%d", p.UpvoteDelta)
	}
	if p.AppendComment != nil {
		b, err := json.Marshal([]civic.Comment{*p.AppendComment})
		if err != nil {
			return nil, false, fmt.Errorf("marshal comment: %w", err)
		}
		add("comments = comments || $%d::jsonb", b)
	}

	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE reports SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), reportColumns)

	r, err := scanReport(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	return r, true, nil
}

// List returns reports newest-first with optional status/category filters.
func (s *Store) List(ctx context.Context, f civic.ListFilter) ([]*civic.Report, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	query := `SELECT ` + reportColumns + ` FROM reports
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC`
	args := []any{string(f.Status), f.Category}
	if f.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		spanErr(span, err)
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

// Search runs a full-text match against descriptions with optional
// equality filters, ranked by relevance.
func (s *Store) Search(ctx context.Context, term, category string, status civic.Status, limit int) ([]*civic.Report, error) {
	ctx, span := startSpan(ctx, "pgstore.Search", "SELECT")
	defer span.End()

	query := `SELECT ` + reportColumns + ` FROM reports
		WHERE to_tsvector('english', description) @@ plainto_tsquery('english', $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY ts_rank(to_tsvector('english', description), plainto_tsquery('english', $1)) DESC
		LIMIT $4`

	rows, err := s.pool.Query(ctx, query, term, category, string(status), limit)
	if err != nil {
		spanErr(span, err)
		return nil, err
	}
	defer rows.Close()
	return collectReports(rows)
}

func collectReports(rows pgx.Rows) ([]*civic.Report, error) {
	var out []*civic.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReport(row pgx.Row) (*civic.Report, error) {
	var (
		r        civic.Report
		priority string
		status   string
		location []byte
		analysis []byte
		comments []byte
		tags     []byte
	)
	err := row.Scan(
		&r.ID, &r.Title, &r.Description, &r.Category, &priority, &status, &location,
		&r.ImageRef, &r.AudioRef, &r.ReporterID, &r.AssigneeID, &analysis,
		&r.Upvotes, &comments, &tags, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Priority = civic.Priority(priority)
	r.Status = civic.Status(status)
	if err := json.Unmarshal(location, &r.Location); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	if len(analysis) > 0 {
		r.AIAnalysis = &civic.Analysis{}
		if err := json.Unmarshal(analysis, r.AIAnalysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	if err := json.Unmarshal(comments, &r.Comments); err != nil {
		return nil, fmt.Errorf("unmarshal comments: %w", err)
	}
	if err := json.Unmarshal(tags, &r.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &r, nil
}

//  users

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*civic.User, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetUser", "SELECT")
	defer span.End()

	var u civic.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	return &u, true, nil
}

// PutUser upserts a user record.
func (s *Store) PutUser(ctx context.Context, u *civic.User) error {
	ctx, span := startSpan(ctx, "pgstore.PutUser", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		u.ID, u.Name, u.Email,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]*civic.User, error) {
	ctx, span := startSpan(ctx, "pgstore.ListUsers", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT id, name, email FROM users ORDER BY id`)
	if err != nil {
		spanErr(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []*civic.User
	for rows.Next() {
		var u civic.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

// ListUserIDs returns all user ids.
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	ctx, span := startSpan(ctx, "pgstore.ListUserIDs", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		spanErr(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

//  sensors

const sensorColumns = `id, sensor_id, type, location, current_value, unit,
	threshold_min, threshold_max, status, last_updated`

// InsertSensor adds a provisioned sensor record.
func (s *Store) InsertSensor(ctx context.Context, sensor *iot.Sensor) error {
	ctx, span := startSpan(ctx, "pgstore.InsertSensor", "INSERT")
	defer span.End()

	location, err := json.Marshal(sensor.Location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sensors (`+sensorColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sensor.ID, sensor.SensorID, string(sensor.Type), location,
		sensor.CurrentValue, sensor.Unit,
		sensor.Threshold.Min, sensor.Threshold.Max,
		string(sensor.Status), sensor.LastUpdated,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert sensor: %w", err)
	}
	return nil
}

// GetBySensorID returns the first sensor with the given external id.
// Insertion order (id order) keeps the duplicate case deterministic.
func (s *Store) GetBySensorID(ctx context.Context, sensorID string) (*iot.Sensor, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetBySensorID", "SELECT")
	defer span.End()

	query := `SELECT ` + sensorColumns + ` FROM sensors WHERE sensor_id = $1 ORDER BY id LIMIT 1`
	sensor, err := scanSensor(s.pool.QueryRow(ctx, query, sensorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		spanErr(span, err)
		return nil, false, err
	}
	return sensor, true, nil
}

// UpdateReading overwrites value, status, and last-updated together.
func (s *Store) UpdateReading(ctx context.Context, id string, value float64, status iot.Status, at time.Time) error {
	ctx, span := startSpan(ctx, "pgstore.UpdateReading", "UPDATE")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`UPDATE sensors SET current_value = $2, status = $3, last_updated = $4 WHERE id = $1`,
		id, value, string(status), at,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("update reading: %w", err)
	}
	return nil
}

// ListSensors returns all sensors, optionally filtered by type.
func (s *Store) ListSensors(ctx context.Context, typ iot.Type) ([]*iot.Sensor, error) {
	ctx, span := startSpan(ctx, "pgstore.ListSensors", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+sensorColumns+` FROM sensors WHERE ($1 = '' OR type = $1) ORDER BY id`,
		string(typ),
	)
	if err != nil {
		spanErr(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []*iot.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sensor)
	}
	return out, rows.Err()
}

func scanSensor(row pgx.Row) (*iot.Sensor, error) {
	var (
		sensor   iot.Sensor
		typ      string
		status   string
		location []byte
	)
	err := row.Scan(
		&sensor.ID, &sensor.SensorID, &typ, &location,
		&sensor.CurrentValue, &sensor.Unit,
		&sensor.Threshold.Min, &sensor.Threshold.Max,
		&status, &sensor.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	sensor.Type = iot.Type(typ)
	sensor.Status = iot.Status(status)
	if err := json.Unmarshal(location, &sensor.Location); err != nil {
		return nil, fmt.Errorf("unmarshal location: %w", err)
	}
	return &sensor, nil
}

//  notifications

// InsertNotification stores a new notification record.
func (s *Store) InsertNotification(ctx context.Context, n *notify.Notification) error {
	ctx, span := startSpan(ctx, "pgstore.InsertNotification", "INSERT")
	defer span.End()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, read, report_id, sensor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message, n.Read, n.ReportID, n.SensorID, n.CreatedAt,
	)
	if err != nil {
		spanErr(span, err)
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications newest-first.
func (s *Store) ListNotifications(ctx context.Context, userID string, limit int) ([]*notify.Notification, error) {
	ctx, span := startSpan(ctx, "pgstore.ListNotifications", "SELECT")
	defer span.End()

	query := `SELECT id, user_id, type, title, message, read, report_id, sensor_id, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		spanErr(span, err)
		return nil, err
	}
	defer rows.Close()

	var out []*notify.Notification
	for rows.Next() {
		var (
			n   notify.Notification
			typ string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Read, &n.ReportID, &n.SensorID, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = notify.Type(typ)
		out = append(out, &n)
	}
	return out, rows.Err()
}
