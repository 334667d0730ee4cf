package civic

import "time"

// Priority ranks how urgently a report needs attention.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status tracks where a report is in its lifecycle.
type Status string

const (
	// StatusOpen means submitted, nobody working on it yet
	StatusOpen Status = "open"

	// StatusInProgress means somebody picked it up
	StatusInProgress Status = "in_progress"

	// StatusResolved means the underlying issue was fixed
	StatusResolved Status = "resolved"

	// StatusClosed means closed without resolution (duplicate, invalid, ...)
	StatusClosed Status = "closed"
)

// ValidStatus reports whether s is one of the known report statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Location is a geographic point, optionally with a street address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Comment is a single append-only comment on a report.
type Comment struct {
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis is the structured result of the AI image classification step.
type Analysis struct {
	DetectedObjects   []string `json:"detected_objects"`
	Confidence        float64  `json:"confidence"`
	SuggestedCategory string   `json:"suggested_category"`
	UrgencyScore      int      `json:"urgency_score"`
}

// Report is a citizen-submitted civic issue.
type Report struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	Location    Location  `json:"location"`
	ImageRef    string    `json:"image_ref,omitempty"`
	AudioRef    string    `json:"audio_ref,omitempty"`
	ReporterID  string    `json:"reporter_id"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	AIAnalysis  *Analysis `json:"ai_analysis,omitempty"`
	Upvotes     int       `json:"upvotes"`
	Comments    []Comment `json:"comments"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// User is the slice of a user record the core needs: enough to enrich
// report listings and to address notifications.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReporterInfo is the public-facing subset of a user attached to enriched
// report views.
type ReporterInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReportView is a report enriched with reporter display fields and
// resolved blob URLs for API consumption.
type ReportView struct {
	Report
	Reporter *ReporterInfo `json:"reporter,omitempty"`
	ImageURL string        `json:"image_url,omitempty"`
	AudioURL string        `json:"audio_url,omitempty"`
}

// PriorityForScore maps a classifier urgency score to a report priority.
// Evaluated highest threshold first so the result is deterministic for
// any integer, including out-of-range scores.
func PriorityForScore(score int) Priority {
	switch {
	case score >= 8:
		return PriorityCritical
	case score >= 6:
		return PriorityHigh
	case score >= 4:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
