package civic

import "context"

// ReportPatch is a partial update applied atomically to a single report
// record. Nil fields are left untouched. UpvoteDelta and AppendComment
// are applied inside the store's write path so concurrent callers never
// lose increments or comments; all other fields are last-write-wins.
type ReportPatch struct {
	Status        *Status
	AssigneeID    *string
	Category      *string
	Priority      *Priority
	AIAnalysis    *Analysis
	UpvoteDelta   int
	AppendComment *Comment
}

// ListFilter narrows a report listing. Zero values mean "no filter".
type ListFilter struct {
	Status   Status
	Category string
	Limit    int
}

// Store is the persistence interface for reports.
type Store interface {
	Get(ctx context.Context, id string) (*Report, bool, error)
	Insert(ctx context.Context, r *Report) error
	Patch(ctx context.Context, id string, p ReportPatch) (*Report, bool, error)

	// List returns reports matching the filter in reverse-chronological
	// order, bounded by the filter limit when it is positive.
	List(ctx context.Context, f ListFilter) ([]*Report, error)

	// Search runs a full-text match against report descriptions, with
	// optional equality filters, in engine-defined relevance order.
	Search(ctx context.Context, term string, category string, status Status, limit int) ([]*Report, error)
}

// UserStore is the persistence interface for user records.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*User, bool, error)
	ListUsers(ctx context.Context) ([]*User, error)
}
