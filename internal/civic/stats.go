package civic

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DashboardStats aggregates report counts for the dashboard.
type DashboardStats struct {
	TotalReports      int            `json:"total_reports"`
	OpenReports       int            `json:"open_reports"`
	InProgressReports int            `json:"in_progress_reports"`
	ResolvedReports   int            `json:"resolved_reports"`
	CriticalReports   int            `json:"critical_reports"`
	HighReports       int            `json:"high_reports"`
	MediumReports     int            `json:"medium_reports"`
	LowReports        int            `json:"low_reports"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	RecentReports     int            `json:"recent_reports"`
	ResolutionRate    int            `json:"resolution_rate"`
}

// Stats computes dashboard aggregates over all reports. Recent means
// created within the last seven days; resolution rate is the rounded
// percentage of resolved reports.
func (s *Service) Stats(ctx context.Context) (*DashboardStats, error) {
	reports, err := s.store.List(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	st := &DashboardStats{CategoryBreakdown: make(map[string]int)}
	st.TotalReports = len(reports)

	cutoff := time.Now().AddDate(0, 0, -7)
	for _, r := range reports {
		switch r.Status {
		case StatusOpen:
			st.OpenReports++
		case StatusInProgress:
			st.InProgressReports++
		case StatusResolved:
			st.ResolvedReports++
		}
		switch r.Priority {
		case PriorityCritical:
			st.CriticalReports++
		case PriorityHigh:
			st.HighReports++
		case PriorityMedium:
			st.MediumReports++
		case PriorityLow:
			st.LowReports++
		}
		st.CategoryBreakdown[r.Category]++
		if r.CreatedAt.After(cutoff) {
			st.RecentReports++
		}
	}

	if st.TotalReports > 0 {
		st.ResolutionRate = int(math.Round(float64(st.ResolvedReports) / float64(st.TotalReports) * 100))
	}

	return st, nil
}
