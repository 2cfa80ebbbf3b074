package persistence

import (
	"sort"

	"github.com/dukex/flowcanvas/pkg/models"
)

// Summarize returns the list view of record.
func Summarize(record *models.WorkflowRecord) *models.WorkflowSummary {
	return &models.WorkflowSummary{
		ID:          record.ID,
		Name:        record.Name,
		Description: record.Description,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		NodeCount:   len(record.Nodes),
		EdgeCount:   len(record.Edges),
	}
}

// SortByUpdated orders summaries by UpdatedAt, newest first. Ties keep id
// order so listings are stable.
func SortByUpdated(summaries []*models.WorkflowSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].ID < summaries[j].ID
		}

		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
}

// BuildStats aggregates summaries into dashboard stats. RecentWorkflows holds
// at most models.RecentWorkflowsLimit entries, newest CreatedAt first.
func BuildStats(summaries []*models.WorkflowSummary) *models.DashboardStats {
	stats := &models.DashboardStats{
		TotalWorkflows:  len(summaries),
		RecentWorkflows: make([]*models.WorkflowSummary, 0, models.RecentWorkflowsLimit),
	}

	recent := make([]*models.WorkflowSummary, len(summaries))
	copy(recent, summaries)

	for _, summary := range summaries {
		stats.TotalNodes += summary.NodeCount
	}

	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].CreatedAt.Equal(recent[j].CreatedAt) {
			return recent[i].ID < recent[j].ID
		}

		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})

	if len(recent) > models.RecentWorkflowsLimit {
		recent = recent[:models.RecentWorkflowsLimit]
	}

	stats.RecentWorkflows = append(stats.RecentWorkflows, recent...)

	return stats
}
