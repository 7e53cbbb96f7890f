// Package stats derives aggregate figures from a complaint snapshot.
// Nothing here is persisted: every value is a deterministic function of the
// list it was computed from, which keeps the counters drift-free at the
// cost of an O(n) pass per update.
package stats

import (
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"time"
)

// Compute tallies a full snapshot in a single pass.
//
// Bucketing: New and PendingReview count as pending; Assigned and
// InProgress as in-progress; Resolved and Closed as themselves. Reopened
// complaints are counted in Total and in the per-field tallies but in none
// of the four status buckets.
func Compute(list []models.Complaint) models.ComplaintStats {
	st := models.ComplaintStats{
		Total:        len(list),
		ByPriority:   make(map[models.Priority]int),
		ByCategory:   make(map[string]int),
		ByDepartment: make(map[models.Department]int),
	}

	for i := range list {
		c := &list[i]

		switch c.Status {
		case models.StatusNew, models.StatusPendingReview:
			st.Pending++
		case models.StatusAssigned, models.StatusInProgress:
			st.InProgress++
		case models.StatusResolved:
			st.Resolved++
		case models.StatusClosed:
			st.Closed++
		}

		if c.Priority != "" {
			st.ByPriority[c.Priority]++
		}

		category := c.Category
		if category == "" {
			category = "Unknown"
		}
		st.ByCategory[category]++

		department := c.Department
		if department == "" {
			department = "Unknown"
		}
		st.ByDepartment[department]++
	}

	return st
}

// IsOverdue reports whether a complaint is still open past the shared
// overdue threshold.
func IsOverdue(c *models.Complaint, now time.Time) bool {
	return c.Status.IsOpen() && now.Sub(c.CreatedAt) > config.OverdueThreshold
}

// CountOverdue is the per-dashboard overdue figure, computed over whatever
// scoped view the dashboard sees. Different scopes legitimately produce
// different counts.
func CountOverdue(list []models.Complaint, now time.Time) int {
	count := 0
	for i := range list {
		if IsOverdue(&list[i], now) {
			count++
		}
	}
	return count
}
