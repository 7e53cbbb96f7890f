package stats_test

import (
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/stats"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestLifecycleWalk follows one complaint through submit, assign and
// resolve, checking the aggregate after each snapshot the engine would
// produce.
func TestLifecycleWalk(t *testing.T) {
	c := models.Complaint{
		ID:         "c1",
		Title:      "Pipe burst",
		Department: models.DeptWaterSanitation,
		Priority:   models.PriorityHigh,
		Status:     models.StatusNew,
		Category:   "Water Leak",
	}

	// Submitted
	st := stats.Compute([]models.Complaint{c})
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 0, st.InProgress)
	assert.Equal(t, 1, st.ByDepartment[models.DeptWaterSanitation])
	assert.Equal(t, 1, st.ByPriority[models.PriorityHigh])

	// Assigned
	c.Status = models.StatusAssigned
	c.AssignedTo = &models.Assignment{DepartmentName: string(models.DeptWaterSanitation)}
	st = stats.Compute([]models.Complaint{c})
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 1, st.InProgress)

	// Resolved
	now := time.Now().UTC()
	c.Status = models.StatusResolved
	c.ResolvedAt = &now
	st = stats.Compute([]models.Complaint{c})
	assert.Equal(t, 0, st.InProgress)
	assert.Equal(t, 1, st.Resolved)
	assert.NotNil(t, c.ResolvedAt)
}
