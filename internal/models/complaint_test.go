package models_test

import (
	"civicgo/backend/internal/models"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestComplaintBeforeCreate_GeneratesIDs verifies that the hook fills in
// both the store id and the public tracking id.
func TestComplaintBeforeCreate_GeneratesIDs(t *testing.T) {
	// Arrange
	c := &models.Complaint{Title: "Pipe burst"}

	assert.Empty(t, c.ID, "store ID should be empty before BeforeCreate")
	assert.Empty(t, c.PublicID, "public ID should be empty before BeforeCreate")

	// Act
	err := c.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	// Assert
	assert.NoError(t, err)
	_, parseErr := uuid.Parse(c.ID)
	assert.NoError(t, parseErr, "store ID must be a valid UUID")
	assert.True(t, strings.HasPrefix(c.PublicID, "CMP-"))
	assert.Len(t, c.PublicID, len("CMP-")+8)
}

// TestComplaintBeforeCreate_PreservesExistingIDs verifies the hook never
// overwrites ids that are already set.
func TestComplaintBeforeCreate_PreservesExistingIDs(t *testing.T) {
	c := &models.Complaint{ID: "existing-id", PublicID: "CMP-AAAAAAAA"}

	err := c.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, "existing-id", c.ID)
	assert.Equal(t, "CMP-AAAAAAAA", c.PublicID)
}

// TestUpdateLogRoundTrip checks that the JSONB column type reproduces
// every entry field through Value and Scan.
func TestUpdateLogRoundTrip(t *testing.T) {
	// Arrange
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	original := models.UpdateLog{
		{Timestamp: ts, Content: "Assigned to Roads and Transport", UpdatedBy: "admin", Kind: models.KindAssignment, NewStatus: models.StatusAssigned},
		{Timestamp: ts.Add(time.Hour), Content: "Crew dispatched", UpdatedBy: "officer", Kind: models.KindReply},
	}

	// Act
	raw, err := original.Value()
	assert.NoError(t, err)

	var decoded models.UpdateLog
	err = decoded.Scan(raw)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}

// TestUpdateLogScanNil ensures a NULL column becomes an empty, non-nil log.
func TestUpdateLogScanNil(t *testing.T) {
	var l models.UpdateLog

	err := l.Scan(nil)

	assert.NoError(t, err)
	assert.NotNil(t, l)
	assert.Empty(t, l)
}

// TestNormalizeRepairsMalformedRecord verifies the store-boundary
// normalization: unknown enums fall back to safe defaults instead of being
// null-checked at every read site.
func TestNormalizeRepairsMalformedRecord(t *testing.T) {
	// Arrange
	c := &models.Complaint{
		Status:     models.Status("Bogus"),
		Department: models.Department("Sewers"),
		Priority:   models.Priority("ASAP"),
	}

	// Act
	c.Normalize()

	// Assert
	assert.Equal(t, models.StatusNew, c.Status)
	assert.Equal(t, models.DeptOther, c.Department)
	assert.Equal(t, "Unknown", c.Category)
	assert.Equal(t, models.PriorityMedium, c.Priority)
	assert.NotNil(t, c.Updates)
}

// TestNormalizeLeavesUnsetPriority verifies an absent priority stays
// absent (it is omitted from aggregates, not defaulted).
func TestNormalizeLeavesUnsetPriority(t *testing.T) {
	c := &models.Complaint{Status: models.StatusNew, Department: models.DeptOther}

	c.Normalize()

	assert.Equal(t, models.Priority(""), c.Priority)
}

func TestValidate(t *testing.T) {
	valid := models.Complaint{
		Title:     "Pothole on Main St",
		Location:  models.Location{Address: "Main St 12"},
		Submitter: models.Submitter{UserID: "user-1"},
	}

	t.Run("valid complaint passes", func(t *testing.T) {
		c := valid
		assert.NoError(t, c.Validate())
	})

	t.Run("missing title rejected", func(t *testing.T) {
		c := valid
		c.Title = "  "
		assert.Error(t, c.Validate())
	})

	t.Run("missing address rejected", func(t *testing.T) {
		c := valid
		c.Location.Address = ""
		assert.Error(t, c.Validate())
	})

	t.Run("anonymous complaint needs no submitter", func(t *testing.T) {
		c := valid
		c.Submitter = models.Submitter{}
		c.IsAnonymous = true
		assert.NoError(t, c.Validate())
	})

	t.Run("named complaint needs a submitter", func(t *testing.T) {
		c := valid
		c.Submitter = models.Submitter{}
		assert.Error(t, c.Validate())
	})
}

func TestStatusIsOpen(t *testing.T) {
	assert.True(t, models.StatusNew.IsOpen())
	assert.True(t, models.StatusReopened.IsOpen())
	assert.False(t, models.StatusResolved.IsOpen())
	assert.False(t, models.StatusClosed.IsOpen())
}

// TestNewPublicIDUniqueness is a sanity check that tracking codes do not
// collide over a realistic burst of submissions.
func TestNewPublicIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := models.NewPublicID()
		assert.False(t, seen[id], "duplicate public id %s", id)
		seen[id] = true
	}
}
