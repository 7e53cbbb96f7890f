// Package complaint is the command surface of the portal: every mutation
// of a complaint record goes through here. Each command validates its
// inputs, composes the append-only update entry, and issues a single
// atomic write; the projection resynchronizes through the store
// subscription rather than trusting a local optimistic merge.
package complaint

import (
	"civicgo/backend/internal/activity"
	"civicgo/backend/internal/models"
	"civicgo/backend/internal/storage"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Service handles the business logic for complaints.
type Service struct {
	Storage  storage.Storage
	Activity *activity.LogService
}

// NewService creates a new complaint service. The activity log may be nil.
func NewService(s storage.Storage, a *activity.LogService) *Service {
	return &Service{Storage: s, Activity: a}
}

// SubmitInput carries everything a citizen provides when filing a
// complaint.
type SubmitInput struct {
	Title       string
	Description string
	Category    string
	Department  models.Department
	Priority    models.Priority
	Location    models.Location
	Submitter   models.Submitter
	IsAnonymous bool
	IsPublic    bool
	Tags        []string
}

// Submit files a new complaint with status New and an empty update log.
func (s *Service) Submit(input SubmitInput) (*models.Complaint, error) {
	c := &models.Complaint{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Department:  input.Department,
		Priority:    input.Priority,
		Location:    input.Location,
		Submitter:   input.Submitter,
		IsAnonymous: input.IsAnonymous,
		IsPublic:    input.IsPublic,
		Status:      models.StatusNew,
		Updates:     models.UpdateLog{},
		Tags:        input.Tags,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	c.Normalize()

	id, err := s.Storage.AddComplaint(c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	s.record("complaint.submit",
		fmt.Sprintf("New complaint %q filed in %s", c.Title, c.Department),
		c.ID, c.Submitter.UserID, models.SeverityInfo)
	return c, nil
}

// Assign hands a complaint to a department (and optionally an officer),
// forcing its status to Assigned. The complaint's own department is
// derived from the assignment so the two can never disagree.
func (s *Service) Assign(id, departmentID, departmentName, officerID, officerName string, actor models.Actor) error {
	if id == "" || strings.TrimSpace(departmentName) == "" {
		return fmt.Errorf("%w: complaint id and department name are required", ErrValidation)
	}
	dept := models.Department(departmentName)
	if !dept.Valid() {
		return fmt.Errorf("%w: unknown department %q", ErrValidation, departmentName)
	}

	now := time.Now().UTC()
	assigned := models.StatusAssigned
	assignment := &models.Assignment{
		DepartmentID:   departmentID,
		DepartmentName: departmentName,
		OfficerID:      officerID,
		OfficerName:    officerName,
	}

	content := "Complaint assigned to " + departmentName
	if officerName != "" {
		content += " (officer " + officerName + ")"
	}

	err := s.Storage.PatchComplaint(id, storage.Patch{
		Status:     &assigned,
		Department: &dept,
		AssignedTo: assignment,
		UpdatedAt:  now,
		Append: &models.UpdateEntry{
			Timestamp: now,
			Content:   content,
			UpdatedBy: actor.DisplayName(),
			Kind:      models.KindAssignment,
			NewStatus: assigned,
		},
	})
	if err != nil {
		return s.wrapStoreErr(err, id)
	}

	s.record("complaint.assign", content, id, actor.DisplayName(), models.SeverityInfo)
	return nil
}

// UpdateStatus moves a complaint to a new lifecycle state, stamping the
// resolved/closed dates where applicable. Exactly one update entry
// carrying the new status is appended. Issuing the same transition twice
// appends two entries; status setting is deliberately not idempotent.
func (s *Service) UpdateStatus(id string, newStatus models.Status, note string, actor models.Actor) error {
	if id == "" {
		return fmt.Errorf("%w: complaint id is required", ErrValidation)
	}
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	if strings.TrimSpace(note) == "" {
		return fmt.Errorf("%w: a status note is required", ErrValidation)
	}
	return s.applyStatus(id, newStatus, note, actor)
}

// applyStatus is UpdateStatus without input validation, shared with the
// bulk path.
func (s *Service) applyStatus(id string, newStatus models.Status, note string, actor models.Actor) error {
	now := time.Now().UTC()

	patch := storage.Patch{
		Status:    &newStatus,
		UpdatedAt: now,
		Append: &models.UpdateEntry{
			Timestamp: now,
			Content:   note,
			UpdatedBy: actor.DisplayName(),
			Kind:      models.KindStatusChange,
			NewStatus: newStatus,
		},
	}
	switch newStatus {
	case models.StatusResolved:
		patch.ResolvedAt = &now
	case models.StatusClosed:
		patch.ClosedAt = &now
	}

	if err := s.Storage.PatchComplaint(id, patch); err != nil {
		return s.wrapStoreErr(err, id)
	}

	s.record("complaint.status",
		fmt.Sprintf("Status changed to %s: %s", newStatus, note),
		id, actor.DisplayName(), models.SeverityInfo)
	return nil
}

// AddReply appends a communication entry without touching the status.
func (s *Service) AddReply(id, content string, actor models.Actor) error {
	if id == "" || strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: complaint id and reply content are required", ErrValidation)
	}

	now := time.Now().UTC()
	err := s.Storage.PatchComplaint(id, storage.Patch{
		UpdatedAt: now,
		Append: &models.UpdateEntry{
			Timestamp: now,
			Content:   content,
			UpdatedBy: actor.DisplayName(),
			Kind:      models.KindReply,
		},
	})
	if err != nil {
		return s.wrapStoreErr(err, id)
	}

	s.record("complaint.reply", "Reply added", id, actor.DisplayName(), models.SeverityInfo)
	return nil
}

// BatchResult reports the outcome of a best-effort bulk operation.
type BatchResult struct {
	Succeeded []string
	Failed    map[string]error
}

// BulkUpdateStatus applies the same status change to every id
// concurrently. There is no cross-document transaction: successes stand
// even when other writes fail, and the caller gets ErrPartialBatch plus
// the per-id breakdown instead of a silent full success.
func (s *Service) BulkUpdateStatus(ids []string, newStatus models.Status, note string, actor models.Actor) (BatchResult, error) {
	result := BatchResult{Failed: make(map[string]error)}
	if len(ids) == 0 {
		return result, fmt.Errorf("%w: at least one complaint id is required", ErrValidation)
	}
	if !newStatus.Valid() {
		return result, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}
	if strings.TrimSpace(note) == "" {
		return result, fmt.Errorf("%w: a status note is required", ErrValidation)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			err := s.applyStatus(id, newStatus, note, actor)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err
			} else {
				result.Succeeded = append(result.Succeeded, id)
			}
		}(id)
	}
	wg.Wait()

	if len(result.Failed) > 0 {
		s.record("complaint.bulk_status",
			fmt.Sprintf("Bulk change to %s: %d succeeded, %d failed",
				newStatus, len(result.Succeeded), len(result.Failed)),
			"", actor.DisplayName(), models.SeverityWarning)
		return result, fmt.Errorf("%w: %d of %d writes failed",
			ErrPartialBatch, len(result.Failed), len(ids))
	}

	s.record("complaint.bulk_status",
		fmt.Sprintf("Bulk change to %s: all %d succeeded", newStatus, len(ids)),
		"", actor.DisplayName(), models.SeverityInfo)
	return result, nil
}

// Delete removes a complaint outright. There is no cascade; the update
// log lives inside the record.
func (s *Service) Delete(id string, actor models.Actor) error {
	if id == "" {
		return fmt.Errorf("%w: complaint id is required", ErrValidation)
	}
	if err := s.Storage.DeleteComplaint(id); err != nil {
		return s.wrapStoreErr(err, id)
	}
	s.record("complaint.delete", "Complaint deleted", id, actor.DisplayName(), models.SeverityWarning)
	return nil
}

// DeleteReply removes one update-log entry by index. This is a
// correction, not a lifecycle event, and it is the only mutation that
// replaces the log instead of appending to it.
func (s *Service) DeleteReply(id string, index int, actor models.Actor) error {
	if id == "" {
		return fmt.Errorf("%w: complaint id is required", ErrValidation)
	}

	c, err := s.Storage.GetComplaint(id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if index < 0 || index >= len(c.Updates) {
		return fmt.Errorf("%w: update index %d out of range", ErrValidation, index)
	}

	trimmed := make(models.UpdateLog, 0, len(c.Updates)-1)
	trimmed = append(trimmed, c.Updates[:index]...)
	trimmed = append(trimmed, c.Updates[index+1:]...)

	if err := s.Storage.ReplaceUpdates(id, trimmed); err != nil {
		return s.wrapStoreErr(err, id)
	}

	s.record("complaint.delete_reply",
		fmt.Sprintf("Update entry %d removed", index),
		id, actor.DisplayName(), models.SeverityWarning)
	return nil
}

// Vote records one community vote per user. It reports whether the vote
// counted.
func (s *Service) Vote(id, userID string) (bool, error) {
	if id == "" || userID == "" {
		return false, fmt.Errorf("%w: complaint id and user id are required", ErrValidation)
	}
	return s.Storage.AddVote(id, userID)
}

func (s *Service) wrapStoreErr(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *Service) record(action, details, targetID, actor string, severity models.Severity) {
	if s.Activity == nil {
		return
	}
	s.Activity.Record(&models.ActivityEntry{
		Action:   action,
		Details:  details,
		TargetID: targetID,
		Actor:    actor,
		Severity: severity,
	})
}
