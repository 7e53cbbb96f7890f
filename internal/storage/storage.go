// Package storage is the document-store adapter for the complaint portal.
// Complaints live in PostgreSQL; Redis carries the change-notification
// channel that drives live query subscriptions and the activity stream.
package storage

import (
	"civicgo/backend/internal/config"
	"civicgo/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a write targets a complaint that does not
// exist in the store.
var ErrNotFound = errors.New("complaint not found")

// Filter narrows a query or subscription to a server-side subset of the
// collection. Zero-value fields are ignored.
type Filter struct {
	Department  models.Department
	SubmitterID string
	Status      models.Status
	OnlyPublic  bool
}

// Patch is a partial update applied atomically to a single complaint.
// Append, when set, is concatenated to the update log inside the database
// (never a read-modify-write), so concurrent appenders cannot lose entries.
type Patch struct {
	Status     *models.Status
	Department *models.Department
	AssignedTo *models.Assignment
	ResolvedAt *time.Time
	ClosedAt   *time.Time

	Append *models.UpdateEntry

	// UpdatedAt stamps dates.updated; the zero value means "now".
	UpdatedAt time.Time
}

// Storage is the persistence surface the lifecycle engine and the command
// surface depend on. The concrete Service runs on PostgreSQL + Redis; tests
// substitute a mock.
type Storage interface {
	GetComplaint(id string) (*models.Complaint, error)
	QueryComplaints(f Filter) ([]models.Complaint, error)
	AddComplaint(c *models.Complaint) (string, error)
	PatchComplaint(id string, p Patch) error
	ReplaceUpdates(id string, updates models.UpdateLog) error
	DeleteComplaint(id string) error
	AddVote(id, userID string) (bool, error)

	// SubscribeComplaints delivers the current result set immediately and a
	// full re-queried snapshot after every change to the collection. The
	// returned func tears the subscription down; failing to call it leaks a
	// listener for the process lifetime.
	SubscribeComplaints(ctx context.Context, f Filter) (<-chan []models.Complaint, func())

	// LogActivity records an audit entry. Best-effort: callers must never
	// fail a command because this errored.
	LogActivity(entry *models.ActivityEntry) error
}

// Service implements Storage on top of gorm (PostgreSQL) and go-redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// GetComplaint returns the complaint with the given store id, or nil if it
// does not exist.
func (s *Service) GetComplaint(id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Normalize()
	return &c, nil
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.Department != "" {
		q = q.Where("department = ?", f.Department)
	}
	if f.SubmitterID != "" {
		q = q.Where("submitter_user_id = ?", f.SubmitterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OnlyPublic {
		q = q.Where("is_public = ?", true)
	}
	return q
}

// QueryComplaints runs a one-shot filtered query, newest created first.
// Every row is normalized at the boundary so malformed documents never
// reach the projection.
func (s *Service) QueryComplaints(f Filter) ([]models.Complaint, error) {
	var list []models.Complaint
	q := f.apply(s.DB.Model(&models.Complaint{}))
	if err := q.Order("created_at desc").Find(&list).Error; err != nil {
		log.Printf("ERROR: Failed to query complaints: %v", err)
		return nil, err
	}
	for i := range list {
		list[i].Normalize()
	}
	return list, nil
}

// AddComplaint persists a new complaint and announces the change. The
// store-assigned id is returned.
func (s *Service) AddComplaint(c *models.Complaint) (string, error) {
	if err := s.DB.Create(c).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint %s: %v", c.PublicID, err)
		return "", err
	}
	s.NotifyChanged()
	return c.ID, nil
}

// PatchComplaint applies a partial update in a single atomic UPDATE. The
// update-log append happens inside the database via JSONB concatenation.
func (s *Service) PatchComplaint(id string, p Patch) error {
	now := p.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	fields := map[string]interface{}{"updated_at": now}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.Department != nil {
		fields["department"] = *p.Department
	}
	if p.AssignedTo != nil {
		fields["assigned_to"] = p.AssignedTo
	}
	if p.ResolvedAt != nil {
		fields["resolved_at"] = p.ResolvedAt
	}
	if p.ClosedAt != nil {
		fields["closed_at"] = p.ClosedAt
	}
	if p.Append != nil {
		entryJSON, err := json.Marshal([]models.UpdateEntry{*p.Append})
		if err != nil {
			return err
		}
		fields["updates"] = gorm.Expr("updates || ?::jsonb", string(entryJSON))
	}

	result := s.DB.Model(&models.Complaint{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		log.Printf("ERROR: Failed to patch complaint %s: %v", id, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.NotifyChanged()
	return nil
}

// ReplaceUpdates overwrites the whole update log. This is the one mutation
// that is not append-only; it exists solely for tombstoning an entry by
// index.
func (s *Service) ReplaceUpdates(id string, updates models.UpdateLog) error {
	result := s.DB.Model(&models.Complaint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"updates":    updates,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.NotifyChanged()
	return nil
}

// DeleteComplaint removes the record. No cascade: replies live inside the
// record itself.
func (s *Service) DeleteComplaint(id string) error {
	result := s.DB.Where("id = ?", id).Delete(&models.Complaint{})
	if result.Error != nil {
		log.Printf("ERROR: Failed to delete complaint %s: %v", id, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.NotifyChanged()
	return nil
}

// AddVote increments the vote counter once per user, atomically. It
// reports whether the vote was counted (false means the user had already
// voted or the complaint is gone).
func (s *Service) AddVote(id, userID string) (bool, error) {
	result := s.DB.Exec(
		`UPDATE complaints
		 SET votes = votes + 1,
		     voted_by = array_append(coalesce(voted_by, '{}'), ?)
		 WHERE id = ? AND NOT (? = ANY(coalesce(voted_by, '{}')))`,
		userID, id, userID,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	s.NotifyChanged()
	return true, nil
}

// NotifyChanged announces a collection change on the Redis pub/sub channel
// that drives live subscriptions. Publish failures are logged and dropped;
// the write already committed.
func (s *Service) NotifyChanged() {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Publish(s.Ctx, config.ComplaintsChangedChannel, "changed").Err(); err != nil {
		log.Printf("WARNING: Failed to publish change notification: %v", err)
	}
}

// LogActivity appends an audit entry to the capped Redis activity stream.
func (s *Service) LogActivity(entry *models.ActivityEntry) error {
	if s.Redis == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.Redis.XAdd(s.Ctx, &redis.XAddArgs{
		Stream: config.ActivityStream,
		MaxLen: config.ActivityStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"entry": string(payload)},
	}).Err()
}
