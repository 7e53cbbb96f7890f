package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusNew           Status = "New"
	StatusAssigned      Status = "Assigned"
	StatusInProgress    Status = "InProgress"
	StatusPendingReview Status = "PendingReview"
	StatusResolved      Status = "Resolved"
	StatusClosed        Status = "Closed"
	// StatusReopened is a side-transition reachable from Resolved or Closed.
	StatusReopened Status = "Reopened"
)

// AllStatuses lists every valid lifecycle state.
var AllStatuses = []Status{
	StatusNew, StatusAssigned, StatusInProgress,
	StatusPendingReview, StatusResolved, StatusClosed, StatusReopened,
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsOpen reports whether the complaint still requires work
// (i.e. it is neither Resolved nor Closed).
func (s Status) IsOpen() bool {
	return s != StatusResolved && s != StatusClosed
}

// Priority is the urgency level assigned to a complaint.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Department is the municipal department a complaint belongs to.
type Department string

const (
	DeptWaterSanitation Department = "Water and Sanitation"
	DeptRoadsTransport  Department = "Roads and Transport"
	DeptWasteManagement Department = "Waste Management"
	DeptGeneralServices Department = "General Services"
	DeptOther           Department = "Other"
)

// AllDepartments lists every municipal department.
var AllDepartments = []Department{
	DeptWaterSanitation, DeptRoadsTransport,
	DeptWasteManagement, DeptGeneralServices, DeptOther,
}

func (d Department) Valid() bool {
	for _, known := range AllDepartments {
		if d == known {
			return true
		}
	}
	return false
}

// UpdateKind tags an update-log entry with what produced it, so consumers
// never have to classify entries by sniffing their text.
type UpdateKind string

const (
	KindReply        UpdateKind = "reply"
	KindStatusChange UpdateKind = "status_change"
	KindAssignment   UpdateKind = "assignment"
)

// UpdateEntry is one record in a complaint's append-only update log.
// Entries are never edited in place; removal by index is a correction,
// not a lifecycle event.
type UpdateEntry struct {
	// Timestamp is when the entry was appended.
	Timestamp time.Time `json:"timestamp"`
	// Content is the human-readable note carried by the entry.
	Content string `json:"content"`
	// UpdatedBy identifies the actor (officer, admin or citizen) who
	// produced the entry.
	UpdatedBy string `json:"updated_by"`
	// Kind distinguishes replies from status changes and assignments.
	Kind UpdateKind `json:"kind"`
	// NewStatus is set only on status_change and assignment entries.
	NewStatus Status `json:"new_status,omitempty"`
}

// UpdateLog is the ordered, append-only sequence of update entries,
// stored as a single JSONB column.
type UpdateLog []UpdateEntry

// Value serializes the log for storage.
func (l UpdateLog) Value() (driver.Value, error) {
	if l == nil {
		l = UpdateLog{}
	}
	return json.Marshal(l)
}

// Scan deserializes the log from its JSONB representation.
func (l *UpdateLog) Scan(value interface{}) error {
	if value == nil {
		*l = UpdateLog{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into UpdateLog", value)
	}
	return json.Unmarshal(data, l)
}

// Assignment records which department and officer a complaint was
// handed to.
type Assignment struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	OfficerID      string `json:"officer_id,omitempty"`
	OfficerName    string `json:"officer_name,omitempty"`
}

func (a Assignment) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Assignment) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Assignment", value)
	}
	return json.Unmarshal(data, a)
}

// Location is where the reported issue is situated. Address is required;
// the rest is optional detail.
type Location struct {
	Address  string  `gorm:"type:text" json:"address"`
	Ward     string  `gorm:"type:text" json:"ward,omitempty"`
	District string  `gorm:"type:text" json:"district,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
}

// Submitter identifies the citizen who filed the complaint.
type Submitter struct {
	UserID  string `gorm:"type:text;index" json:"user_id"`
	Name    string `gorm:"type:text" json:"name"`
	Contact string `gorm:"type:text" json:"contact,omitempty"`
	Email   string `gorm:"type:text" json:"email,omitempty"`
}

// Complaint is the central record of the portal. Lifecycle timestamps and
// the update log are mutated only through the command surface, never by
// direct edits.
type Complaint struct {
	// ID is the store-assigned identifier (UUID).
	ID string `gorm:"primaryKey" json:"id"`
	// PublicID is the human-readable tracking code handed to the citizen,
	// usable for anonymous follow-up.
	PublicID string `gorm:"uniqueIndex" json:"public_id"`

	Title       string     `gorm:"type:text;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Category    string     `gorm:"type:text;index" json:"category"`
	Department  Department `gorm:"type:text;index" json:"department"`
	Priority    Priority   `gorm:"type:text" json:"priority"`
	Status      Status     `gorm:"type:text;index" json:"status"`

	Location  Location  `gorm:"embedded;embeddedPrefix:loc_" json:"location"`
	Submitter Submitter `gorm:"embedded;embeddedPrefix:submitter_" json:"submitter"`

	// IsAnonymous hides the submitter identity from public views.
	IsAnonymous bool `json:"is_anonymous"`
	// IsPublic makes the complaint visible on the public board.
	IsPublic bool `json:"is_public"`

	// AssignedTo is nil until the complaint is assigned to a department.
	AssignedTo *Assignment `gorm:"type:jsonb" json:"assigned_to,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`

	// Updates is the append-only update log (JSONB).
	Updates UpdateLog `gorm:"type:jsonb;not null;default:'[]'" json:"updates"`

	// Votes and Tags are community-interaction metadata, outside the
	// lifecycle invariants.
	Votes   int            `json:"votes"`
	VotedBy pq.StringArray `gorm:"type:text[]" json:"-"`
	Tags    pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`
}

// BeforeCreate generates the store ID and the public tracking ID if they
// are not already set.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.PublicID == "" {
		c.PublicID = NewPublicID()
	}
	return
}

// NewPublicID produces a short human-readable tracking code like
// "CMP-9F2C41A7".
func NewPublicID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "CMP-" + strings.ToUpper(raw[:8])
}

// Normalize repairs a record at the store boundary so malformed documents
// never enter the projection: unknown enums fall back to safe defaults and
// a nil update log becomes an empty one.
func (c *Complaint) Normalize() {
	if !c.Status.Valid() {
		c.Status = StatusNew
	}
	if !c.Department.Valid() {
		c.Department = DeptOther
	}
	if c.Category == "" {
		c.Category = "Unknown"
	}
	if c.Priority != "" && !c.Priority.Valid() {
		c.Priority = PriorityMedium
	}
	if c.Updates == nil {
		c.Updates = UpdateLog{}
	}
}

// Validate checks the fields the command surface requires before a write
// is attempted. It is defensive only; schema validation beyond
// null/empty checks is not the model's job.
func (c *Complaint) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(c.Location.Address) == "" {
		return errors.New("address is required")
	}
	if !c.IsAnonymous && strings.TrimSpace(c.Submitter.UserID) == "" {
		return errors.New("submitter is required for non-anonymous complaints")
	}
	return nil
}

// ComplaintStats is the derived aggregate over a snapshot. It is never
// stored; it is recomputed in full from the projection on every change.
type ComplaintStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`

	ByPriority   map[Priority]int   `json:"by_priority"`
	ByCategory   map[string]int     `json:"by_category"`
	ByDepartment map[Department]int `json:"by_department"`
}
