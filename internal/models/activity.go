package models

import "time"

// Severity classifies an activity entry for the notification side-channel.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ActivityEntry is an informational audit record emitted after every
// command. It is fire-and-forget: a failure to record it never fails the
// originating command.
type ActivityEntry struct {
	// Action names the command, e.g. "complaint.assign".
	Action string `json:"action"`
	// Details is a human-readable summary of what happened.
	Details string `json:"details"`
	// TargetID is the id of the complaint the command touched.
	TargetID string `json:"target_id"`
	// Actor identifies who issued the command.
	Actor string `json:"actor"`

	Severity  Severity  `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}
