package models

// StreamEvent is the envelope sent to live dashboard subscribers over the
// WebSocket surface.
type StreamEvent struct {
	// Type is "snapshot" for a full complaint list or "stats" for a
	// recomputed aggregate.
	Type string `json:"type"`

	Complaints []Complaint     `json:"complaints,omitempty"`
	Stats      *ComplaintStats `json:"stats,omitempty"`
}

// Actor is the opaque current-actor value extracted from the bearer token
// by the API layer. The core treats authentication as an external concern
// and only ever reads these fields.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"` // "citizen", "officer" or "admin"
}

// DisplayName returns the best available human-readable name for logging
// and update-log attribution.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
