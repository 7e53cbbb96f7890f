// Package activity is the fire-and-forget audit side-channel. Every
// command records what it did here; nothing in the lifecycle core ever
// depends on these entries, and a failure to record one must never fail
// the command that produced it.
package activity

import (
	"civicgo/backend/internal/models"
	"log"
	"time"
)

// Notifier forwards noteworthy entries to an external channel (e.g. the
// Telegram admin chat). Implementations must be safe to call from any
// goroutine.
type Notifier interface {
	Notify(entry *models.ActivityEntry) error
}

// Sink is where entries are durably appended. storage.Service satisfies
// this with its Redis activity stream.
type Sink interface {
	LogActivity(entry *models.ActivityEntry) error
}

// LogService fans activity entries out to the sink, the process log, and
// (for warning/error severity) the notifier.
type LogService struct {
	Sink     Sink
	Notifier Notifier
}

// NewLogService creates a new activity log service. The notifier may be
// nil when no admin channel is configured.
func NewLogService(sink Sink, notifier Notifier) *LogService {
	return &LogService{Sink: sink, Notifier: notifier}
}

// Record logs one entry. All failures are swallowed with a log line.
func (l *LogService) Record(entry *models.ActivityEntry) {
	if entry.Severity == "" {
		entry.Severity = models.SeverityInfo
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	log.Printf("ACTIVITY [%s] %s: %s (target=%s actor=%s)",
		entry.Severity, entry.Action, entry.Details, entry.TargetID, entry.Actor)

	if l.Sink != nil {
		if err := l.Sink.LogActivity(entry); err != nil {
			log.Printf("WARNING: Failed to persist activity entry: %v", err)
		}
	}

	if l.Notifier != nil && entry.Severity != models.SeverityInfo {
		if err := l.Notifier.Notify(entry); err != nil {
			log.Printf("WARNING: Failed to notify admins: %v", err)
		}
	}
}
