package config

import "time"

const (
	// Overdue
	// A complaint still open after this long counts as overdue on every
	// dashboard. Single shared constant; do not duplicate the literal.
	OverdueThreshold = 7 * 24 * time.Hour

	// Redis channels / streams
	ComplaintsChangedChannel = "complaints:changed"
	ActivityStream           = "activity:log"
	ActivityStreamMaxLen     = 10000

	// Subscriptions
	SubscriberBufferSize = 8
	SnapshotBufferSize   = 16

	// Auth
	JWTIssuer   = "civicgo-service"
	TokenExpiry = 72 * time.Hour

	// Admin CLI
	DefaultStaleResolvedDays = 14
)
