package trigger

import "time"

// Kind names a match-state transition delivered to the flow engine.
type Kind string

const (
	KindMatchStarted    Kind = "match_started"
	KindScoreChanged    Kind = "score_changed"
	KindHalftimeStarted Kind = "halftime_started"
	KindMatchEnded      Kind = "match_ended"
	KindKickoffSoon     Kind = "kickoff_soon"

	// KindRefreshCycle audits job dispatches (queue self-calls and manual
	// runs) rather than a webhook delivery.
	KindRefreshCycle Kind = "refresh_cycle"
)

type DispatchStatus string

const (
	StatusSent   DispatchStatus = "sent"
	StatusFailed DispatchStatus = "failed"
)

// Event is one outbound dispatch attempt, recorded for auditability whether
// or not delivery succeeded.
type Event struct {
	DispatchID   string
	Kind         Kind
	TeamID       int64
	DeviceIDs    []string
	Payload      map[string]any
	Status       DispatchStatus
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
