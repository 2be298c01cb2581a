package postgres

import (
	"time"

	"github.com/lib/pq"
)

type triggerEventInsertModel struct {
	DispatchID    string         `db:"dispatch_id"`
	Kind          string         `db:"kind"`
	TeamID        int64          `db:"team_id"`
	DeviceIDs     pq.StringArray `db:"device_ids"`
	Payload       string         `db:"payload"`
	Status        string         `db:"status"`
	LastError     *string        `db:"last_error"`
	SentAt        *time.Time     `db:"sent_at"`
	FailedAt      *time.Time     `db:"failed_at"`
	SentTraceID   *string        `db:"sent_trace_id"`
	SentSpanID    *string        `db:"sent_span_id"`
	FailedTraceID *string        `db:"failed_trace_id"`
	FailedSpanID  *string        `db:"failed_span_id"`
}
