package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	qb "github.com/riskibarqy/matchday/internal/platform/querybuilder"
)

// TriggerEventRepository is the dispatch audit trail. Every webhook and queue
// dispatch lands here exactly once per dispatch id, with the latest delivery
// outcome winning.
type TriggerEventRepository struct {
	db *sqlx.DB
}

func NewTriggerEventRepository(db *sqlx.DB) *TriggerEventRepository {
	return &TriggerEventRepository{db: db}
}

func (r *TriggerEventRepository) UpsertEvent(ctx context.Context, event trigger.Event) error {
	dispatchID := strings.TrimSpace(event.DispatchID)
	if dispatchID == "" {
		return fmt.Errorf("dispatch id is required")
	}

	kind := strings.TrimSpace(string(event.Kind))
	if kind == "" {
		kind = "unknown"
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	payloadJSON, err := marshalPayload(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal trigger event payload: %w", err)
	}

	model := triggerEventInsertModel{
		DispatchID: dispatchID,
		Kind:       kind,
		TeamID:     event.TeamID,
		DeviceIDs:  pq.StringArray(event.DeviceIDs),
		Payload:    payloadJSON,
		Status:     string(event.Status),
		LastError:  optionalString(event.ErrorMessage),
	}
	if model.DeviceIDs == nil {
		model.DeviceIDs = pq.StringArray{}
	}

	switch event.Status {
	case trigger.StatusSent:
		model.SentAt = &occurredAt
		model.SentTraceID = optionalString(event.TraceID)
		model.SentSpanID = optionalString(event.SpanID)
		model.LastError = nil
	case trigger.StatusFailed:
		model.FailedAt = &occurredAt
		model.FailedTraceID = optionalString(event.TraceID)
		model.FailedSpanID = optionalString(event.SpanID)
	}

	query, args, err := qb.InsertModel("trigger_events", model, `ON CONFLICT (dispatch_id) WHERE deleted_at IS NULL
DO UPDATE SET
    kind = EXCLUDED.kind,
    team_id = EXCLUDED.team_id,
    device_ids = EXCLUDED.device_ids,
    payload = EXCLUDED.payload,
    status = EXCLUDED.status,
    sent_at = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_at
        ELSE COALESCE(trigger_events.sent_at, EXCLUDED.sent_at)
    END,
    failed_at = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_at
        WHEN EXCLUDED.status = 'sent' THEN NULL
        ELSE trigger_events.failed_at
    END,
    last_error = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.last_error
        ELSE NULL
    END,
    sent_trace_id = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_trace_id
        ELSE trigger_events.sent_trace_id
    END,
    sent_span_id = CASE
        WHEN EXCLUDED.status = 'sent' THEN EXCLUDED.sent_span_id
        ELSE trigger_events.sent_span_id
    END,
    failed_trace_id = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_trace_id
        ELSE trigger_events.failed_trace_id
    END,
    failed_span_id = CASE
        WHEN EXCLUDED.status = 'failed' THEN EXCLUDED.failed_span_id
        ELSE trigger_events.failed_span_id
    END,
    updated_at = NOW(),
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert trigger event query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert trigger event dispatch_id=%s status=%s: %w", dispatchID, event.Status, err)
	}

	return nil
}
