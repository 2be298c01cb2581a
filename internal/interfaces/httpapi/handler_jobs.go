package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/usecase"
	"go.opentelemetry.io/otel/trace"
)

var internalJobDispatchUnsafeRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func (h *Handler) RunRefreshJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefreshJob")
	defer span.End()

	if h.refreshService == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh worker is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.refreshService.RunRefresh(ctx, usecase.RefreshInput{
		TeamID:     req.TeamID,
		MaxWorkers: req.MaxWorkers,
	})
	if err != nil {
		h.recordInternalJobDispatch(ctx, "refresh", req, trigger.Event{
			Kind:         trigger.KindRefreshCycle,
			TeamID:       req.TeamID,
			Payload:      buildInternalJobPayload("refresh", req),
			Status:       trigger.StatusFailed,
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run refresh job failed", "team_id", req.TeamID, "max_workers", req.MaxWorkers, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, "refresh", req, trigger.Event{
		Kind:       trigger.KindRefreshCycle,
		TeamID:     req.TeamID,
		Payload:    buildInternalJobPayload("refresh", req),
		Status:     trigger.StatusSent,
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunCycleJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCycleJob")
	defer span.End()

	if h.cycleOrchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: refresh orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.cycleOrchestrator.RunCycle(ctx, usecase.CycleInput{
		TeamID: req.TeamID,
		Force:  req.Force,
	})
	if err != nil {
		h.recordInternalJobDispatch(ctx, "cycle", req, trigger.Event{
			Kind:         trigger.KindRefreshCycle,
			TeamID:       req.TeamID,
			Payload:      buildInternalJobPayload("cycle", req),
			Status:       trigger.StatusFailed,
			ErrorMessage: err.Error(),
			OccurredAt:   time.Now().UTC(),
		})
		h.logger.WarnContext(ctx, "run cycle job failed", "team_id", req.TeamID, "force", req.Force, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.recordInternalJobDispatch(ctx, "cycle", req, trigger.Event{
		Kind:       trigger.KindRefreshCycle,
		TeamID:     req.TeamID,
		Payload:    buildInternalJobPayload("cycle", req),
		Status:     trigger.StatusSent,
		OccurredAt: time.Now().UTC(),
	})

	writeSuccess(ctx, w, http.StatusOK, result)
}

func decodeInternalJobRequest(r *http.Request) (internalJobRequest, error) {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req internalJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalJobRequest{}, nil
		}
		return internalJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}

// recordInternalJobDispatch audits a job invocation. Queue callbacks carry
// the dispatch id minted at enqueue time, so the execution outcome lands on
// the same dispatch row; manual runs mint their own id.
func (h *Handler) recordInternalJobDispatch(ctx context.Context, job string, req internalJobRequest, event trigger.Event) {
	if h.triggerDispatchRepo == nil {
		return
	}

	dispatchID := strings.TrimSpace(req.DispatchID)
	if dispatchID == "" {
		dispatchID = buildManualDispatchID(job, req.TeamID, event.OccurredAt)
	}
	event.DispatchID = dispatchID

	traceID, spanID := traceMetaFromContext(ctx)
	event.TraceID = traceID
	event.SpanID = spanID

	if err := h.triggerDispatchRepo.UpsertEvent(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "record internal job dispatch failed",
			"dispatch_id", event.DispatchID,
			"job", job,
			"status", string(event.Status),
			"error", err,
		)
	}
}

func buildInternalJobPayload(job string, req internalJobRequest) map[string]any {
	payload := map[string]any{
		"job":     job,
		"team_id": req.TeamID,
	}
	if req.MaxWorkers > 0 {
		payload["max_workers"] = req.MaxWorkers
	}
	if req.Force {
		payload["force"] = true
	}
	if strings.TrimSpace(req.DispatchID) != "" {
		payload["dispatch_id"] = req.DispatchID
	}
	return payload
}

func buildManualDispatchID(job string, teamID int64, now time.Time) string {
	job = sanitizeDispatchPart(job)
	scope := "all"
	if teamID > 0 {
		scope = "team-" + strconv.FormatInt(teamID, 10)
	}
	ts := now.UTC().Format("20060102T150405.000000000Z")
	return "manual-" + job + "-" + scope + "-" + ts
}

func sanitizeDispatchPart(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return internalJobDispatchUnsafeRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

type internalJobRequest struct {
	TeamID     int64  `json:"team_id"`
	MaxWorkers int    `json:"max_workers"`
	Force      bool   `json:"force"`
	DispatchID string `json:"dispatch_id"`
}
