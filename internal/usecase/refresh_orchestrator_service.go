package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}

type RefreshOrchestratorConfig struct {
	ScheduleInterval time.Duration
	LiveInterval     time.Duration
	PreKickoffLead   time.Duration
}

type CycleInput struct {
	// TeamID narrows the cycle to one tracked team; zero covers all.
	TeamID int64
	Force  bool
}

type CycleResult struct {
	Mode             string        `json:"mode"`
	TeamCount        int           `json:"team_count"`
	LiveTeamCount    int           `json:"live_team_count"`
	QueuedCount      int           `json:"queued_count"`
	QueuedOperations []string      `json:"queued_operations"`
	NextCycleInMs    int64         `json:"next_cycle_in_ms"`
	Refresh          RefreshResult `json:"refresh"`
}

const jobPathCycle = "/v1/internal/jobs/cycle"

// maxCycleSleep caps how long the chain may sleep: a new fixture can appear
// inside a long gap, so the calendar gets rechecked at least this often.
const maxCycleSleep = 6 * time.Hour

// RefreshOrchestratorService runs one refresh cycle and books the next one:
// tight cadence while a tracked team plays, a pre-kickoff wake-up when a
// fixture approaches, and a slow idle poll otherwise.
type RefreshOrchestratorService struct {
	refresher  *RefreshService
	provider   match.Provider
	queue      JobQueue
	dispatches trigger.Repository
	cfg        RefreshOrchestratorConfig
	logger     *logging.Logger
	now        func() time.Time
}

var dedupUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func NewRefreshOrchestratorService(
	refresher *RefreshService,
	provider match.Provider,
	queue JobQueue,
	dispatches trigger.Repository,
	cfg RefreshOrchestratorConfig,
	logger *logging.Logger,
) *RefreshOrchestratorService {
	if queue == nil {
		queue = NewNoopJobQueue()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ScheduleInterval <= 0 {
		cfg.ScheduleInterval = 15 * time.Minute
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 2 * time.Minute
	}
	if cfg.PreKickoffLead <= 0 {
		cfg.PreKickoffLead = 15 * time.Minute
	}

	return &RefreshOrchestratorService{
		refresher:  refresher,
		provider:   provider,
		queue:      queue,
		dispatches: dispatches,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// RunCycle refreshes and enqueues the follow-up cycle through the job queue.
func (s *RefreshOrchestratorService) RunCycle(ctx context.Context, input CycleInput) (CycleResult, error) {
	return s.run(ctx, "cycle", input, true)
}

// RunCycleDirect refreshes without enqueueing; the in-process scheduler
// consumes NextCycleInMs instead when no queue is configured.
func (s *RefreshOrchestratorService) RunCycleDirect(ctx context.Context, input CycleInput) (CycleResult, error) {
	return s.run(ctx, "cycle-direct", input, false)
}

func (s *RefreshOrchestratorService) run(ctx context.Context, mode string, input CycleInput, enqueueNext bool) (CycleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshOrchestratorService.RunCycle")
	defer span.End()

	refresh, err := s.refresher.RunRefresh(ctx, RefreshInput{TeamID: input.TeamID})
	if err != nil {
		return CycleResult{}, err
	}

	now := s.now().UTC()
	result := CycleResult{
		Mode:             mode,
		TeamCount:        refresh.TeamCount,
		Refresh:          refresh,
		QueuedOperations: make([]string, 0, 1),
	}

	hasLive := false
	var nearestUpcoming *time.Time
	for _, row := range refresh.Teams {
		if row.Status != refreshStatusSuccess {
			continue
		}
		if team.LivenessStatus(row.Liveness).InProgress() {
			hasLive = true
			result.LiveTeamCount++
			continue
		}

		next, err := s.provider.NextMatch(ctx, row.TeamID)
		if err != nil {
			s.logger.WarnContext(ctx, "fetch next match for cadence failed",
				"team_id", row.TeamID,
				"error", err,
			)
			continue
		}
		if next == nil || next.KickoffAt.IsZero() || !next.KickoffAt.After(now) {
			continue
		}

		untilKickoff := next.KickoffAt.Sub(now)
		if untilKickoff <= s.cfg.PreKickoffLead {
			if s.refresher.AnnounceKickoff(ctx, row.TeamID, next) {
				result.QueuedOperations = append(result.QueuedOperations, "kickoff-soon:"+fmt.Sprint(row.TeamID))
			}
		}

		if nearestUpcoming == nil || next.KickoffAt.Before(*nearestUpcoming) {
			kickoff := next.KickoffAt
			nearestUpcoming = &kickoff
		}
	}

	delay, bucket := s.nextCycleDelay(now, hasLive, nearestUpcoming)
	if input.Force {
		delay = 0
	}
	result.NextCycleInMs = delay.Milliseconds()

	if !enqueueNext {
		return result, nil
	}

	if err := s.enqueueCycle(ctx, input.TeamID, delay, bucket, now); err != nil {
		return CycleResult{}, err
	}
	result.QueuedCount++
	result.QueuedOperations = append(result.QueuedOperations, "cycle:"+cycleScope(input.TeamID))

	return result, nil
}

func (s *RefreshOrchestratorService) enqueueCycle(ctx context.Context, teamID int64, delay time.Duration, bucket time.Duration, now time.Time) error {
	scope := cycleScope(teamID)
	dedupID := dedupKey("refresh-cycle", scope, now.Add(delay), bucket)
	payload := map[string]any{
		"team_id":     teamID,
		"dispatch_id": dedupID,
	}

	event := trigger.Event{
		DispatchID: dedupID,
		Kind:       trigger.KindRefreshCycle,
		TeamID:     teamID,
		Payload:    payload,
		Status:     trigger.StatusSent,
		OccurredAt: now.UTC(),
	}
	if err := s.queue.Enqueue(ctx, jobPathCycle, payload, delay, dedupID); err != nil {
		event.Status = trigger.StatusFailed
		event.ErrorMessage = err.Error()
		s.recordDispatchEvent(ctx, event)
		return fmt.Errorf("enqueue refresh cycle scope=%s: %w", scope, err)
	}
	s.recordDispatchEvent(ctx, event)
	return nil
}

func (s *RefreshOrchestratorService) recordDispatchEvent(ctx context.Context, event trigger.Event) {
	if s.dispatches == nil || strings.TrimSpace(event.DispatchID) == "" {
		return
	}

	event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.dispatches.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record cycle dispatch failed",
			"dispatch_id", event.DispatchID,
			"status", string(event.Status),
			"error", err,
		)
	}
}

// nextCycleDelay picks the polling cadence and the dedup bucket it was
// derived from.
func (s *RefreshOrchestratorService) nextCycleDelay(now time.Time, hasLive bool, nearestUpcoming *time.Time) (time.Duration, time.Duration) {
	minDelay := time.Minute
	if hasLive {
		return maxDuration(s.cfg.LiveInterval, minDelay), s.cfg.LiveInterval
	}

	if nearestUpcoming != nil {
		wakeAt := nearestUpcoming.Add(-s.cfg.PreKickoffLead)
		delay := wakeAt.Sub(now)
		if delay <= 0 {
			return maxDuration(s.cfg.LiveInterval, minDelay), s.cfg.LiveInterval
		}
		if delay > maxCycleSleep {
			delay = maxCycleSleep
		}
		return maxDuration(delay, minDelay), s.cfg.ScheduleInterval
	}

	// Nothing scheduled; poll rarely so an idle season does not burn the
	// provider quota.
	return maxDuration(s.cfg.ScheduleInterval, maxCycleSleep), s.cfg.ScheduleInterval
}

func cycleScope(teamID int64) string {
	if teamID > 0 {
		return fmt.Sprintf("team-%d", teamID)
	}
	return "all"
}

func dedupKey(prefix, scope string, at time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	slot := at.UTC().Truncate(bucket).Format("20060102T150405Z")
	prefix = sanitizeDedupSegment(prefix)
	scope = sanitizeDedupSegment(scope)
	return prefix + "-" + scope + "-" + slot
}

func sanitizeDedupSegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return dedupUnsafeCharRegex.ReplaceAllString(value, "-")
}

func traceMetaFromContext(ctx context.Context) (string, string) {
	spanContext := trace.SpanFromContext(ctx).SpanContext()
	if !spanContext.IsValid() {
		return "", ""
	}
	return spanContext.TraceID().String(), spanContext.SpanID().String()
}

func maxDuration(left, right time.Duration) time.Duration {
	if left > right {
		return left
	}
	return right
}
