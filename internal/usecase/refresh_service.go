package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

type RefreshInput struct {
	// TeamID narrows the run to one tracked team; zero refreshes all.
	TeamID     int64
	MaxWorkers int
}

type RefreshResult struct {
	TeamCount    int                 `json:"team_count"`
	SuccessCount int                 `json:"success_count"`
	FailedCount  int                 `json:"failed_count"`
	EventCount   int                 `json:"event_count"`
	WorkerCount  int                 `json:"worker_count"`
	Teams        []TeamRefreshResult `json:"teams"`
}

type TeamRefreshResult struct {
	TeamID     int64    `json:"team_id"`
	Status     string   `json:"status"`
	Liveness   string   `json:"liveness,omitempty"`
	Events     []string `json:"events,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Message    string   `json:"message,omitempty"`
}

const (
	refreshStatusSuccess = "success"
	refreshStatusFailed  = "failed"
)

// TriggerPublisher delivers trigger events to the flow engine.
type TriggerPublisher interface {
	Publish(ctx context.Context, event trigger.Event) error
}

type noopTriggerPublisher struct{}

func (noopTriggerPublisher) Publish(context.Context, trigger.Event) error {
	return nil
}

func NewNoopTriggerPublisher() TriggerPublisher {
	return noopTriggerPublisher{}
}

// MatchMirror persists the latest provider snapshot per team for offline
// inspection.
type MatchMirror interface {
	UpsertMatch(ctx context.Context, teamID int64, item match.Match) error
}

type RefreshConfig struct {
	MaxWorkers int
}

type refreshTarget struct {
	teamID    int64
	deviceIDs []string
}

// teamObservation is what one refresh pass saw for a team. Transition
// detection compares consecutive observations.
type teamObservation struct {
	match     *match.Match
	status    team.LivenessStatus
	matchID   int64
	homeScore int
	awayScore int
}

// RefreshService polls the provider for every tracked team, keeps the
// liveness status cache current, and turns observation deltas into trigger
// events. It is the only writer of the status cache.
type RefreshService struct {
	devices     device.Repository
	provider    match.Provider
	statusCache team.StatusCache
	mirror      MatchMirror
	publisher   TriggerPublisher
	dispatches  trigger.Repository
	cfg         RefreshConfig
	logger      *logging.Logger
	now         func() time.Time

	mu        sync.Mutex
	observed  map[int64]teamObservation
	announced map[string]struct{}
}

func NewRefreshService(
	devices device.Repository,
	provider match.Provider,
	statusCache team.StatusCache,
	mirror MatchMirror,
	publisher TriggerPublisher,
	dispatches trigger.Repository,
	cfg RefreshConfig,
	logger *logging.Logger,
) *RefreshService {
	if publisher == nil {
		publisher = NewNoopTriggerPublisher()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 2
	}

	return &RefreshService{
		devices:     devices,
		provider:    provider,
		statusCache: statusCache,
		mirror:      mirror,
		publisher:   publisher,
		dispatches:  dispatches,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		observed:    make(map[int64]teamObservation),
		announced:   make(map[string]struct{}),
	}
}

func (s *RefreshService) RunRefresh(ctx context.Context, input RefreshInput) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.RunRefresh")
	defer span.End()

	if s.provider == nil || s.statusCache == nil {
		return RefreshResult{}, fmt.Errorf("%w: refresh is not fully configured", ErrDependencyUnavailable)
	}

	targets, err := s.resolveRefreshTargets(ctx, input.TeamID)
	if err != nil {
		return RefreshResult{}, err
	}

	workerCount := normalizeRefreshWorkerCount(input.MaxWorkers, s.cfg.MaxWorkers, len(targets))
	result := RefreshResult{
		TeamCount:   len(targets),
		WorkerCount: workerCount,
		Teams:       make([]TeamRefreshResult, 0, len(targets)),
	}
	if len(targets) == 0 {
		return result, nil
	}

	results := make(chan TeamRefreshResult, len(targets))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var eventCount atomic.Int32

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, target := range targets {
		target := target
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			start := time.Now()
			row := s.refreshTeam(ctx, target)
			row.DurationMs = time.Since(start).Milliseconds()

			if row.Status == refreshStatusSuccess {
				successCount.Add(1)
			} else {
				failedCount.Add(1)
			}
			eventCount.Add(int32(len(row.Events)))

			results <- row
		}); err != nil {
			workers.Done()
			return RefreshResult{}, fmt.Errorf("submit team to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Teams = append(result.Teams, row)
	}

	sort.SliceStable(result.Teams, func(i, j int) bool {
		return result.Teams[i].TeamID < result.Teams[j].TeamID
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.EventCount = int(eventCount.Load())
	return result, nil
}

// AnnounceKickoff publishes a kickoff_soon trigger for the team's next
// match. Repeat calls for the same fixture are dropped so a tight polling
// cadence cannot spam the flow engine.
func (s *RefreshService) AnnounceKickoff(ctx context.Context, teamID int64, m *match.Match) bool {
	if m == nil || m.ID == 0 || teamID <= 0 {
		return false
	}

	key := fmt.Sprintf("%s-%d-%d", trigger.KindKickoffSoon, teamID, m.ID)
	s.mu.Lock()
	if _, done := s.announced[key]; done {
		s.mu.Unlock()
		return false
	}
	s.announced[key] = struct{}{}
	s.mu.Unlock()

	target := refreshTarget{teamID: teamID}
	if deviceIDs, err := s.deviceIDsForTeam(ctx, teamID); err != nil {
		s.logger.WarnContext(ctx, "resolve devices for kickoff announce failed",
			"team_id", teamID,
			"error", err,
		)
	} else {
		target.deviceIDs = deviceIDs
	}

	payload := map[string]any{
		"team_id":    teamID,
		"match_id":   m.ID,
		"kickoff_at": m.KickoffAt.UTC().Format(time.RFC3339),
		"home_name":  m.HomeTeam.Name,
		"away_name":  m.AwayTeam.Name,
	}
	s.publishEvent(ctx, trigger.KindKickoffSoon, target, key, payload)
	return true
}

func (s *RefreshService) refreshTeam(ctx context.Context, target refreshTarget) TeamRefreshResult {
	row := TeamRefreshResult{TeamID: target.teamID}

	current, err := s.observeTeam(ctx, target.teamID)
	if err != nil {
		row.Status = refreshStatusFailed
		row.Message = err.Error()
		return row
	}

	if err := s.statusCache.SetStatus(ctx, target.teamID, current.status); err != nil {
		s.logger.WarnContext(ctx, "store liveness status failed",
			"team_id", target.teamID,
			"error", err,
		)
	}

	previous, hasPrevious := s.swapObservation(target.teamID, current)
	for _, kind := range detectTransitions(previous, hasPrevious, current) {
		// The ended event reports the last seen score; the current
		// observation no longer has the match.
		source := current
		if kind == trigger.KindMatchEnded {
			source = previous
		}
		s.publishEvent(ctx, kind, target, dispatchIDFor(kind, target.teamID, source), eventPayload(target.teamID, source))
		row.Events = append(row.Events, string(kind))
	}

	if s.mirror != nil && current.match != nil {
		if err := s.mirror.UpsertMatch(ctx, target.teamID, *current.match); err != nil {
			s.logger.WarnContext(ctx, "mirror match snapshot failed",
				"team_id", target.teamID,
				"error", err,
			)
		}
	}

	row.Status = refreshStatusSuccess
	row.Liveness = string(current.status)
	return row
}

func (s *RefreshService) observeTeam(ctx context.Context, teamID int64) (teamObservation, error) {
	m, err := s.provider.LiveMatch(ctx, teamID)
	if err != nil {
		return teamObservation{}, fmt.Errorf("fetch live match team=%d: %w", teamID, err)
	}
	if m == nil {
		return teamObservation{status: team.StatusOther}, nil
	}

	obs := teamObservation{
		match:   m,
		matchID: m.ID,
		status:  team.StatusLive,
	}
	if match.IsHalftimeStatus(m.Status) {
		obs.status = team.StatusHalftime
	}
	if m.Live != nil {
		if m.Live.Home != nil {
			obs.homeScore = *m.Live.Home
		}
		if m.Live.Away != nil {
			obs.awayScore = *m.Live.Away
		}
	}

	return obs, nil
}

func (s *RefreshService) swapObservation(teamID int64, current teamObservation) (teamObservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hasPrevious := s.observed[teamID]
	s.observed[teamID] = current
	return previous, hasPrevious
}

func (s *RefreshService) resolveRefreshTargets(ctx context.Context, teamID int64) ([]refreshTarget, error) {
	items, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices for refresh: %w", err)
	}

	devicesByTeam := make(map[int64][]string)
	for _, item := range items {
		devicesByTeam[item.TeamID] = append(devicesByTeam[item.TeamID], item.ID)
	}

	if teamID > 0 {
		return []refreshTarget{{
			teamID:    teamID,
			deviceIDs: devicesByTeam[teamID],
		}}, nil
	}

	targets := make([]refreshTarget, 0, len(devicesByTeam))
	for id, deviceIDs := range devicesByTeam {
		sort.Strings(deviceIDs)
		targets = append(targets, refreshTarget{
			teamID:    id,
			deviceIDs: deviceIDs,
		})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].teamID < targets[j].teamID
	})

	return targets, nil
}

func (s *RefreshService) deviceIDsForTeam(ctx context.Context, teamID int64) ([]string, error) {
	items, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices for team=%d: %w", teamID, err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.TeamID == teamID {
			out = append(out, item.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *RefreshService) publishEvent(ctx context.Context, kind trigger.Kind, target refreshTarget, dispatchID string, payload map[string]any) {
	event := trigger.Event{
		DispatchID: dispatchID,
		Kind:       kind,
		TeamID:     target.teamID,
		DeviceIDs:  append([]string(nil), target.deviceIDs...),
		Payload:    payload,
		Status:     trigger.StatusSent,
		OccurredAt: s.now().UTC(),
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		event.Status = trigger.StatusFailed
		event.ErrorMessage = err.Error()
		s.logger.WarnContext(ctx, "publish trigger event failed",
			"kind", string(kind),
			"team_id", target.teamID,
			"error", err,
		)
	}

	s.recordDispatch(ctx, event)
}

func (s *RefreshService) recordDispatch(ctx context.Context, event trigger.Event) {
	if s.dispatches == nil || event.DispatchID == "" {
		return
	}

	event.TraceID, event.SpanID = traceMetaFromContext(ctx)
	if err := s.dispatches.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record trigger dispatch failed",
			"dispatch_id", event.DispatchID,
			"status", string(event.Status),
			"error", err,
		)
	}
}

// detectTransitions derives trigger events from two consecutive
// observations of the same team. The first observation of a process never
// produces an ended event, only a started one when the team is mid-match.
func detectTransitions(previous teamObservation, hasPrevious bool, current teamObservation) []trigger.Kind {
	wasLive := hasPrevious && previous.status.InProgress()
	isLive := current.status.InProgress()

	var kinds []trigger.Kind
	switch {
	case !wasLive && isLive:
		kinds = append(kinds, trigger.KindMatchStarted)
	case wasLive && !isLive:
		kinds = append(kinds, trigger.KindMatchEnded)
	}

	if wasLive && isLive {
		if previous.status != team.StatusHalftime && current.status == team.StatusHalftime {
			kinds = append(kinds, trigger.KindHalftimeStarted)
		}
		sameMatch := previous.matchID != 0 && previous.matchID == current.matchID
		if sameMatch && (previous.homeScore != current.homeScore || previous.awayScore != current.awayScore) {
			kinds = append(kinds, trigger.KindScoreChanged)
		}
	}

	return kinds
}

func dispatchIDFor(kind trigger.Kind, teamID int64, obs teamObservation) string {
	base := fmt.Sprintf("%s-%d-%d", kind, teamID, obs.matchID)
	if kind == trigger.KindScoreChanged {
		return fmt.Sprintf("%s-%d-%d", base, obs.homeScore, obs.awayScore)
	}
	return base
}

func eventPayload(teamID int64, obs teamObservation) map[string]any {
	payload := map[string]any{
		"team_id":  teamID,
		"liveness": string(obs.status),
	}
	if obs.match == nil {
		return payload
	}

	snapshot := formatSnapshot(obs.match)
	payload["match_id"] = obs.matchID
	payload["home_name"] = snapshot.HomeName
	payload["away_name"] = snapshot.AwayName
	payload["home_score"] = snapshot.HomeScore
	payload["away_score"] = snapshot.AwayScore
	payload["score"] = snapshot.Summary
	payload["minute"] = snapshot.Minute
	payload["status"] = snapshot.Status
	return payload
}

func normalizeRefreshWorkerCount(value int, configured int, taskCount int) int {
	if taskCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = configured
	}
	if value <= 0 {
		value = 1
	}
	// The provider rate limit leaves little headroom; keep fan-out small.
	if value > 4 {
		value = 4
	}
	if value > taskCount {
		value = taskCount
	}
	return value
}
