package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/infrastructure/repository/memory"
)

type queueEntry struct {
	path    string
	delay   time.Duration
	dedupID string
}

type recordingJobQueue struct {
	mu      sync.Mutex
	entries []queueEntry
}

func (q *recordingJobQueue) Enqueue(_ context.Context, path string, _ any, delay time.Duration, deduplicationID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, queueEntry{path: path, delay: delay, dedupID: deduplicationID})
	return nil
}

func newOrchestratorFixture(t *testing.T, provider *stubMatchProvider) (*RefreshOrchestratorService, *recordingJobQueue, *recordingTriggerPublisher, *memory.TriggerRepository) {
	t.Helper()

	deviceRepo := memory.NewDeviceRepository()
	if err := deviceRepo.Create(context.Background(), device.Device{ID: "dev-1", TeamID: 57, Name: "Arsenal lamp"}); err != nil {
		t.Fatalf("seed device: %v", err)
	}

	publisher := &recordingTriggerPublisher{}
	dispatches := memory.NewTriggerRepository()
	refresher := NewRefreshService(deviceRepo, provider, newStubStatusCache(), nil, publisher, dispatches, RefreshConfig{}, nil)

	queue := &recordingJobQueue{}
	orchestrator := NewRefreshOrchestratorService(refresher, provider, queue, dispatches, RefreshOrchestratorConfig{
		ScheduleInterval: 15 * time.Minute,
		LiveInterval:     2 * time.Minute,
		PreKickoffLead:   15 * time.Minute,
	}, nil)

	return orchestrator, queue, publisher, dispatches
}

func TestRefreshOrchestrator_LiveTeamTightensCadence(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		liveFn: func(context.Context, int64) (*match.Match, error) {
			return liveFixture(1001, match.StatusLive, 1, 0), nil
		},
	}
	orchestrator, queue, _, dispatches := newOrchestratorFixture(t, provider)
	anchor := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	orchestrator.now = func() time.Time { return anchor }

	result, err := orchestrator.RunCycle(context.Background(), CycleInput{})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if result.LiveTeamCount != 1 {
		t.Fatalf("live team count = %d, want 1", result.LiveTeamCount)
	}
	if result.NextCycleInMs != (2 * time.Minute).Milliseconds() {
		t.Fatalf("next cycle in = %dms, want live interval", result.NextCycleInMs)
	}
	if len(queue.entries) != 1 {
		t.Fatalf("queued entries = %d, want 1", len(queue.entries))
	}
	entry := queue.entries[0]
	if entry.path != jobPathCycle || entry.delay != 2*time.Minute {
		t.Fatalf("queued entry = %+v", entry)
	}
	if !strings.HasPrefix(entry.dedupID, "refresh-cycle-all-") {
		t.Fatalf("dedup id = %q", entry.dedupID)
	}

	rows, err := dispatches.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	var audited bool
	for _, row := range rows {
		if row.Kind == trigger.KindRefreshCycle && row.Status == trigger.StatusSent {
			audited = true
		}
	}
	if !audited {
		t.Fatalf("cycle dispatch not audited, rows=%+v", rows)
	}
}

func TestRefreshOrchestrator_AnnouncesImminentKickoff(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	provider := &stubMatchProvider{
		nextFn: func(context.Context, int64) (*match.Match, error) {
			return &match.Match{
				ID:        3003,
				KickoffAt: anchor.Add(10 * time.Minute),
				HomeTeam:  match.TeamRef{ID: 57, Name: "Arsenal FC"},
				AwayTeam:  match.TeamRef{ID: 61, Name: "Chelsea FC"},
			}, nil
		},
	}
	orchestrator, queue, publisher, _ := newOrchestratorFixture(t, provider)
	orchestrator.now = func() time.Time { return anchor }

	result, err := orchestrator.RunCycle(context.Background(), CycleInput{})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	kinds := publisher.kinds()
	if len(kinds) != 1 || kinds[0] != trigger.KindKickoffSoon {
		t.Fatalf("published kinds = %v, want [kickoff_soon]", kinds)
	}
	var sawAnnounce bool
	for _, op := range result.QueuedOperations {
		if op == "kickoff-soon:57" {
			sawAnnounce = true
		}
	}
	if !sawAnnounce {
		t.Fatalf("queued operations = %v", result.QueuedOperations)
	}
	// Kickoff inside the lead window runs on the live cadence.
	if len(queue.entries) != 1 || queue.entries[0].delay != 2*time.Minute {
		t.Fatalf("queued entries = %+v", queue.entries)
	}
}

func TestRefreshOrchestrator_IdleSleepsLong(t *testing.T) {
	t.Parallel()

	orchestrator, queue, _, _ := newOrchestratorFixture(t, &stubMatchProvider{})
	anchor := time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	orchestrator.now = func() time.Time { return anchor }

	result, err := orchestrator.RunCycle(context.Background(), CycleInput{})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if result.NextCycleInMs != (6 * time.Hour).Milliseconds() {
		t.Fatalf("idle next cycle = %dms, want 6h", result.NextCycleInMs)
	}
	if len(queue.entries) != 1 || queue.entries[0].delay != 6*time.Hour {
		t.Fatalf("queued entries = %+v", queue.entries)
	}
}

func TestRefreshOrchestrator_DistantFixtureCapsSleep(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	provider := &stubMatchProvider{
		nextFn: func(context.Context, int64) (*match.Match, error) {
			return &match.Match{ID: 3003, KickoffAt: anchor.Add(5 * 24 * time.Hour)}, nil
		},
	}
	orchestrator, _, _, _ := newOrchestratorFixture(t, provider)
	orchestrator.now = func() time.Time { return anchor }

	result, err := orchestrator.RunCycleDirect(context.Background(), CycleInput{})
	if err != nil {
		t.Fatalf("RunCycleDirect: %v", err)
	}
	if result.NextCycleInMs != (6 * time.Hour).Milliseconds() {
		t.Fatalf("capped next cycle = %dms, want 6h", result.NextCycleInMs)
	}
	if result.QueuedCount != 0 {
		t.Fatalf("direct mode must not enqueue, queued=%d", result.QueuedCount)
	}
}

func TestRefreshOrchestrator_NearKickoffWakesBeforeLead(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	provider := &stubMatchProvider{
		nextFn: func(context.Context, int64) (*match.Match, error) {
			return &match.Match{ID: 3003, KickoffAt: anchor.Add(2 * time.Hour)}, nil
		},
	}
	orchestrator, _, _, _ := newOrchestratorFixture(t, provider)
	orchestrator.now = func() time.Time { return anchor }

	result, err := orchestrator.RunCycleDirect(context.Background(), CycleInput{})
	if err != nil {
		t.Fatalf("RunCycleDirect: %v", err)
	}

	want := (2*time.Hour - 15*time.Minute).Milliseconds()
	if result.NextCycleInMs != want {
		t.Fatalf("next cycle = %dms, want %dms (kickoff minus lead)", result.NextCycleInMs, want)
	}
}

func TestDedupKey_UsesQueueSafeFormat(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, time.February, 25, 4, 25, 42, 0, time.UTC)
	got := dedupKey("refresh-cycle", "team/57 all", at, 5*time.Minute)

	if strings.Contains(got, ":") {
		t.Fatalf("dedup key must not contain colon, got=%q", got)
	}

	want := "refresh-cycle-team-57-all-20260225T042500Z"
	if got != want {
		t.Fatalf("unexpected dedup key: got=%q want=%q", got, want)
	}
}

func TestSanitizeDedupSegment_EmptyFallback(t *testing.T) {
	t.Parallel()

	if got := sanitizeDedupSegment(" \t "); got != "unknown" {
		t.Fatalf("unexpected sanitize fallback: got=%q want=%q", got, "unknown")
	}
}
