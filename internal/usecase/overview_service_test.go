package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/infrastructure/repository/memory"
)

func newOverviewFixture(t *testing.T, provider *stubMatchProvider, statusCache *stubStatusCache) *OverviewService {
	t.Helper()

	deviceRepo := memory.NewDeviceRepository()
	if err := deviceRepo.Create(context.Background(), device.Device{ID: "dev-1", TeamID: 57, Name: "Arsenal lamp"}); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	teamRepo := memory.NewTeamRepository([]team.Team{{ID: 57, Name: "Arsenal FC", Short: "Arsenal"}})

	liveness := NewLivenessService(statusCache, provider, LivenessConfig{}, nil)
	snapshots := NewSnapshotService(provider, nil)
	fixtures := NewFixtureService(provider, time.UTC, nil)

	return NewOverviewService(deviceRepo, teamRepo, liveness, snapshots, fixtures, nil)
}

func TestOverviewService_GathersEverything(t *testing.T) {
	t.Parallel()

	statusCache := newStubStatusCache()
	statusCache.statuses[57] = team.StatusLive
	provider := &stubMatchProvider{
		liveFn: func(context.Context, int64) (*match.Match, error) {
			return liveFixture(1001, match.StatusLive, 2, 1), nil
		},
		nextFn: func(context.Context, int64) (*match.Match, error) {
			return &match.Match{
				ID:        3003,
				KickoffAt: time.Date(2026, 3, 20, 18, 0, 0, 0, time.UTC),
				HomeTeam:  match.TeamRef{ID: 64, Name: "Liverpool FC", Short: "Liverpool"},
				AwayTeam:  match.TeamRef{ID: 57, Name: "Arsenal FC", Short: "Arsenal"},
			}, nil
		},
	}
	svc := newOverviewFixture(t, provider, statusCache)

	overview, err := svc.Overview(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}

	if overview.Device.ID != "dev-1" || overview.Team.ID != 57 {
		t.Fatalf("identity fields = %+v", overview)
	}
	if !overview.IsLive {
		t.Fatalf("is_live = false, want true from cached status")
	}
	if overview.Snapshot.Summary != "2-1" {
		t.Fatalf("snapshot summary = %q", overview.Snapshot.Summary)
	}
	if overview.NextFixture == nil || overview.NextFixture.Opponent != "Liverpool" {
		t.Fatalf("next fixture = %+v", overview.NextFixture)
	}
}

func TestOverviewService_UnknownDevice(t *testing.T) {
	t.Parallel()

	svc := newOverviewFixture(t, &stubMatchProvider{}, newStubStatusCache())

	if _, err := svc.Overview(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOverviewService_FixtureFailurePropagates(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		nextFn: func(context.Context, int64) (*match.Match, error) {
			return nil, errors.New("provider 503")
		},
	}
	svc := newOverviewFixture(t, provider, newStubStatusCache())

	if _, err := svc.Overview(context.Background(), "dev-1"); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}
