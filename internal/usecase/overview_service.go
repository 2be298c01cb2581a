package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

// DeviceOverview bundles everything a device card renders in one response.
type DeviceOverview struct {
	Device      device.Device
	Team        team.Team
	IsLive      bool
	Snapshot    ScoreSnapshot
	NextFixture *FixtureSummary
}

type OverviewService struct {
	devices   device.Repository
	teams     team.Repository
	liveness  *LivenessService
	snapshots *SnapshotService
	fixtures  *FixtureService
	logger    *logging.Logger
}

func NewOverviewService(
	devices device.Repository,
	teams team.Repository,
	liveness *LivenessService,
	snapshots *SnapshotService,
	fixtures *FixtureService,
	logger *logging.Logger,
) *OverviewService {
	if logger == nil {
		logger = logging.Default()
	}

	return &OverviewService{
		devices:   devices,
		teams:     teams,
		liveness:  liveness,
		snapshots: snapshots,
		fixtures:  fixtures,
		logger:    logger,
	}
}

// Overview gathers liveness, the score snapshot, and the next fixture in
// parallel; the three lookups hit independent provider endpoints and the
// card wants them as one screenful.
func (s *OverviewService) Overview(ctx context.Context, deviceID string) (DeviceOverview, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OverviewService.Overview")
	defer span.End()

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return DeviceOverview{}, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}

	item, exists, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return DeviceOverview{}, fmt.Errorf("get device for overview: %w", err)
	}
	if !exists {
		return DeviceOverview{}, fmt.Errorf("%w: device=%s", ErrNotFound, deviceID)
	}

	out := DeviceOverview{Device: item}

	trackedTeam, teamExists, err := s.teams.GetByID(ctx, item.TeamID)
	if err != nil {
		return DeviceOverview{}, fmt.Errorf("get team for overview: %w", err)
	}
	if teamExists {
		out.Team = trackedTeam
	} else {
		// Pairing survived a registry wipe; keep the card usable.
		out.Team = team.Team{ID: item.TeamID, Name: item.Name}
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		live, liveErr := s.liveness.IsLive(ctx, item.TeamID)
		if liveErr != nil {
			return liveErr
		}
		out.IsLive = live
		return nil
	})
	p.Go(func(ctx context.Context) error {
		snapshot, snapErr := s.snapshots.Snapshot(ctx, item.TeamID)
		if snapErr != nil {
			return snapErr
		}
		out.Snapshot = snapshot
		return nil
	})
	p.Go(func(ctx context.Context) error {
		fixture, fixErr := s.fixtures.NextFixture(ctx, item.TeamID)
		if fixErr != nil {
			return fixErr
		}
		out.NextFixture = fixture
		return nil
	})
	if err := p.Wait(); err != nil {
		return DeviceOverview{}, err
	}

	return out, nil
}
