package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

// DefaultLivenessWindow bounds the kickoff heuristic: long enough to cover
// stoppage time and halftime, short enough that a finished match stops
// reading as live once the provider data goes quiet.
const DefaultLivenessWindow = 120 * time.Minute

type LivenessConfig struct {
	// Window is the assumed maximum running time of a match. Non-positive
	// values fall back to DefaultLivenessWindow.
	Window time.Duration
}

// livenessStage is one step of the ordered liveness decision. A stage either
// settles the answer or defers to the next one; a stage error counts as
// undecided so a broken dependency can never take a condition check down.
type livenessStage struct {
	name     string
	evaluate func(ctx context.Context, teamID int64) (live bool, decided bool, err error)
}

// LivenessService answers "is this team playing right now". Automations key
// on the answer, so it degrades to false instead of failing.
type LivenessService struct {
	statusCache team.StatusCache
	provider    match.Provider
	window      time.Duration
	stages      []livenessStage
	logger      *logging.Logger
	now         func() time.Time
}

func NewLivenessService(
	statusCache team.StatusCache,
	provider match.Provider,
	cfg LivenessConfig,
	logger *logging.Logger,
) *LivenessService {
	if logger == nil {
		logger = logging.Default()
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultLivenessWindow
	}

	s := &LivenessService{
		statusCache: statusCache,
		provider:    provider,
		window:      window,
		logger:      logger,
		now:         time.Now,
	}
	s.stages = []livenessStage{
		{name: "cached-status", evaluate: s.evaluateCachedStatus},
		{name: "provider-live", evaluate: s.evaluateProviderLive},
		{name: "kickoff-window", evaluate: s.evaluateKickoffWindow},
	}

	return s
}

// IsLive runs the stages in trust order: the refreshed status cache first,
// the provider's live feed second, the kickoff-window guess last. Only
// invalid input produces an error; dependency failures log and fall through.
func (s *LivenessService) IsLive(ctx context.Context, teamID int64) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LivenessService.IsLive")
	defer span.End()

	if teamID <= 0 {
		return false, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	for _, stage := range s.stages {
		live, decided, err := stage.evaluate(ctx, teamID)
		if err != nil {
			s.logger.WarnContext(ctx, "liveness stage skipped",
				"stage", stage.name,
				"team_id", teamID,
				"error", err,
			)
			continue
		}
		if decided {
			return live, nil
		}
	}

	return false, nil
}

func (s *LivenessService) evaluateCachedStatus(ctx context.Context, teamID int64) (bool, bool, error) {
	if s.statusCache == nil {
		return false, false, nil
	}

	status, err := s.statusCache.GetStatus(ctx, teamID)
	if err != nil {
		return false, false, err
	}
	if status.InProgress() {
		return true, true, nil
	}

	// A cached OTHER is not trusted as a final "no": the cache may simply
	// be behind a kickoff that happened since the last refresh.
	return false, false, nil
}

func (s *LivenessService) evaluateProviderLive(ctx context.Context, teamID int64) (bool, bool, error) {
	m, err := s.provider.LiveMatch(ctx, teamID)
	if err != nil {
		return false, false, err
	}
	if m != nil {
		return true, true, nil
	}

	return false, false, nil
}

// evaluateKickoffWindow treats a match scheduled today as live while the
// elapsed time since kickoff sits inside the open interval (0, window).
// Both bounds stay excluded: at kickoff the match may still be delayed, at
// the window edge it is assumed over.
func (s *LivenessService) evaluateKickoffWindow(ctx context.Context, teamID int64) (bool, bool, error) {
	m, err := s.provider.TodayMatch(ctx, teamID)
	if err != nil {
		return false, false, err
	}
	if m == nil || m.KickoffAt.IsZero() {
		return false, false, nil
	}

	sinceKickoff := s.now().Sub(m.KickoffAt)
	return sinceKickoff > 0 && sinceKickoff < s.window, true, nil
}
