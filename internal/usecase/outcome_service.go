package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

type scoreOutcome int

const (
	outcomeWinning scoreOutcome = iota
	outcomeLosing
	outcomeDrawing
)

// OutcomeService classifies a live score from one team's point of view.
// Each predicate is independent: with no live match all of them are false,
// with one exactly one of them is true.
type OutcomeService struct {
	provider match.Provider
	logger   *logging.Logger
}

func NewOutcomeService(provider match.Provider, logger *logging.Logger) *OutcomeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &OutcomeService{
		provider: provider,
		logger:   logger,
	}
}

func (s *OutcomeService) IsWinning(ctx context.Context, teamID int64) (bool, error) {
	return s.classify(ctx, "usecase.OutcomeService.IsWinning", teamID, outcomeWinning)
}

func (s *OutcomeService) IsLosing(ctx context.Context, teamID int64) (bool, error) {
	return s.classify(ctx, "usecase.OutcomeService.IsLosing", teamID, outcomeLosing)
}

func (s *OutcomeService) IsDrawing(ctx context.Context, teamID int64) (bool, error) {
	return s.classify(ctx, "usecase.OutcomeService.IsDrawing", teamID, outcomeDrawing)
}

func (s *OutcomeService) classify(ctx context.Context, spanName string, teamID int64, want scoreOutcome) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, spanName)
	defer span.End()

	if teamID <= 0 {
		return false, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	m, err := s.provider.LiveMatch(ctx, teamID)
	if err != nil {
		s.logger.WarnContext(ctx, "outcome check degraded to false",
			"team_id", teamID,
			"error", err,
		)
		return false, nil
	}
	if m == nil {
		return false, nil
	}

	return classifyScore(m, teamID) == want, nil
}

// classifyScore reads absent goals as zero, so a live match always lands on
// exactly one outcome and a feed that has not published a score yet reads
// as 0-0 drawing.
func classifyScore(m *match.Match, teamID int64) scoreOutcome {
	var home, away int
	if m.Live != nil {
		if m.Live.Home != nil {
			home = *m.Live.Home
		}
		if m.Live.Away != nil {
			away = *m.Live.Away
		}
	}

	teamGoals, opponentGoals := home, away
	if !m.IsHome(teamID) {
		teamGoals, opponentGoals = away, home
	}

	switch {
	case teamGoals > opponentGoals:
		return outcomeWinning
	case teamGoals < opponentGoals:
		return outcomeLosing
	default:
		return outcomeDrawing
	}
}
