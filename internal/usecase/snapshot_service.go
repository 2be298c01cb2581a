package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

const (
	// SnapshotStatusIdle marks the snapshot returned when no match is live.
	SnapshotStatusIdle = "IDLE"

	idleSummary = "No live match"
)

// ScoreSnapshot always carries every field so display consumers never
// branch on presence. Absent provider values collapse to zero values; a
// missing score is indistinguishable from 0-0 by contract.
type ScoreSnapshot struct {
	HomeName  string
	AwayName  string
	HomeScore int
	AwayScore int
	Summary   string
	Minute    int
	Status    string
	IsLive    bool
}

type SnapshotService struct {
	provider match.Provider
	logger   *logging.Logger
}

func NewSnapshotService(provider match.Provider, logger *logging.Logger) *SnapshotService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SnapshotService{
		provider: provider,
		logger:   logger,
	}
}

// Snapshot returns the idle shape when nothing is live and propagates
// provider failures: a scoreboard would rather show an error than a
// fabricated 0-0.
func (s *SnapshotService) Snapshot(ctx context.Context, teamID int64) (ScoreSnapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.Snapshot")
	defer span.End()

	if teamID <= 0 {
		return ScoreSnapshot{}, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	m, err := s.provider.LiveMatch(ctx, teamID)
	if err != nil {
		return ScoreSnapshot{}, fmt.Errorf("%w: fetch live match for team=%d: %v", ErrDependencyUnavailable, teamID, err)
	}
	if m == nil {
		return idleSnapshot(), nil
	}

	return formatSnapshot(m), nil
}

func idleSnapshot() ScoreSnapshot {
	return ScoreSnapshot{
		Summary: idleSummary,
		Status:  SnapshotStatusIdle,
	}
}

func formatSnapshot(m *match.Match) ScoreSnapshot {
	var homeScore, awayScore, minute int
	if m.Live != nil {
		if m.Live.Home != nil {
			homeScore = *m.Live.Home
		}
		if m.Live.Away != nil {
			awayScore = *m.Live.Away
		}
		if m.Live.Minute != nil {
			minute = *m.Live.Minute
		}
	}

	// The provider status passes through verbatim; consumers key off raw
	// phase values and remapping them here would break those rules.
	status := strings.TrimSpace(m.Status)
	if status == "" {
		status = match.StatusUnknown
	}

	return ScoreSnapshot{
		HomeName:  strings.TrimSpace(m.HomeTeam.Name),
		AwayName:  strings.TrimSpace(m.AwayTeam.Name),
		HomeScore: homeScore,
		AwayScore: awayScore,
		Summary:   fmt.Sprintf("%d-%d", homeScore, awayScore),
		Minute:    minute,
		Status:    status,
		IsLive:    true,
	}
}
