package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

const (
	VenueHome = "Home"
	VenueAway = "Away"
)

// FixtureSummary is the next scheduled match shaped for announcements:
// opponent and venue from the team's side, calendar fields rendered in the
// configured timezone.
type FixtureSummary struct {
	MatchID     int64
	Opponent    string
	IsHome      bool
	Venue       string
	Competition string
	KickoffAt   time.Time
	Date        string
	Time        string
	DaysUntil   int
}

type FixtureService struct {
	provider match.Provider
	location *time.Location
	logger   *logging.Logger
	now      func() time.Time
}

func NewFixtureService(provider match.Provider, location *time.Location, logger *logging.Logger) *FixtureService {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &FixtureService{
		provider: provider,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// NextFixture returns nil without error when the team has nothing scheduled;
// an empty calendar is an answer, not a failure.
func (s *FixtureService) NextFixture(ctx context.Context, teamID int64) (*FixtureSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.NextFixture")
	defer span.End()

	if teamID <= 0 {
		return nil, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}

	m, err := s.provider.NextMatch(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch next match for team=%d: %v", ErrDependencyUnavailable, teamID, err)
	}
	if m == nil {
		return nil, nil
	}

	summary := s.project(m, teamID)
	return &summary, nil
}

// IsWithinHours reports whether the next fixture kicks off within the given
// horizon. A fixture that already started never matches: liveness owns the
// in-play case.
func (s *FixtureService) IsWithinHours(ctx context.Context, teamID int64, hoursThreshold int) (bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.IsWithinHours")
	defer span.End()

	if teamID <= 0 {
		return false, fmt.Errorf("%w: team id is required", ErrInvalidInput)
	}
	if hoursThreshold <= 0 {
		return false, fmt.Errorf("%w: hours threshold must be greater than zero", ErrInvalidInput)
	}

	m, err := s.provider.NextMatch(ctx, teamID)
	if err != nil {
		return false, fmt.Errorf("%w: fetch next match for team=%d: %v", ErrDependencyUnavailable, teamID, err)
	}
	if m == nil {
		return false, nil
	}

	untilKickoff := m.KickoffAt.Sub(s.now())
	return untilKickoff > 0 && untilKickoff <= time.Duration(hoursThreshold)*time.Hour, nil
}

func (s *FixtureService) project(m *match.Match, teamID int64) FixtureSummary {
	isHome := m.IsHome(teamID)
	venue := VenueAway
	if isHome {
		venue = VenueHome
	}

	// Date and time render from one converted value so a kickoff near
	// midnight cannot show mismatched halves.
	local := m.KickoffAt.In(s.location)

	return FixtureSummary{
		MatchID:     m.ID,
		Opponent:    m.Opponent(teamID).Label(),
		IsHome:      isHome,
		Venue:       venue,
		Competition: m.Competition,
		KickoffAt:   m.KickoffAt.UTC(),
		Date:        local.Format("2006-01-02"),
		Time:        local.Format("15:04"),
		DaysUntil:   daysUntilKickoff(m.KickoffAt, s.now()),
	}
}

// daysUntilKickoff rounds up: a fixture 30 hours out reports two days, which
// matches how people read "days until".
func daysUntilKickoff(kickoff, now time.Time) int {
	return int(math.Ceil(kickoff.Sub(now).Hours() / 24))
}
