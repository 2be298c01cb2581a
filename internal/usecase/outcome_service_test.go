package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/matchday/internal/domain/match"
)

func outcomeTriple(t *testing.T, svc *OutcomeService, teamID int64) (bool, bool, bool) {
	t.Helper()

	winning, err := svc.IsWinning(context.Background(), teamID)
	if err != nil {
		t.Fatalf("IsWinning: %v", err)
	}
	losing, err := svc.IsLosing(context.Background(), teamID)
	if err != nil {
		t.Fatalf("IsLosing: %v", err)
	}
	drawing, err := svc.IsDrawing(context.Background(), teamID)
	if err != nil {
		t.Fatalf("IsDrawing: %v", err)
	}
	return winning, losing, drawing
}

func TestOutcomeService_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		teamID      int64
		homeScore   int
		awayScore   int
		wantWinning bool
		wantLosing  bool
		wantDrawing bool
	}{
		{name: "home side ahead", teamID: 57, homeScore: 2, awayScore: 1, wantWinning: true},
		{name: "home side behind", teamID: 57, homeScore: 0, awayScore: 3, wantLosing: true},
		{name: "home side level", teamID: 57, homeScore: 2, awayScore: 2, wantDrawing: true},
		{name: "away side ahead", teamID: 61, homeScore: 1, awayScore: 2, wantWinning: true},
		{name: "away side behind", teamID: 61, homeScore: 2, awayScore: 1, wantLosing: true},
		{name: "away side level", teamID: 61, homeScore: 0, awayScore: 0, wantDrawing: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := &stubMatchProvider{
				liveFn: func(context.Context, int64) (*match.Match, error) {
					return liveFixture(1001, match.StatusLive, tc.homeScore, tc.awayScore), nil
				},
			}
			svc := NewOutcomeService(provider, nil)

			winning, losing, drawing := outcomeTriple(t, svc, tc.teamID)
			if winning != tc.wantWinning || losing != tc.wantLosing || drawing != tc.wantDrawing {
				t.Fatalf("classification = winning=%v losing=%v drawing=%v, want winning=%v losing=%v drawing=%v",
					winning, losing, drawing, tc.wantWinning, tc.wantLosing, tc.wantDrawing)
			}
		})
	}
}

func TestOutcomeService_NoLiveMatchAllFalse(t *testing.T) {
	t.Parallel()

	svc := NewOutcomeService(&stubMatchProvider{}, nil)

	winning, losing, drawing := outcomeTriple(t, svc, 57)
	if winning || losing || drawing {
		t.Fatalf("predicates with no live match = %v %v %v, want all false", winning, losing, drawing)
	}
}

func TestOutcomeService_ProviderErrorAllFalse(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		liveFn: func(context.Context, int64) (*match.Match, error) {
			return nil, errors.New("provider 503")
		},
	}
	svc := NewOutcomeService(provider, nil)

	winning, losing, drawing := outcomeTriple(t, svc, 57)
	if winning || losing || drawing {
		t.Fatalf("predicates on provider error = %v %v %v, want all false", winning, losing, drawing)
	}
}

func TestOutcomeService_AbsentScoresReadAsLevel(t *testing.T) {
	t.Parallel()

	provider := &stubMatchProvider{
		liveFn: func(context.Context, int64) (*match.Match, error) {
			return &match.Match{
				ID:       1001,
				Status:   match.StatusLive,
				HomeTeam: match.TeamRef{ID: 57},
				AwayTeam: match.TeamRef{ID: 61},
				Live:     &match.Score{},
			}, nil
		},
	}
	svc := NewOutcomeService(provider, nil)

	winning, losing, drawing := outcomeTriple(t, svc, 57)
	if winning || losing || !drawing {
		t.Fatalf("absent scores = winning=%v losing=%v drawing=%v, want drawing only", winning, losing, drawing)
	}
}

func TestOutcomeService_InvalidTeamID(t *testing.T) {
	t.Parallel()

	svc := NewOutcomeService(&stubMatchProvider{}, nil)

	if _, err := svc.IsWinning(context.Background(), -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
