package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/matchday/internal/domain/match"
	qb "github.com/riskibarqy/matchday/internal/platform/querybuilder"
)

// MatchMirrorRepository keeps the latest observed fixture per tracked team in
// plain columns, so dashboards and the flow engine can query scores with SQL
// instead of calling the provider.
type MatchMirrorRepository struct {
	db *sqlx.DB
}

func NewMatchMirrorRepository(db *sqlx.DB) *MatchMirrorRepository {
	return &MatchMirrorRepository{db: db}
}

func (r *MatchMirrorRepository) UpsertMatch(ctx context.Context, teamID int64, item match.Match) error {
	if teamID <= 0 {
		return fmt.Errorf("team id is required")
	}
	if item.ID <= 0 {
		return fmt.Errorf("match id is required")
	}

	model := matchMirrorInsertModel{
		TeamID:      teamID,
		MatchID:     item.ID,
		KickoffAt:   item.KickoffAt.UTC(),
		Status:      match.NormalizeStatus(item.Status),
		HomeTeamID:  item.HomeTeam.ID,
		HomeName:    item.HomeTeam.Name,
		HomeShort:   item.HomeTeam.Short,
		AwayTeamID:  item.AwayTeam.ID,
		AwayName:    item.AwayTeam.Name,
		AwayShort:   item.AwayTeam.Short,
		Competition: item.Competition,
		UpdatedAt:   time.Now().UTC(),
	}
	if item.Live != nil {
		model.HomeScore = optionalInt(item.Live.Home)
		model.AwayScore = optionalInt(item.Live.Away)
		model.Minute = optionalInt(item.Live.Minute)
	}

	query, args, err := qb.InsertModel("matches", model, `ON CONFLICT (team_id)
DO UPDATE SET
    match_id = EXCLUDED.match_id,
    kickoff_at = EXCLUDED.kickoff_at,
    status = EXCLUDED.status,
    home_team_id = EXCLUDED.home_team_id,
    home_name = EXCLUDED.home_name,
    home_short = EXCLUDED.home_short,
    away_team_id = EXCLUDED.away_team_id,
    away_name = EXCLUDED.away_name,
    away_short = EXCLUDED.away_short,
    competition = EXCLUDED.competition,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    minute = EXCLUDED.minute,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert match mirror query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match mirror team_id=%d match_id=%d: %w", teamID, item.ID, err)
	}

	return nil
}
