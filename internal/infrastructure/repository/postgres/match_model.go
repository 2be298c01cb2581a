package postgres

import "time"

type matchMirrorInsertModel struct {
	TeamID      int64     `db:"team_id"`
	MatchID     int64     `db:"match_id"`
	KickoffAt   time.Time `db:"kickoff_at"`
	Status      string    `db:"status"`
	HomeTeamID  int64     `db:"home_team_id"`
	HomeName    string    `db:"home_name"`
	HomeShort   string    `db:"home_short"`
	AwayTeamID  int64     `db:"away_team_id"`
	AwayName    string    `db:"away_name"`
	AwayShort   string    `db:"away_short"`
	Competition string    `db:"competition"`
	HomeScore   *int      `db:"home_score"`
	AwayScore   *int      `db:"away_score"`
	Minute      *int      `db:"minute"`
	UpdatedAt   time.Time `db:"updated_at"`
}
