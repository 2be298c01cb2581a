package match

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusHalftime  = "HALFTIME"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
	StatusUnknown   = "UNKNOWN"
)

// TeamRef identifies one side of a match as the provider reports it.
type TeamRef struct {
	ID    int64
	Name  string
	Short string
}

// Label returns the display form of the side, preferring the short name.
func (t TeamRef) Label() string {
	if short := strings.TrimSpace(t.Short); short != "" {
		return short
	}
	return strings.TrimSpace(t.Name)
}

// Score holds the in-play state of a match. Fields are nil while the
// provider has not reported them.
type Score struct {
	Home   *int
	Away   *int
	Minute *int
}

// Match is one fixture as reported by the provider. Status keeps the
// provider's raw value; the status helpers below normalize for
// classification only. A Match is a snapshot valid for a single evaluation.
type Match struct {
	ID          int64
	KickoffAt   time.Time
	Status      string
	HomeTeam    TeamRef
	AwayTeam    TeamRef
	Competition string
	Live        *Score
}

// IsHome reports whether teamID plays at home in this match.
func (m Match) IsHome(teamID int64) bool {
	return m.HomeTeam.ID == teamID
}

// Opponent returns the other side's record relative to teamID.
func (m Match) Opponent(teamID int64) TeamRef {
	if m.IsHome(teamID) {
		return m.AwayTeam
	}
	return m.HomeTeam
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusLive, StatusHalftime, "IN_PLAY", "PAUSED", "HT", "1H", "2H", "ET":
		return true
	default:
		return false
	}
}

func IsHalftimeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusHalftime, "PAUSED", "HT":
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN":
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusCancelled, StatusPostponed, "SUSPENDED", "ABANDONED":
		return true
	default:
		return false
	}
}
