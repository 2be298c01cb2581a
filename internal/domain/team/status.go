package team

import (
	"context"
	"strings"
)

// LivenessStatus is the cached capability classification for a tracked
// team: the last verdict the refresh worker persisted, possibly stale.
type LivenessStatus string

const (
	StatusLive     LivenessStatus = "LIVE"
	StatusHalftime LivenessStatus = "HALFTIME"
	StatusOther    LivenessStatus = "OTHER"
)

// NormalizeLivenessStatus maps free-form input onto the known set.
func NormalizeLivenessStatus(value string) LivenessStatus {
	switch LivenessStatus(strings.ToUpper(strings.TrimSpace(value))) {
	case StatusLive:
		return StatusLive
	case StatusHalftime:
		return StatusHalftime
	default:
		return StatusOther
	}
}

// InProgress reports whether the cached classification counts as playing.
func (s LivenessStatus) InProgress() bool {
	return s == StatusLive || s == StatusHalftime
}

// StatusCache stores the last known liveness classification per team.
// The refresh worker is the only writer; evaluators read. Unknown teams
// read as StatusOther.
type StatusCache interface {
	GetStatus(ctx context.Context, teamID int64) (LivenessStatus, error)
	SetStatus(ctx context.Context, teamID int64, status LivenessStatus) error
}
