package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/matchday/internal/usecase"
)

// Condition handlers answer the flow engine's boolean checks. They never
// return 404 for "no match": absent data is a normal false, and a negative
// verdict must stay deliverable even when the provider is down.

func (h *Handler) ConditionPlaying(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConditionPlaying")
	defer span.End()

	found, err := h.resolveDevice(ctx, r)
	if err != nil {
		h.logger.WarnContext(ctx, "condition playing failed", "device_id", r.PathValue("deviceID"), "error", err)
		writeError(ctx, w, err)
		return
	}

	result, err := h.livenessService.IsLive(ctx, found.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "condition playing failed", "device_id", found.ID, "team_id", found.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, conditionDTO{
		DeviceID:  found.ID,
		TeamID:    found.TeamID,
		Condition: "playing",
		Result:    result,
	})
}

func (h *Handler) ConditionWinning(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConditionWinning")
	defer span.End()

	h.serveOutcomeCondition(ctx, w, r, "winning", h.outcomeService.IsWinning)
}

func (h *Handler) ConditionLosing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConditionLosing")
	defer span.End()

	h.serveOutcomeCondition(ctx, w, r, "losing", h.outcomeService.IsLosing)
}

func (h *Handler) ConditionDrawing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConditionDrawing")
	defer span.End()

	h.serveOutcomeCondition(ctx, w, r, "drawing", h.outcomeService.IsDrawing)
}

func (h *Handler) serveOutcomeCondition(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
	condition string,
	evaluate func(ctx context.Context, teamID int64) (bool, error),
) {
	found, err := h.resolveDevice(ctx, r)
	if err != nil {
		h.logger.WarnContext(ctx, "outcome condition failed", "device_id", r.PathValue("deviceID"), "condition", condition, "error", err)
		writeError(ctx, w, err)
		return
	}

	result, err := evaluate(ctx, found.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "outcome condition failed", "device_id", found.ID, "team_id", found.TeamID, "condition", condition, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, conditionDTO{
		DeviceID:  found.ID,
		TeamID:    found.TeamID,
		Condition: condition,
		Result:    result,
	})
}

func (h *Handler) ConditionUpcoming(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ConditionUpcoming")
	defer span.End()

	hours, err := parseHoursQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	found, err := h.resolveDevice(ctx, r)
	if err != nil {
		h.logger.WarnContext(ctx, "condition upcoming failed", "device_id", r.PathValue("deviceID"), "error", err)
		writeError(ctx, w, err)
		return
	}

	result, err := h.fixtureService.IsWithinHours(ctx, found.TeamID, hours)
	if err != nil {
		h.logger.WarnContext(ctx, "condition upcoming failed", "device_id", found.ID, "team_id", found.TeamID, "hours", hours, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, conditionDTO{
		DeviceID:  found.ID,
		TeamID:    found.TeamID,
		Condition: "upcoming",
		Result:    result,
		Hours:     hours,
	})
}

func (h *Handler) GetNextMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetNextMatch")
	defer span.End()

	found, err := h.resolveDevice(ctx, r)
	if err != nil {
		h.logger.WarnContext(ctx, "next match failed", "device_id", r.PathValue("deviceID"), "error", err)
		writeError(ctx, w, err)
		return
	}

	summary, err := h.fixtureService.NextFixture(ctx, found.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "next match failed", "device_id", found.ID, "team_id", found.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	// A team without an upcoming fixture is a normal state: the fixture
	// field renders as an explicit null instead of a 404.
	writeSuccess(ctx, w, http.StatusOK, nextMatchDTO{
		DeviceID: found.ID,
		TeamID:   found.TeamID,
		Fixture:  fixtureToDTO(summary),
	})
}

func (h *Handler) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetScoreboard")
	defer span.End()

	found, err := h.resolveDevice(ctx, r)
	if err != nil {
		h.logger.WarnContext(ctx, "scoreboard failed", "device_id", r.PathValue("deviceID"), "error", err)
		writeError(ctx, w, err)
		return
	}

	snapshot, err := h.snapshotService.Snapshot(ctx, found.TeamID)
	if err != nil {
		h.logger.WarnContext(ctx, "scoreboard failed", "device_id", found.ID, "team_id", found.TeamID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, scoreboardToDTO(snapshot))
}

func parseHoursQuery(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("hours"))
	if raw == "" {
		return 0, fmt.Errorf("%w: hours query parameter is required", usecase.ErrInvalidInput)
	}

	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: hours %q is not a number", usecase.ErrInvalidInput, raw)
	}

	return hours, nil
}

func fixtureToDTO(v *usecase.FixtureSummary) *fixtureDTO {
	if v == nil {
		return nil
	}

	return &fixtureDTO{
		MatchID:      v.MatchID,
		Opponent:     v.Opponent,
		IsHome:       v.IsHome,
		Venue:        v.Venue,
		Competition:  v.Competition,
		KickoffAtUTC: v.KickoffAt.UTC().Format(time.RFC3339),
		Date:         v.Date,
		Time:         v.Time,
		DaysUntil:    v.DaysUntil,
	}
}

func scoreboardToDTO(v usecase.ScoreSnapshot) scoreboardDTO {
	return scoreboardDTO{
		HomeTeam:  v.HomeName,
		AwayTeam:  v.AwayName,
		HomeScore: v.HomeScore,
		AwayScore: v.AwayScore,
		Score:     v.Summary,
		Minute:    v.Minute,
		Status:    v.Status,
		IsLive:    v.IsLive,
	}
}

type conditionDTO struct {
	DeviceID  string `json:"device_id"`
	TeamID    int64  `json:"team_id"`
	Condition string `json:"condition"`
	Result    bool   `json:"result"`
	Hours     int    `json:"hours,omitempty"`
}

type nextMatchDTO struct {
	DeviceID string      `json:"device_id"`
	TeamID   int64       `json:"team_id"`
	Fixture  *fixtureDTO `json:"fixture"`
}

type fixtureDTO struct {
	MatchID      int64  `json:"match_id"`
	Opponent     string `json:"opponent"`
	IsHome       bool   `json:"is_home"`
	Venue        string `json:"venue"`
	Competition  string `json:"competition,omitempty"`
	KickoffAtUTC string `json:"kickoff_at_utc"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	DaysUntil    int    `json:"days_until"`
}

type scoreboardDTO struct {
	HomeTeam  string `json:"home_team"`
	AwayTeam  string `json:"away_team"`
	HomeScore int    `json:"home_score"`
	AwayScore int    `json:"away_score"`
	Score     string `json:"score"`
	Minute    int    `json:"minute"`
	Status    string `json:"status"`
	IsLive    bool   `json:"is_live"`
}
