package httpapi

import (
	"fmt"
	"net/http"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/usecase"
)

func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegisterDevice")
	defer span.End()

	var req registerDeviceRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	registered, err := h.deviceService.Register(ctx, usecase.RegisterDeviceInput{
		TeamID:     req.TeamID,
		TeamName:   req.TeamName,
		TeamShort:  req.TeamShort,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register device failed", "team_id", req.TeamID, "device_name", req.DeviceName, "error", err)
		writeError(ctx, w, err)
		return
	}

	principal, _ := principalFromContext(ctx)
	h.logger.InfoContext(ctx, "device registered",
		"device_id", registered.ID,
		"team_id", registered.TeamID,
		"user_id", principal.UserID,
	)

	writeSuccess(ctx, w, http.StatusCreated, deviceToDTO(registered))
}

func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDevices")
	defer span.End()

	devices, err := h.deviceService.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list devices failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]deviceDTO, 0, len(devices))
	for _, d := range devices {
		items = append(items, deviceToDTO(d))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDevice")
	defer span.End()

	found, err := h.resolveDevice(ctx, r)
	if err != nil {
		h.logger.WarnContext(ctx, "get device failed", "device_id", r.PathValue("deviceID"), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, deviceToDTO(found))
}

func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteDevice")
	defer span.End()

	deviceID := r.PathValue("deviceID")
	if err := h.deviceService.Unregister(ctx, deviceID); err != nil {
		h.logger.WarnContext(ctx, "delete device failed", "device_id", deviceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	principal, _ := principalFromContext(ctx)
	h.logger.InfoContext(ctx, "device unregistered", "device_id", deviceID, "user_id", principal.UserID)

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) GetDeviceOverview(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetDeviceOverview")
	defer span.End()

	deviceID := r.PathValue("deviceID")
	overview, err := h.overviewService.Overview(ctx, deviceID)
	if err != nil {
		h.logger.WarnContext(ctx, "device overview failed", "device_id", deviceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, overviewToDTO(overview))
}

func deviceToDTO(v device.Device) deviceDTO {
	return deviceDTO{
		ID:           v.ID,
		TeamID:       v.TeamID,
		Name:         v.Name,
		CreatedAtUTC: v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAtUTC: v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func overviewToDTO(v usecase.DeviceOverview) deviceOverviewDTO {
	return deviceOverviewDTO{
		Device:      deviceToDTO(v.Device),
		Team:        teamToDTO(v.Team),
		IsLive:      v.IsLive,
		Scoreboard:  scoreboardToDTO(v.Snapshot),
		NextFixture: fixtureToDTO(v.NextFixture),
	}
}

type registerDeviceRequest struct {
	TeamID     int64  `json:"team_id" validate:"required,gt=0"`
	TeamName   string `json:"team_name" validate:"required,max=120"`
	TeamShort  string `json:"team_short" validate:"omitempty,max=40"`
	DeviceName string `json:"device_name" validate:"required,max=120"`
}

type deviceDTO struct {
	ID           string `json:"id"`
	TeamID       int64  `json:"team_id"`
	Name         string `json:"name"`
	CreatedAtUTC string `json:"created_at_utc"`
	UpdatedAtUTC string `json:"updated_at_utc"`
}

type deviceOverviewDTO struct {
	Device      deviceDTO     `json:"device"`
	Team        teamDTO       `json:"team"`
	IsLive      bool          `json:"is_live"`
	Scoreboard  scoreboardDTO `json:"scoreboard"`
	NextFixture *fixtureDTO   `json:"next_fixture"`
}
