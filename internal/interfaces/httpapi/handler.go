package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/trigger"
	"github.com/riskibarqy/matchday/internal/platform/logging"
	"github.com/riskibarqy/matchday/internal/usecase"
)

type Handler struct {
	deviceService       *usecase.DeviceService
	teamService         *usecase.TeamService
	livenessService     *usecase.LivenessService
	outcomeService      *usecase.OutcomeService
	fixtureService      *usecase.FixtureService
	snapshotService     *usecase.SnapshotService
	overviewService     *usecase.OverviewService
	refreshService      *usecase.RefreshService
	cycleOrchestrator   *usecase.RefreshOrchestratorService
	triggerDispatchRepo trigger.Repository
	logger              *logging.Logger
	validator           *validator.Validate
}

func NewHandler(
	deviceService *usecase.DeviceService,
	teamService *usecase.TeamService,
	livenessService *usecase.LivenessService,
	outcomeService *usecase.OutcomeService,
	fixtureService *usecase.FixtureService,
	snapshotService *usecase.SnapshotService,
	overviewService *usecase.OverviewService,
	refreshService *usecase.RefreshService,
	cycleOrchestrator *usecase.RefreshOrchestratorService,
	triggerDispatchRepo trigger.Repository,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		deviceService:       deviceService,
		teamService:         teamService,
		livenessService:     livenessService,
		outcomeService:      outcomeService,
		fixtureService:      fixtureService,
		snapshotService:     snapshotService,
		overviewService:     overviewService,
		refreshService:      refreshService,
		cycleOrchestrator:   cycleOrchestrator,
		triggerDispatchRepo: triggerDispatchRepo,
		logger:              logger,
		validator:           validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// resolveDevice looks up the device named in the request path. Condition
// routes always address a device, never a team; the pairing owns the mapping.
func (h *Handler) resolveDevice(ctx context.Context, r *http.Request) (device.Device, error) {
	return h.deviceService.Get(ctx, r.PathValue("deviceID"))
}
