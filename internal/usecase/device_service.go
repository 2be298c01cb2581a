package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/team"
	"github.com/riskibarqy/matchday/internal/platform/id"
	"github.com/riskibarqy/matchday/internal/platform/logging"
)

type RegisterDeviceInput struct {
	TeamID     int64
	TeamName   string
	TeamShort  string
	DeviceName string
}

// DeviceService manages device pairings. A pairing binds one flow device to
// one tracked team; every condition endpoint resolves its team through it.
type DeviceService struct {
	devices     device.Repository
	teams       team.Repository
	statusCache team.StatusCache
	idGenerator id.Generator
	logger      *logging.Logger
	now         func() time.Time
}

func NewDeviceService(
	devices device.Repository,
	teams team.Repository,
	statusCache team.StatusCache,
	idGenerator id.Generator,
	logger *logging.Logger,
) *DeviceService {
	if logger == nil {
		logger = logging.Default()
	}

	return &DeviceService{
		devices:     devices,
		teams:       teams,
		statusCache: statusCache,
		idGenerator: idGenerator,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *DeviceService) Register(ctx context.Context, input RegisterDeviceInput) (device.Device, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeviceService.Register")
	defer span.End()

	teamName := strings.TrimSpace(input.TeamName)
	deviceName := strings.TrimSpace(input.DeviceName)
	if deviceName == "" {
		deviceName = teamName
	}

	trackedTeam := team.Team{
		ID:    input.TeamID,
		Name:  teamName,
		Short: strings.TrimSpace(input.TeamShort),
	}
	if err := trackedTeam.Validate(); err != nil {
		return device.Device{}, err
	}

	if err := s.teams.Upsert(ctx, trackedTeam); err != nil {
		return device.Device{}, fmt.Errorf("upsert tracked team: %w", err)
	}

	deviceID, err := s.idGenerator.NewID()
	if err != nil {
		return device.Device{}, fmt.Errorf("generate device id: %w", err)
	}

	now := s.now().UTC()
	item := device.Device{
		ID:        deviceID,
		TeamID:    trackedTeam.ID,
		Name:      deviceName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := item.Validate(); err != nil {
		return device.Device{}, err
	}

	if err := s.devices.Create(ctx, item); err != nil {
		return device.Device{}, fmt.Errorf("create device: %w", err)
	}

	// Seed the status cache so the first condition check after pairing
	// does not read a stale value from a previously tracked team.
	if s.statusCache != nil {
		if err := s.statusCache.SetStatus(ctx, trackedTeam.ID, team.StatusOther); err != nil {
			s.logger.WarnContext(ctx, "seed liveness status failed",
				"team_id", trackedTeam.ID,
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "device registered",
		"device_id", item.ID,
		"team_id", item.TeamID,
	)

	return item, nil
}

func (s *DeviceService) Get(ctx context.Context, deviceID string) (device.Device, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeviceService.Get")
	defer span.End()

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return device.Device{}, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}

	item, exists, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return device.Device{}, fmt.Errorf("get device: %w", err)
	}
	if !exists {
		return device.Device{}, fmt.Errorf("%w: device=%s", ErrNotFound, deviceID)
	}

	return item, nil
}

func (s *DeviceService) List(ctx context.Context) ([]device.Device, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeviceService.List")
	defer span.End()

	items, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	return items, nil
}

func (s *DeviceService) Unregister(ctx context.Context, deviceID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeviceService.Unregister")
	defer span.End()

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}

	_, exists, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("get device: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: device=%s", ErrNotFound, deviceID)
	}

	if err := s.devices.Delete(ctx, deviceID); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}

	s.logger.InfoContext(ctx, "device unregistered", "device_id", deviceID)
	return nil
}
