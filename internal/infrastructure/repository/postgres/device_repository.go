package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/matchday/internal/domain/device"
	qb "github.com/riskibarqy/matchday/internal/platform/querybuilder"
)

type DeviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, item device.Device) error {
	deviceID := strings.TrimSpace(item.ID)
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}

	createdAt := item.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := item.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	model := deviceInsertModel{
		ID:        deviceID,
		TeamID:    item.TeamID,
		Name:      item.Name,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	query, args, err := qb.InsertModel("devices", model, "")
	if err != nil {
		return fmt.Errorf("build insert device query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert device id=%s: %w", deviceID, err)
	}

	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID string) (device.Device, bool, error) {
	query, args, err := qb.Select("*").From("devices").
		Where(
			qb.Eq("id", deviceID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return device.Device{}, false, fmt.Errorf("build select device by id query: %w", err)
	}

	var row deviceTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return device.Device{}, false, nil
		}
		return device.Device{}, false, fmt.Errorf("select device id=%s: %w", deviceID, err)
	}

	return mapDeviceRow(row), true, nil
}

func (r *DeviceRepository) List(ctx context.Context) ([]device.Device, error) {
	query, args, err := qb.Select("*").From("devices").
		Where(qb.IsNull("deleted_at")).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select devices query: %w", err)
	}

	var rows []deviceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}

	out := make([]device.Device, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapDeviceRow(row))
	}

	return out, nil
}

func (r *DeviceRepository) Delete(ctx context.Context, deviceID string) error {
	query, args, err := qb.Update("devices").
		SetExpr("deleted_at", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", deviceID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete device query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete device id=%s: %w", deviceID, err)
	}

	return nil
}

func mapDeviceRow(row deviceTableModel) device.Device {
	return device.Device{
		ID:        row.ID,
		TeamID:    row.TeamID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
