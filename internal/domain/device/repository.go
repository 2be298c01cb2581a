package device

import "context"

// Repository describes device registry persistence needs from use cases.
type Repository interface {
	Create(ctx context.Context, item Device) error
	GetByID(ctx context.Context, deviceID string) (Device, bool, error)
	List(ctx context.Context) ([]Device, error)
	Delete(ctx context.Context, deviceID string) error
}
