package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/matchday/internal/domain/device"
)

type DeviceRepository struct {
	mu     sync.RWMutex
	items  map[string]device.Device
	orders []string
}

func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{
		items: make(map[string]device.Device),
	}
}

func (r *DeviceRepository) Create(_ context.Context, item device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; !exists {
		r.orders = append(r.orders, item.ID)
	}
	r.items[item.ID] = item
	return nil
}

func (r *DeviceRepository) GetByID(_ context.Context, deviceID string) (device.Device, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[deviceID]
	if !ok {
		return device.Device{}, false, nil
	}

	return item, true, nil
}

func (r *DeviceRepository) List(_ context.Context) ([]device.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]device.Device, 0, len(r.orders))
	for _, id := range r.orders {
		out = append(out, r.items[id])
	}

	return out, nil
}

func (r *DeviceRepository) Delete(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[deviceID]; !ok {
		return nil
	}
	delete(r.items, deviceID)
	for idx, id := range r.orders {
		if id == deviceID {
			r.orders = append(r.orders[:idx], r.orders[idx+1:]...)
			break
		}
	}

	return nil
}
