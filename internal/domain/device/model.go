package device

import (
	"fmt"
	"strings"
	"time"
)

// Device is one tracked team registered by the flow engine during pairing.
type Device struct {
	ID        string
	TeamID    int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d Device) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("device id is required")
	}
	if d.TeamID <= 0 {
		return fmt.Errorf("device team id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("device name is required")
	}

	return nil
}
