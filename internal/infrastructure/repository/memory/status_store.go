package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/matchday/internal/domain/team"
)

// StatusStore keeps the refreshed liveness status per team in process
// memory. The default backend when no Redis is configured.
type StatusStore struct {
	mu    sync.RWMutex
	items map[int64]team.LivenessStatus
}

func NewStatusStore() *StatusStore {
	return &StatusStore{
		items: make(map[int64]team.LivenessStatus),
	}
}

func (s *StatusStore) GetStatus(_ context.Context, teamID int64) (team.LivenessStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.items[teamID]
	if !ok {
		return team.StatusOther, nil
	}

	return status, nil
}

func (s *StatusStore) SetStatus(_ context.Context, teamID int64, status team.LivenessStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[teamID] = team.NormalizeLivenessStatus(string(status))
	return nil
}
