package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/matchday/internal/domain/team"
)

const defaultStatusTTL = 6 * time.Hour

// StatusStore keeps per-team liveness classifications in Redis so restarts
// and horizontally scaled replicas agree on which teams are mid-match. A
// missing key reads as OTHER; the evaluator treats that the same as a cold
// cache.
type StatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusStore(client *redis.Client, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &StatusStore{client: client, ttl: ttl}
}

// Connect dials Redis and verifies the connection before first use.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}

func (s *StatusStore) GetStatus(ctx context.Context, teamID int64) (team.LivenessStatus, error) {
	raw, err := s.client.Get(ctx, statusKey(teamID)).Result()
	if err == redis.Nil {
		return team.StatusOther, nil
	}
	if err != nil {
		return team.StatusOther, fmt.Errorf("get team status team_id=%d: %w", teamID, err)
	}
	return team.NormalizeLivenessStatus(raw), nil
}

func (s *StatusStore) SetStatus(ctx context.Context, teamID int64, status team.LivenessStatus) error {
	value := string(team.NormalizeLivenessStatus(string(status)))
	if err := s.client.Set(ctx, statusKey(teamID), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set team status team_id=%d: %w", teamID, err)
	}
	return nil
}

func statusKey(teamID int64) string {
	return "team:status:" + strconv.FormatInt(teamID, 10)
}
