package team

import "context"

// Repository is the registry's view of team persistence. Upsert keeps
// pairing idempotent when a device re-registers an already known team.
type Repository interface {
	List(ctx context.Context) ([]Team, error)
	GetByID(ctx context.Context, teamID int64) (Team, bool, error)
	Upsert(ctx context.Context, item Team) error
}
