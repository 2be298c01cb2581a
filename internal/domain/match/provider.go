package match

import "context"

// Provider is the external source of truth for match schedules and live
// state. A nil match with a nil error means the provider answered and found
// nothing, which callers must treat as absent data rather than a failure.
type Provider interface {
	LiveMatch(ctx context.Context, teamID int64) (*Match, error)
	TodayMatch(ctx context.Context, teamID int64) (*Match, error)
	NextMatch(ctx context.Context, teamID int64) (*Match, error)
}
