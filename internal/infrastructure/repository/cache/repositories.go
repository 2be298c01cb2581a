package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/riskibarqy/matchday/internal/domain/device"
	"github.com/riskibarqy/matchday/internal/domain/match"
	"github.com/riskibarqy/matchday/internal/domain/team"
	basecache "github.com/riskibarqy/matchday/internal/platform/cache"
)

type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	v, err := r.cache.GetOrLoad(ctx, "team:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]team.Team)
	return append([]team.Team(nil), items...), nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID int64) (team.Team, bool, error) {
	key := teamByIDKey(teamID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return cachedTeamByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return team.Team{}, false, err
	}

	cached, _ := v.(cachedTeamByID)
	return cached.value, cached.exists, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	if err := r.next.Upsert(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, teamByIDKey(item.ID))
	r.cache.Delete(ctx, "team:list")
	return nil
}

type cachedTeamByID struct {
	value  team.Team
	exists bool
}

func teamByIDKey(teamID int64) string {
	return "team:id:" + strconv.FormatInt(teamID, 10)
}

type DeviceRepository struct {
	next  device.Repository
	cache *basecache.Store
}

func NewDeviceRepository(next device.Repository, cache *basecache.Store) *DeviceRepository {
	return &DeviceRepository{next: next, cache: cache}
}

func (r *DeviceRepository) Create(ctx context.Context, item device.Device) error {
	if err := r.next.Create(ctx, item); err != nil {
		return err
	}
	r.cache.Delete(ctx, deviceByIDKey(item.ID))
	r.cache.Delete(ctx, "device:list")
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, deviceID string) (device.Device, bool, error) {
	key := deviceByIDKey(deviceID)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		return cachedDeviceByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return device.Device{}, false, err
	}

	cached, _ := v.(cachedDeviceByID)
	return cached.value, cached.exists, nil
}

func (r *DeviceRepository) List(ctx context.Context) ([]device.Device, error) {
	v, err := r.cache.GetOrLoad(ctx, "device:list", func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]device.Device(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]device.Device)
	return append([]device.Device(nil), items...), nil
}

func (r *DeviceRepository) Delete(ctx context.Context, deviceID string) error {
	if err := r.next.Delete(ctx, deviceID); err != nil {
		return err
	}
	r.cache.Delete(ctx, deviceByIDKey(deviceID))
	r.cache.Delete(ctx, "device:list")
	return nil
}

type cachedDeviceByID struct {
	value  device.Device
	exists bool
}

func deviceByIDKey(deviceID string) string {
	return "device:id:" + deviceID
}

// MatchProvider memoizes provider lookups. Live lookups get their own short
// TTL so in-play scores stay fresh, while today/next fixtures ride the store
// default; an absent match is cached too, which keeps quiet days from burning
// the provider's request quota.
type MatchProvider struct {
	next    match.Provider
	cache   *basecache.Store
	liveTTL time.Duration
}

func NewMatchProvider(next match.Provider, cache *basecache.Store, liveTTL time.Duration) *MatchProvider {
	return &MatchProvider{next: next, cache: cache, liveTTL: liveTTL}
}

func (p *MatchProvider) LiveMatch(ctx context.Context, teamID int64) (*match.Match, error) {
	key := "match:live:" + strconv.FormatInt(teamID, 10)
	v, err := p.cache.GetOrLoadWithTTL(ctx, key, p.liveTTL, func(ctx context.Context) (any, error) {
		item, err := p.next.LiveMatch(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return cachedMatch{value: cloneMatch(item)}, nil
	})
	if err != nil {
		return nil, err
	}

	cached, _ := v.(cachedMatch)
	return cloneMatch(cached.value), nil
}

func (p *MatchProvider) TodayMatch(ctx context.Context, teamID int64) (*match.Match, error) {
	key := "match:today:" + strconv.FormatInt(teamID, 10)
	return p.loadMatch(ctx, key, teamID, p.next.TodayMatch)
}

func (p *MatchProvider) NextMatch(ctx context.Context, teamID int64) (*match.Match, error) {
	key := "match:next:" + strconv.FormatInt(teamID, 10)
	return p.loadMatch(ctx, key, teamID, p.next.NextMatch)
}

func (p *MatchProvider) loadMatch(ctx context.Context, key string, teamID int64, load func(context.Context, int64) (*match.Match, error)) (*match.Match, error) {
	v, err := p.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, err := load(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return cachedMatch{value: cloneMatch(item)}, nil
	})
	if err != nil {
		return nil, err
	}

	cached, _ := v.(cachedMatch)
	return cloneMatch(cached.value), nil
}

type cachedMatch struct {
	value *match.Match
}

func cloneMatch(item *match.Match) *match.Match {
	if item == nil {
		return nil
	}
	out := *item
	if item.Live != nil {
		live := *item.Live
		live.Home = optionalIntCopy(item.Live.Home)
		live.Away = optionalIntCopy(item.Live.Away)
		live.Minute = optionalIntCopy(item.Live.Minute)
		out.Live = &live
	}
	return &out
}

func optionalIntCopy(value *int) *int {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
