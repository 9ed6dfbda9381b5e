package workplace

import (
	"context"
	"time"

	"github.com/tanpawarit/chative-workplace-assistant/agent/cache"
)

// Operation names double as cache key namespaces and tool names.
const (
	OpGetUser           = "get_user"
	OpGetManager        = "get_manager"
	OpListDirectReports = "list_direct_reports"
	OpSearchUsers       = "search_users"
	OpCheckUserExists   = "check_user_exists"
	OpListEvents        = "list_events"
	OpSearchNearby      = "search_nearby_places"
)

// CachedDirectory decorates a Directory with cache-aside reads.
type CachedDirectory struct {
	next  Directory
	cache *cache.Adapter
}

func NewCachedDirectory(next Directory, c *cache.Adapter) *CachedDirectory {
	return &CachedDirectory{next: next, cache: c}
}

func (d *CachedDirectory) GetUser(ctx context.Context, userID string) (User, error) {
	return cache.Wrap(ctx, d.cache, OpGetUser, cache.CategoryIdentity,
		map[string]any{"user_id": userID},
		func(ctx context.Context) (User, error) { return d.next.GetUser(ctx, userID) })
}

func (d *CachedDirectory) GetManager(ctx context.Context, userID string) (User, error) {
	return cache.Wrap(ctx, d.cache, OpGetManager, cache.CategoryIdentity,
		map[string]any{"user_id": userID},
		func(ctx context.Context) (User, error) { return d.next.GetManager(ctx, userID) })
}

func (d *CachedDirectory) ListDirectReports(ctx context.Context, managerID string) ([]User, error) {
	return cache.Wrap(ctx, d.cache, OpListDirectReports, cache.CategoryTopology,
		map[string]any{"manager_id": managerID},
		func(ctx context.Context) ([]User, error) { return d.next.ListDirectReports(ctx, managerID) })
}

func (d *CachedDirectory) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	return cache.Wrap(ctx, d.cache, OpSearchUsers, cache.CategorySearch,
		map[string]any{"query": query, "limit": limit},
		func(ctx context.Context) ([]User, error) { return d.next.SearchUsers(ctx, query, limit) })
}

func (d *CachedDirectory) UserExists(ctx context.Context, email string) (bool, error) {
	return cache.Wrap(ctx, d.cache, OpCheckUserExists, cache.CategoryValidation,
		map[string]any{"email": email},
		func(ctx context.Context) (bool, error) { return d.next.UserExists(ctx, email) })
}

type CachedCalendar struct {
	next  Calendar
	cache *cache.Adapter
}

func NewCachedCalendar(next Calendar, c *cache.Adapter) *CachedCalendar {
	return &CachedCalendar{next: next, cache: c}
}

func (c *CachedCalendar) ListEvents(ctx context.Context, userID string, from, to time.Time) ([]Event, error) {
	args := map[string]any{
		"user_id": userID,
		"from":    from.UTC().Format(time.RFC3339),
		"to":      to.UTC().Format(time.RFC3339),
	}
	return cache.Wrap(ctx, c.cache, OpListEvents, cache.CategoryCalendar, args,
		func(ctx context.Context) ([]Event, error) { return c.next.ListEvents(ctx, userID, from, to) })
}

type CachedLocations struct {
	next  Locations
	cache *cache.Adapter
}

func NewCachedLocations(next Locations, c *cache.Adapter) *CachedLocations {
	return &CachedLocations{next: next, cache: c}
}

func (l *CachedLocations) SearchNearby(ctx context.Context, near, category string, radiusMeters int) ([]Place, error) {
	args := map[string]any{"near": near, "category": category, "radius_meters": radiusMeters}
	return cache.Wrap(ctx, l.cache, OpSearchNearby, cache.CategorySearch, args,
		func(ctx context.Context) ([]Place, error) { return l.next.SearchNearby(ctx, near, category, radiusMeters) })
}
