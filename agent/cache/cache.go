package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-workplace-assistant/pkg/metrics"
)

// Category groups read operations that share a freshness requirement.
type Category string

const (
	CategoryIdentity   Category = "identity"
	CategoryTopology   Category = "topology"
	CategoryCalendar   Category = "calendar"
	CategorySearch     Category = "search"
	CategoryValidation Category = "validation"
)

var ErrNilFetch = errors.New("cache: fetch function is nil")

// Store is a byte-oriented key/value backend with per-entry expiry.
type Store interface {
	// Get reports found=false for a missing or expired key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeleteByPrefix removes every key starting with prefix and returns how many went.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
}

// Config maps categories to TTLs. Loaded with prefix CACHE.
type Config struct {
	Backend    string        `envconfig:"BACKEND" default:"memory"` // memory | redis
	Default    time.Duration `envconfig:"TTL_DEFAULT" split_words:"true" default:"300s"`
	Identity   time.Duration `envconfig:"TTL_IDENTITY" split_words:"true" default:"600s"`
	Topology   time.Duration `envconfig:"TTL_TOPOLOGY" split_words:"true" default:"3600s"`
	Calendar   time.Duration `envconfig:"TTL_CALENDAR" split_words:"true" default:"180s"`
	Search     time.Duration `envconfig:"TTL_SEARCH" split_words:"true" default:"300s"`
	Validation time.Duration `envconfig:"TTL_VALIDATION" split_words:"true" default:"1800s"`
}

func DefaultConfig() Config {
	return Config{
		Backend:    "memory",
		Default:    300 * time.Second,
		Identity:   600 * time.Second,
		Topology:   3600 * time.Second,
		Calendar:   180 * time.Second,
		Search:     300 * time.Second,
		Validation: 1800 * time.Second,
	}
}

// TTLFor returns the configured TTL of category, or the default TTL.
func (c Config) TTLFor(category Category) time.Duration {
	var ttl time.Duration
	switch category {
	case CategoryIdentity:
		ttl = c.Identity
	case CategoryTopology:
		ttl = c.Topology
	case CategoryCalendar:
		ttl = c.Calendar
	case CategorySearch:
		ttl = c.Search
	case CategoryValidation:
		ttl = c.Validation
	}
	if ttl <= 0 {
		ttl = c.Default
	}
	return ttl
}

// Adapter implements cache-aside reads over a Store.
type Adapter struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

type Option func(*Adapter)

func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

func New(store Store, cfg Config, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		cfg:    cfg,
		logger: log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Purge drops every cached entry of operation.
func (a *Adapter) Purge(ctx context.Context, operation string) (int, error) {
	if a == nil || a.store == nil {
		return 0, nil
	}
	return a.store.DeleteByPrefix(ctx, operation+":")
}

// Wrap returns the cached value for (operation, args) or calls fetch and
// stores its result with the TTL of category. Backend failures are logged
// and never returned; only fetch errors reach the caller, and they are
// never cached. fetch must be an idempotent read.
func Wrap[T any](
	ctx context.Context,
	a *Adapter,
	operation string,
	category Category,
	args map[string]any,
	fetch func(context.Context) (T, error),
) (T, error) {
	var zero T
	if fetch == nil {
		return zero, ErrNilFetch
	}
	if a == nil || a.store == nil {
		return fetch(ctx)
	}

	logger := a.logger.With().Str("operation", operation).Str("category", string(category)).Logger()

	key, err := Key(operation, args)
	if err != nil {
		logger.Warn().Err(err).Msg("cache: cannot hash arguments, bypassing cache")
		metrics.CacheRequests.WithLabelValues(operation, "error").Inc()
		return fetch(ctx)
	}

	reachable := true
	raw, found, err := a.store.Get(ctx, key)
	switch {
	case err != nil:
		reachable = false
		logger.Warn().Err(err).Str("key", key).Msg("cache: read failed, fetching directly")
		metrics.CacheRequests.WithLabelValues(operation, "error").Inc()
	case found:
		var cached T
		derr := decodeValue(raw, &cached)
		if derr == nil {
			metrics.CacheRequests.WithLabelValues(operation, "hit").Inc()
			return cached, nil
		}
		logger.Warn().Err(derr).Str("key", key).Msg("cache: undecodable entry, refetching")
		metrics.CacheRequests.WithLabelValues(operation, "miss").Inc()
	default:
		metrics.CacheRequests.WithLabelValues(operation, "miss").Inc()
	}

	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	if !reachable {
		return value, nil
	}

	encoded, err := encodeValue(value)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache: cannot encode value, not caching")
		return value, nil
	}
	if err := a.store.Set(ctx, key, encoded, a.cfg.TTLFor(category)); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("cache: write failed")
	}
	return value, nil
}
