package state

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultStoreKeyPrefix = "chative:session:"
	defaultPartitionKey   = "workplace"
)

// Store is the persistence contract used by the orchestrator. Append is
// the only write path for messages.
type Store interface {
	// Load returns the stored session, or an empty session when none exists.
	Load(ctx context.Context, sessionID string) (*Session, error)
	// Append adds msgs to the session in one atomic step, creating it when needed.
	Append(ctx context.Context, sessionID string, msgs []Message) error
	Delete(ctx context.Context, sessionID string) error
}

type storeOptions struct {
	keyPrefix    string
	partitionKey string
	ttl          time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger
	now          func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		keyPrefix:    defaultStoreKeyPrefix,
		partitionKey: defaultPartitionKey,
		logger:       log.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StoreOption customizes any Store implementation in this package.
type StoreOption func(*storeOptions)

func WithKeyPrefix(prefix string) StoreOption {
	return func(o *storeOptions) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

func WithPartitionKey(key string) StoreOption {
	return func(o *storeOptions) {
		trimmed := strings.TrimSpace(key)
		if trimmed != "" {
			o.partitionKey = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(o *storeOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []StoreOption) storeOptions {
	o := defaultStoreOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func validSessionID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return nil
}

// appendToRecord applies a validated batch to an existing (possibly nil) record.
func appendToRecord(rec *record, sessionID string, msgs []Message, o storeOptions) (*record, error) {
	now := o.now().UTC()
	if rec == nil {
		rec = &record{
			ID:           sessionID,
			PartitionKey: o.partitionKey,
			CreatedAt:    now,
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	var last time.Time
	if existing := decodeMessages(sessionID, rec.Messages, o.logger); len(existing) > 0 {
		last = existing[len(existing)-1].Timestamp
	}

	batch, err := prepareBatch(last, msgs, now)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeMessages(batch)
	if err != nil {
		return nil, err
	}

	rec.Messages = append(rec.Messages, encoded...)
	rec.UpdatedAt = now
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}
	return rec, nil
}
