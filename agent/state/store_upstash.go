package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UpstashRedisStore persists one JSON record per session in Upstash Redis
// via its REST API. Each Append rewrites the record with a single SET.
type UpstashRedisStore struct {
	baseURL string
	token   string
	opts    storeOptions
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	Token     string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"0s"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true" default:"chative:session:"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	base := []StoreOption{WithKeyPrefix(cfg.KeyPrefix), WithTTL(cfg.TTL)}
	o := buildOptions(append(base, opts...))
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: timeout}
	}
	if o.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return &UpstashRedisStore{
		baseURL: baseURL,
		token:   token,
		opts:    o,
	}, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	rec, err := s.get(ctx, sessionID)
	if errors.Is(err, ErrUnreadableRecord) {
		s.opts.logger.Warn().Err(err).Str("session_id", sessionID).Msg("loading unreadable session record as empty")
		return NewSession(sessionID, s.opts.now()), nil
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return NewSession(sessionID, s.opts.now()), nil
	}
	return rec.toSession(s.opts.logger), nil
}

func (s *UpstashRedisStore) Append(ctx context.Context, sessionID string, msgs []Message) error {
	if len(msgs) == 0 {
		return validSessionID(sessionID)
	}
	rec, err := s.get(ctx, sessionID)
	if err != nil {
		return err
	}

	rec, err = appendToRecord(rec, sessionID, msgs, s.opts)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	cmd := []any{"SET", key, string(payload)}
	if s.opts.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.opts.ttl))
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

// get returns nil when the session has no record. A record that cannot be
// read at all yields ErrUnreadableRecord so Append never overwrites it.
func (s *UpstashRedisStore) get(ctx context.Context, sessionID string) (*record, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, nil
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}

	return decodeRecord(sessionID, []byte(encoded), s.opts.logger)
}

func (s *UpstashRedisStore) redisKey(sessionID string) (string, error) {
	if err := validSessionID(sessionID); err != nil {
		return "", err
	}
	return s.opts.keyPrefix + sessionID, nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.opts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
