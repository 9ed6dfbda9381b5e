package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	nodex "github.com/tanpawarit/chative-workplace-assistant/agent/nodes/orchestrator"
	"github.com/tanpawarit/chative-workplace-assistant/agent/routing"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
)

// Config bounds a single turn. Loaded with the ORCHESTRATOR prefix.
type Config struct {
	MaxToolRounds     int           `split_words:"true" default:"5"`
	MaxParallelTools  int           `split_words:"true" default:"4"`
	CompletionTimeout time.Duration `split_words:"true" default:"45s"`
	CompletionRetries int           `split_words:"true" default:"1"`
	RetryBackoff      time.Duration `split_words:"true" default:"500ms"`
	ToolTimeout       time.Duration `split_words:"true" default:"10s"`
}

func DefaultConfig() Config {
	return Config{
		MaxToolRounds:     5,
		MaxParallelTools:  4,
		CompletionTimeout: 45 * time.Second,
		CompletionRetries: 1,
		RetryBackoff:      500 * time.Millisecond,
		ToolTimeout:       10 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MaxToolRounds < 1:
		return errors.New("max tool rounds must be at least 1")
	case c.MaxParallelTools < 1:
		return errors.New("max parallel tools must be at least 1")
	case c.CompletionRetries < 0:
		return errors.New("completion retries must not be negative")
	}
	return nil
}

type Orchestrator struct {
	store     statex.Store
	agents    contractx.Registry
	selector  routing.Selector
	delegator *nodex.Delegator
	logger    zerolog.Logger

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	mu   sync.Mutex
	busy map[string]struct{}

	now func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(
	store statex.Store,
	agents contractx.Registry,
	tools nodex.ToolExecutor,
	selector routing.Selector,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if agents == nil {
		return nil, errors.New("agent registry is required")
	}
	if tools == nil {
		return nil, errors.New("tool executor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if selector == nil {
		selector = routing.Static(agents.Default().Name())
	}

	o := &Orchestrator{
		store:    store,
		agents:   agents,
		selector: selector,
		logger:   log.Logger,
		busy:     make(map[string]struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	o.delegator = &nodex.Delegator{
		Agents:            agents,
		Tools:             tools,
		MaxToolRounds:     cfg.MaxToolRounds,
		MaxParallelTools:  cfg.MaxParallelTools,
		CompletionTimeout: cfg.CompletionTimeout,
		CompletionRetries: cfg.CompletionRetries,
		RetryBackoff:      cfg.RetryBackoff,
		ToolTimeout:       cfg.ToolTimeout,
		Logger:            o.logger,
		Now:               o.now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one turn. On failure the returned reply is the
// apology that was persisted for the turn, if any, and the error is a
// *contract.TurnError.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	key := strings.TrimSpace(sessionID)
	if key != "" {
		if !o.acquire(key) {
			return "", contractx.NewTurnError(contractx.KindBusy, "another turn is in progress for this session", contractx.ErrSessionBusy)
		}
		defer o.release(key)
	}

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("session_id", key).Msg("turn graph failed")
		return "", contractx.NewTurnError(contractx.KindInternal, "turn could not be processed", err)
	}
	if out.Err != nil {
		return out.Reply, out.Err
	}
	return out.Reply, nil
}

// Session returns the stored conversation for sessionID.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*statex.Session, error) {
	sess, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return sess, nil
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, held := o.busy[sessionID]; held {
		return false
	}
	o.busy[sessionID] = struct{}{}
	return true
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	delete(o.busy, sessionID)
	o.mu.Unlock()
}
