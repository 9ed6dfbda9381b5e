package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tanpawarit/chative-workplace-assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
	toolx "github.com/tanpawarit/chative-workplace-assistant/agent/tool"
	"github.com/tanpawarit/chative-workplace-assistant/pkg/metrics"
)

// ToolExecutor resolves one tool request into a record. It must not fail.
type ToolExecutor interface {
	Execute(ctx context.Context, allowed []string, req contractx.ToolRequest) statex.ToolCallRecord
}

// Delegator runs the Delegating / AwaitingToolResult cycle of a turn.
type Delegator struct {
	Agents            contractx.Registry
	Tools             ToolExecutor
	MaxToolRounds     int
	MaxParallelTools  int
	CompletionTimeout time.Duration
	CompletionRetries int
	RetryBackoff      time.Duration
	ToolTimeout       time.Duration
	Logger            zerolog.Logger
	Now               func() time.Time
}

func (d *Delegator) Run(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Failed() {
		return in, nil
	}

	logger := d.Logger.With().Str("session_id", in.SessionID).Logger()
	spec, ok := d.Agents.Get(in.ActiveAgent)
	if !ok {
		spec = d.Agents.Default()
		in.ActiveAgent = spec.Name()
	}

	thread := make([]*schema.Message, 0, len(in.History)+1)
	thread = append(thread, in.History...)
	thread = append(thread, schema.UserMessage(in.Text))

	for {
		in.Phase = PhaseDelegating
		msg, timedOut, err := d.complete(ctx, spec, thread)
		if err != nil {
			kind := contractx.KindCompletionFailed
			if timedOut {
				kind = contractx.KindCompletionTimeout
			}
			logger.Error().Err(err).Str("agent", string(spec.Name())).Str("kind", string(kind)).Msg("completion failed")
			in.Fail(kind, "the completion service did not answer", err)
			return in, nil
		}

		reqs := specialist.ToolRequests(msg.ToolCalls)
		if len(reqs) == 0 {
			in.Phase = PhaseSynthesizing
			reply := strings.TrimSpace(msg.Content)
			if reply == "" {
				in.Fail(contractx.KindEmptyReply, "the agent produced an empty reply", contractx.ErrSchemaViolation)
				return in, nil
			}
			in.Reply = reply
			in.NewMessages = append(in.NewMessages, statex.Message{
				Role:      statex.RoleAssistant,
				Content:   reply,
				Agent:     string(spec.Name()),
				Timestamp: d.now(),
			})
			in.Phase = PhaseDone
			return in, nil
		}

		if in.Rounds >= d.MaxToolRounds {
			logger.Warn().Str("agent", string(spec.Name())).Int("rounds", in.Rounds).Msg("tool round limit reached")
			in.Fail(contractx.KindToolLoopExceeded,
				fmt.Sprintf("the agent kept requesting tools after %d rounds", in.Rounds),
				contractx.ErrToolLoopExceeded)
			return in, nil
		}
		in.Rounds++
		in.Phase = PhaseAwaitingToolResult

		records := d.runTools(ctx, spec.Capabilities(), reqs)
		content := strings.TrimSpace(msg.Content)
		in.NewMessages = append(in.NewMessages, statex.Message{
			Role:      statex.RoleTool,
			Content:   content,
			Agent:     string(spec.Name()),
			ToolCalls: records,
			Timestamp: d.now(),
		})
		thread = append(thread, statex.ToolRoundMessages(content, records)...)

		for _, rec := range records {
			target, err := toolx.ParseHandoff(rec)
			if err != nil {
				continue
			}
			next, ok := d.Agents.Get(target)
			if !ok || target == spec.Name() {
				continue
			}
			logger.Info().Str("from", string(spec.Name())).Str("to", string(target)).Msg("agent handoff")
			spec = next
			in.ActiveAgent = target
			in.Handoffs = append(in.Handoffs, target)
		}
	}
}

// complete calls the agent with a per-attempt timeout and bounded retries.
func (d *Delegator) complete(ctx context.Context, spec contractx.Specialist, thread []*schema.Message) (*schema.Message, bool, error) {
	timedOut := false
	attempt := func() (*schema.Message, error) {
		actx := ctx
		cancel := func() {}
		if d.CompletionTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, d.CompletionTimeout)
		}
		defer cancel()

		started := time.Now()
		msg, err := spec.Delegate(actx, thread)
		metrics.CompletionDuration.WithLabelValues(string(spec.Name())).Observe(time.Since(started).Seconds())

		timedOut = errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if msg == nil {
			return nil, fmt.Errorf("%w: nil message", contractx.ErrSchemaViolation)
		}
		return msg, nil
	}

	expo := backoff.NewExponentialBackOff()
	if d.RetryBackoff > 0 {
		expo.InitialInterval = d.RetryBackoff
	}
	expo.MaxElapsedTime = 0

	retries := d.CompletionRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(retries)), ctx)

	msg, err := backoff.RetryNotifyWithData(attempt, policy, func(err error, wait time.Duration) {
		d.Logger.Warn().Err(err).Str("agent", string(spec.Name())).Dur("retry_in", wait).Msg("completion attempt failed")
	})
	return msg, timedOut, err
}

// runTools resolves one round. Calls run concurrently and the round only
// completes when every call has a record.
func (d *Delegator) runTools(ctx context.Context, allowed []string, reqs []contractx.ToolRequest) []statex.ToolCallRecord {
	records := make([]statex.ToolCallRecord, len(reqs))

	var g errgroup.Group
	if d.MaxParallelTools > 0 {
		g.SetLimit(d.MaxParallelTools)
	}
	for i, req := range reqs {
		g.Go(func() error {
			tctx := ctx
			cancel := func() {}
			if d.ToolTimeout > 0 {
				tctx, cancel = context.WithTimeout(ctx, d.ToolTimeout)
			}
			defer cancel()
			records[i] = d.Tools.Execute(tctx, allowed, req)
			return nil
		})
	}
	_ = g.Wait()
	return records
}

func (d *Delegator) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}
