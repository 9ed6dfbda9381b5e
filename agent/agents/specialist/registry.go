package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	llmx "github.com/tanpawarit/chative-workplace-assistant/agent/llm"
	promptx "github.com/tanpawarit/chative-workplace-assistant/agent/prompt"
	"github.com/tanpawarit/chative-workplace-assistant/agent/routing"
	toolx "github.com/tanpawarit/chative-workplace-assistant/agent/tool"
)

// ModelFactory builds the chat model used by one agent.
type ModelFactory func(ctx context.Context, agent contractx.AgentName) (einomodel.ToolCallingChatModel, error)

// OpenRouterModels resolves each agent's model through its OpenRouter overrides.
func OpenRouterModels(cfg llmx.Config) ModelFactory {
	return func(ctx context.Context, agent contractx.AgentName) (einomodel.ToolCallingChatModel, error) {
		modelCfg := cfg.OpenRouterFor(agent)
		return modelCfg.New(ctx)
	}
}

// Registry holds every agent. It is immutable after NewRegistry.
type Registry struct {
	agents   map[contractx.AgentName]*specialistImpl
	defs     []Definition
	fallback contractx.AgentName
}

var _ contractx.Registry = (*Registry)(nil)

// NewRegistry builds one specialist per definition. Every declared tool
// must exist in tools and every agent needs instructions.
func NewRegistry(
	ctx context.Context,
	defs []Definition,
	models ModelFactory,
	tools *toolx.Registry,
	prompts promptx.PromptSet,
) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no agents defined", contractx.ErrValidation)
	}
	r := &Registry{
		agents:   make(map[contractx.AgentName]*specialistImpl, len(defs)),
		defs:     append([]Definition(nil), defs...),
		fallback: contractx.AgentProxy,
	}

	for _, def := range defs {
		if _, dup := r.agents[def.Name]; dup {
			return nil, fmt.Errorf("%w: agent %s defined twice", contractx.ErrValidation, def.Name)
		}
		infos, err := tools.InfosFor(def.Tools)
		if err != nil {
			return nil, fmt.Errorf("%w: agent %s: %v", contractx.ErrValidation, def.Name, err)
		}
		instructions := strings.TrimSpace(prompts.For(def.Name))
		if instructions == "" {
			return nil, fmt.Errorf("%w: agent %s", contractx.ErrPromptMissing, def.Name)
		}
		chatModel, err := models(ctx, def.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: create model for agent=%s: %v", contractx.ErrModelInvoke, def.Name, err)
		}
		spec, err := newSpecialist(ctx, def, chatModel, infos, instructions)
		if err != nil {
			return nil, err
		}
		r.agents[def.Name] = spec
	}

	if _, ok := r.agents[r.fallback]; !ok {
		return nil, fmt.Errorf("%w: fallback agent %s is not defined", contractx.ErrValidation, r.fallback)
	}
	return r, nil
}

func (r *Registry) Get(name contractx.AgentName) (contractx.Specialist, bool) {
	s, ok := r.agents[name]
	if !ok {
		return nil, false
	}
	return s, true
}

func (r *Registry) Default() contractx.Specialist {
	return r.agents[r.fallback]
}

func (r *Registry) Names() []contractx.AgentName {
	return Names(r.defs)
}

// Profiles returns routing metadata for every agent except the fallback.
func (r *Registry) Profiles() []routing.Profile {
	out := make([]routing.Profile, 0, len(r.defs))
	for _, d := range r.defs {
		if d.Name == r.fallback {
			continue
		}
		out = append(out, d.Profile())
	}
	return out
}

// Selector returns a KeywordSelector over this registry's agents.
func (r *Registry) Selector() *routing.KeywordSelector {
	return routing.NewKeywordSelector(r.Profiles(), r.fallback)
}
