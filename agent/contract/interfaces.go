package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Specialist sends a thread to the completion service on behalf of one agent.
type Specialist interface {
	Name() AgentName
	Capabilities() []string
	Delegate(ctx context.Context, thread []*schema.Message) (*schema.Message, error)
}

// Registry resolves agents by name. It is immutable after construction.
type Registry interface {
	Get(name AgentName) (Specialist, bool)
	Default() Specialist
	Names() []AgentName
}
