package prompt

import (
	"strings"
	"testing"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	for _, agent := range []contractx.AgentName{
		contractx.AgentProxy, contractx.AgentDirectory, contractx.AgentScheduling, contractx.AgentLocation,
	} {
		p := set.For(agent)
		if p == "" {
			t.Fatalf("prompt for %s is empty", agent)
		}
		if p != strings.TrimSpace(p) {
			t.Fatalf("prompt for %s is not trimmed", agent)
		}
	}
	if set.For("sales") != "" {
		t.Fatal("unknown agent must have no prompt")
	}
	if !strings.Contains(set.Proxy, "transfer_to_agent") {
		t.Fatal("proxy prompt must mention the handoff tool")
	}
}
