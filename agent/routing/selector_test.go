package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
)

func testProfiles() []Profile {
	return []Profile{
		{Name: contractx.AgentDirectory, Keywords: []string{"manager", "reports", "email", "who is"}, Priority: 30},
		{Name: contractx.AgentScheduling, Keywords: []string{"meeting", "calendar", "free"}, Priority: 20},
		{Name: contractx.AgentLocation, Keywords: []string{"coffee", "nearby", "lunch"}, Priority: 10},
	}
}

func TestKeywordSelector(t *testing.T) {
	sel := NewKeywordSelector(testProfiles(), contractx.AgentProxy)
	ctx := context.Background()

	tests := []struct {
		msg  string
		want contractx.AgentName
	}{
		{msg: "Who is my manager?", want: contractx.AgentDirectory},
		{msg: "Am I free for a meeting tomorrow? Check my calendar.", want: contractx.AgentScheduling},
		{msg: "Any coffee shops nearby?", want: contractx.AgentLocation},
		{msg: "hello there", want: contractx.AgentProxy},
		{msg: "", want: contractx.AgentProxy},
		{msg: "managerial", want: contractx.AgentProxy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sel.Select(ctx, tt.msg), tt.msg)
	}
}

func TestKeywordSelectorTieBreaksByPriority(t *testing.T) {
	sel := NewKeywordSelector(testProfiles(), contractx.AgentProxy)

	// one hit each for directory and location; directory has higher priority
	assert.Equal(t, contractx.AgentDirectory, sel.Select(context.Background(), "email me the lunch spot"))

	// more hits beat priority
	assert.Equal(t, contractx.AgentLocation, sel.Select(context.Background(), "email me a nearby lunch spot"))
}

func TestKeywordSelectorTieBreaksByName(t *testing.T) {
	sel := NewKeywordSelector([]Profile{
		{Name: "zeta", Keywords: []string{"shared"}},
		{Name: "alpha", Keywords: []string{"shared"}},
	}, contractx.AgentProxy)

	assert.Equal(t, contractx.AgentName("alpha"), sel.Select(context.Background(), "a shared word"))
}

func TestStaticSelector(t *testing.T) {
	assert.Equal(t, contractx.AgentLocation, Static(contractx.AgentLocation).Select(context.Background(), "anything"))
}
