package specialist

import (
	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	"github.com/tanpawarit/chative-workplace-assistant/agent/routing"
	toolx "github.com/tanpawarit/chative-workplace-assistant/agent/tool"
)

// Definition is the static description of one agent.
type Definition struct {
	Name contractx.AgentName
	// Tools is the capability set: the only tools the agent may call.
	Tools    []string
	Keywords []string
	Priority int
}

func (d Definition) Profile() routing.Profile {
	return routing.Profile{Name: d.Name, Keywords: d.Keywords, Priority: d.Priority}
}

// Definitions returns the built-in agents. proxy is the fallback.
func Definitions() []Definition {
	return []Definition{
		{
			Name:  contractx.AgentProxy,
			Tools: []string{toolx.ToolTransferToAgent},
		},
		{
			Name: contractx.AgentDirectory,
			Tools: []string{
				toolx.ToolGetUser,
				toolx.ToolGetManager,
				toolx.ToolListDirectReports,
				toolx.ToolSearchUsers,
				toolx.ToolCheckUserExists,
				toolx.ToolTransferToAgent,
			},
			Keywords: []string{
				"manager", "boss", "report", "reports", "team", "colleague", "coworker",
				"email", "directory", "who is", "department", "title", "org chart", "account",
			},
			Priority: 30,
		},
		{
			Name: contractx.AgentScheduling,
			Tools: []string{
				toolx.ToolListEvents,
				toolx.ToolSearchUsers,
				toolx.ToolGetUser,
				toolx.ToolTransferToAgent,
			},
			Keywords: []string{
				"calendar", "meeting", "meetings", "schedule", "event", "events", "agenda",
				"busy", "free", "availability", "available", "today", "tomorrow",
			},
			Priority: 20,
		},
		{
			Name: contractx.AgentLocation,
			Tools: []string{
				toolx.ToolSearchNearby,
				toolx.ToolTransferToAgent,
			},
			Keywords: []string{
				"near", "nearby", "coffee", "cafe", "lunch", "restaurant", "place", "places",
				"pharmacy", "gym", "directions", "around",
			},
			Priority: 10,
		},
	}
}

// Names lists the agent names of defs in order.
func Names(defs []Definition) []contractx.AgentName {
	out := make([]contractx.AgentName, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.Name)
	}
	return out
}
