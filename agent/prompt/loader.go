package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
)

var (
	//go:embed template/proxy.txt
	proxyRaw string

	//go:embed template/directory.txt
	directoryRaw string

	//go:embed template/scheduling.txt
	schedulingRaw string

	//go:embed template/location.txt
	locationRaw string
)

// PromptSet holds the instructions of every agent.
type PromptSet struct {
	Proxy      string
	Directory  string
	Scheduling string
	Location   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Proxy:      strings.TrimSpace(proxyRaw),
		Directory:  strings.TrimSpace(directoryRaw),
		Scheduling: strings.TrimSpace(schedulingRaw),
		Location:   strings.TrimSpace(locationRaw),
	}
}

// For returns the instructions of agent, or "" when it has none.
func (p PromptSet) For(agent contractx.AgentName) string {
	switch agent {
	case contractx.AgentProxy:
		return p.Proxy
	case contractx.AgentDirectory:
		return p.Directory
	case contractx.AgentScheduling:
		return p.Scheduling
	case contractx.AgentLocation:
		return p.Location
	default:
		return ""
	}
}
