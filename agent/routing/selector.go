// Package routing picks the agent that starts a turn.
package routing

import (
	"context"
	"sort"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
)

// Selector chooses the active agent for a new turn from the latest user
// message.
type Selector interface {
	Select(ctx context.Context, userMessage string) contractx.AgentName
}

// Profile is the routing metadata of one agent.
type Profile struct {
	Name     contractx.AgentName
	Keywords []string
	// Priority breaks score ties; higher wins.
	Priority int
}

// KeywordSelector scores agents by how many of their keywords appear in
// the message. Ties go to the higher priority, then the lower name. When
// nothing matches the fallback agent is used.
type KeywordSelector struct {
	profiles []Profile
	fallback contractx.AgentName
}

func NewKeywordSelector(profiles []Profile, fallback contractx.AgentName) *KeywordSelector {
	ps := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		kws := make([]string, 0, len(p.Keywords))
		for _, kw := range p.Keywords {
			if kw = normalize(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		ps = append(ps, Profile{Name: p.Name, Keywords: kws, Priority: p.Priority})
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Priority != ps[j].Priority {
			return ps[i].Priority > ps[j].Priority
		}
		return ps[i].Name < ps[j].Name
	})
	return &KeywordSelector{profiles: ps, fallback: fallback}
}

func (s *KeywordSelector) Select(_ context.Context, userMessage string) contractx.AgentName {
	text := " " + normalize(userMessage) + " "
	best, bestScore := s.fallback, 0
	for _, p := range s.profiles {
		score := 0
		for _, kw := range p.Keywords {
			if strings.Contains(text, " "+kw+" ") {
				score++
			}
		}
		// profiles are ordered by priority then name, so strict > keeps the tie-break
		if score > bestScore {
			best, bestScore = p.Name, score
		}
	}
	return best
}

// normalize lowercases s and collapses every run of non-alphanumerics to a
// single space so keywords only match whole words.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// Static always selects the same agent.
type Static contractx.AgentName

func (s Static) Select(context.Context, string) contractx.AgentName {
	return contractx.AgentName(s)
}
