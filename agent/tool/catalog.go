package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/tanpawarit/chative-workplace-assistant/agent/cache"
	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
	"github.com/tanpawarit/chative-workplace-assistant/agent/workplace"
)

const (
	ToolGetUser           = workplace.OpGetUser
	ToolGetManager        = workplace.OpGetManager
	ToolListDirectReports = workplace.OpListDirectReports
	ToolSearchUsers       = workplace.OpSearchUsers
	ToolCheckUserExists   = workplace.OpCheckUserExists
	ToolListEvents        = workplace.OpListEvents
	ToolSearchNearby      = workplace.OpSearchNearby
	ToolTransferToAgent   = "transfer_to_agent"
)

const (
	defaultSearchLimit  = 10
	maxSearchLimit      = 50
	defaultRadiusMeters = 1000
	maxEventDays        = 14
)

// Services are the data sources the workplace tools read from.
type Services struct {
	Directory workplace.Directory
	Calendar  workplace.Calendar
	Locations workplace.Locations
	// Agents are the valid handoff targets of transfer_to_agent.
	Agents []contractx.AgentName
	Now    func() time.Time
}

// Definitions returns every tool the assistant can expose.
func Definitions(svc Services) []Definition {
	now := svc.Now
	if now == nil {
		now = time.Now
	}

	agentNames := make([]string, 0, len(svc.Agents))
	for _, a := range svc.Agents {
		agentNames = append(agentNames, string(a))
	}

	return []Definition{
		{
			Name:        ToolGetUser,
			Description: "Fetch a user's directory profile (name, email, title, department) by user id.",
			Category:    cache.CategoryIdentity,
			Params: []Param{
				{Name: "user_id", Type: schema.String, Desc: "Directory user id", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				return svc.Directory.GetUser(ctx, args.String("user_id"))
			},
		},
		{
			Name:        ToolGetManager,
			Description: "Fetch the manager of a user.",
			Category:    cache.CategoryIdentity,
			Params: []Param{
				{Name: "user_id", Type: schema.String, Desc: "Directory user id of the report", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				return svc.Directory.GetManager(ctx, args.String("user_id"))
			},
		},
		{
			Name:        ToolListDirectReports,
			Description: "List the people who report directly to a manager.",
			Category:    cache.CategoryTopology,
			Params: []Param{
				{Name: "manager_id", Type: schema.String, Desc: "Directory user id of the manager", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				return svc.Directory.ListDirectReports(ctx, args.String("manager_id"))
			},
		},
		{
			Name:        ToolSearchUsers,
			Description: "Search the directory by name, email or title.",
			Category:    cache.CategorySearch,
			Params: []Param{
				{Name: "query", Type: schema.String, Desc: "Free-text search query", Required: true},
				{Name: "limit", Type: schema.Integer, Desc: "Maximum number of results (1-50, default 10)"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				limit := args.Int("limit", defaultSearchLimit)
				if limit < 1 || limit > maxSearchLimit {
					return nil, invalid("limit", "must be between 1 and %d", maxSearchLimit)
				}
				return svc.Directory.SearchUsers(ctx, args.String("query"), limit)
			},
		},
		{
			Name:        ToolCheckUserExists,
			Description: "Check whether an account exists for an email address.",
			Category:    cache.CategoryValidation,
			Params: []Param{
				{Name: "email", Type: schema.String, Desc: "Email address to check", Required: true},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				email := args.String("email")
				exists, err := svc.Directory.UserExists(ctx, email)
				if err != nil {
					return nil, err
				}
				return map[string]any{"email": email, "exists": exists}, nil
			},
		},
		{
			Name:        ToolListEvents,
			Description: "List calendar events of a user starting on a date.",
			Category:    cache.CategoryCalendar,
			Params: []Param{
				{Name: "user_id", Type: schema.String, Desc: "Directory user id", Required: true},
				{Name: "date", Type: schema.String, Desc: "First day in YYYY-MM-DD (default today, UTC)"},
				{Name: "days", Type: schema.Integer, Desc: "Number of days to cover (1-14, default 1)"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				from, to, err := eventWindow(args, now().UTC())
				if err != nil {
					return nil, err
				}
				return svc.Calendar.ListEvents(ctx, args.String("user_id"), from, to)
			},
		},
		{
			Name:        ToolSearchNearby,
			Description: "Find places near an office or address, optionally filtered by category.",
			Category:    cache.CategorySearch,
			Params: []Param{
				{Name: "near", Type: schema.String, Desc: "Office name or address to search around", Required: true},
				{Name: "category", Type: schema.String, Desc: "Place category such as coffee, lunch, pharmacy"},
				{Name: "radius_meters", Type: schema.Integer, Desc: "Search radius in meters (default 1000)"},
			},
			Handler: func(ctx context.Context, args Args) (any, error) {
				radius := args.Int("radius_meters", defaultRadiusMeters)
				if radius <= 0 {
					return nil, invalid("radius_meters", "must be positive")
				}
				return svc.Locations.SearchNearby(ctx, args.String("near"), args.String("category"), radius)
			},
		},
		{
			Name:        ToolTransferToAgent,
			Description: "Hand the conversation to another specialist agent when the request is outside your area.",
			Params: []Param{
				{Name: "agent", Type: schema.String, Desc: "Name of the agent to transfer to", Required: true, Enum: agentNames},
			},
			Handler: func(_ context.Context, args Args) (any, error) {
				return contractx.Handoff{Transferred: true, Agent: contractx.AgentName(args.String("agent"))}, nil
			},
		},
	}
}

func eventWindow(args Args, today time.Time) (time.Time, time.Time, error) {
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if raw := args.String("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return time.Time{}, time.Time{}, invalid("date", "must be YYYY-MM-DD")
		}
		start = parsed
	}
	days := args.Int("days", 1)
	if days < 1 || days > maxEventDays {
		return time.Time{}, time.Time{}, invalid("days", "must be between 1 and %d", maxEventDays)
	}
	return start, start.AddDate(0, 0, days), nil
}

var ErrNotHandoff = errors.New("record is not a successful handoff")

// ParseHandoff extracts the target agent of a resolved transfer_to_agent call.
func ParseHandoff(rec statex.ToolCallRecord) (contractx.AgentName, error) {
	if rec.ToolName != ToolTransferToAgent || rec.Status != statex.ToolStatusOK {
		return "", ErrNotHandoff
	}
	var h contractx.Handoff
	if err := json.Unmarshal([]byte(rec.Output), &h); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotHandoff, err)
	}
	if !h.Transferred || h.Agent == "" {
		return "", ErrNotHandoff
	}
	return h.Agent, nil
}
