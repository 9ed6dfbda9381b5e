package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/chative-workplace-assistant/agent/cache"
	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
	"github.com/tanpawarit/chative-workplace-assistant/agent/workplace"
	"github.com/tanpawarit/chative-workplace-assistant/pkg/metrics"
)

// Handler runs one tool call. The returned value is marshaled to JSON and
// handed to the model as the tool result.
type Handler func(ctx context.Context, args Args) (any, error)

// Definition declares a tool: its schema exposed to the model and the
// handler that serves it.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Category    cache.Category
	Handler     Handler
}

// Registry is the static capability registry. It is built once and only
// read afterwards, so it is safe for concurrent use without locking.
type Registry struct {
	defs   map[string]Definition
	infos  map[string]*schema.ToolInfo
	names  []string
	logger zerolog.Logger
}

type Option func(*Registry)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(defs []Definition, opts ...Option) (*Registry, error) {
	r := &Registry{
		defs:   make(map[string]Definition, len(defs)),
		infos:  make(map[string]*schema.ToolInfo, len(defs)),
		logger: log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	for _, def := range defs {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, errors.New("tool name is empty")
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("tool %s: handler is nil", name)
		}
		if _, dup := r.defs[name]; dup {
			return nil, fmt.Errorf("tool %s: registered twice", name)
		}
		r.defs[name] = def
		r.infos[name] = def.info()
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// InfosFor returns the tool schemas for names, in the given order. Every
// name must be registered.
func (r *Registry) InfosFor(names []string) ([]*schema.ToolInfo, error) {
	out := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		info, ok := r.infos[name]
		if !ok {
			return nil, fmt.Errorf("tool %s is not registered", name)
		}
		out = append(out, info)
	}
	return out, nil
}

// Execute resolves req into a ToolCallRecord. It never returns an error
// and never panics: every failure becomes a status=error record whose
// output is a normalized error payload. Calls to tools outside allowed are
// rejected without running the handler. ctx bounds the handler.
func (r *Registry) Execute(ctx context.Context, allowed []string, req contractx.ToolRequest) statex.ToolCallRecord {
	started := time.Now()
	rec := r.execute(ctx, allowed, req)

	metrics.ToolCalls.WithLabelValues(req.Tool, string(rec.Status)).Inc()
	metrics.ToolDuration.WithLabelValues(req.Tool).Observe(time.Since(started).Seconds())

	ev := r.logger.Debug()
	if rec.Status == statex.ToolStatusError {
		ev = r.logger.Warn()
	}
	ev.Str("tool", req.Tool).Str("call_id", req.CallID).Str("status", string(rec.Status)).
		Dur("elapsed", time.Since(started)).Msg("tool call resolved")
	return rec
}

func (r *Registry) execute(ctx context.Context, allowed []string, req contractx.ToolRequest) statex.ToolCallRecord {
	if !contains(allowed, req.Tool) {
		return errorRecord(req, contractx.ToolErrNotAllowed,
			fmt.Sprintf("tool %q is not available to this agent", req.Tool))
	}
	def, ok := r.defs[req.Tool]
	if !ok {
		return errorRecord(req, contractx.ToolErrUnknown, fmt.Sprintf("tool %q does not exist", req.Tool))
	}
	if req.Args == nil && strings.TrimSpace(req.RawArgs) != "" {
		return errorRecord(req, contractx.ToolErrValidation, "arguments are not a valid JSON object")
	}

	args := Args(req.Args)
	if args == nil {
		args = Args{}
	}
	if err := validate(def.Params, args); err != nil {
		return errorRecord(req, contractx.ToolErrValidation, err.Error())
	}

	value, err := r.run(ctx, def, args)
	if err != nil {
		return errorRecord(req, classify(err), err.Error())
	}

	out, err := json.Marshal(value)
	if err != nil {
		return errorRecord(req, contractx.ToolErrExecution, "result is not serializable: "+err.Error())
	}
	return statex.ToolCallRecord{
		CallID:    req.CallID,
		ToolName:  req.Tool,
		Arguments: req.Args,
		Output:    string(out),
		Status:    statex.ToolStatusOK,
	}
}

type handlerResult struct {
	value any
	err   error
}

// run executes the handler in its own goroutine so a handler that ignores
// ctx still resolves as a timeout.
func (r *Registry) run(ctx context.Context, def Definition, args Args) (any, error) {
	done := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error().Str("tool", def.Name).Interface("panic", p).
					Bytes("stack", debug.Stack()).Msg("tool handler panicked")
				done <- handlerResult{err: fmt.Errorf("%w: handler panicked: %v", errExecution, p)}
			}
		}()
		v, err := def.Handler(ctx, args)
		done <- handlerResult{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var errExecution = errors.New("execution failed")

func classify(err error) contractx.ToolErrorCode {
	var verr *ValidationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return contractx.ToolErrTimeout
	case errors.Is(err, workplace.ErrNotFound):
		return contractx.ToolErrNotFound
	case errors.As(err, &verr):
		return contractx.ToolErrValidation
	default:
		return contractx.ToolErrExecution
	}
}

func errorRecord(req contractx.ToolRequest, code contractx.ToolErrorCode, message string) statex.ToolCallRecord {
	return statex.ToolCallRecord{
		CallID:    req.CallID,
		ToolName:  req.Tool,
		Arguments: req.Args,
		Output:    ErrorPayload(code, message),
		Status:    statex.ToolStatusError,
	}
}

// ErrorPayload renders the normalized error body the model receives.
func ErrorPayload(code contractx.ToolErrorCode, message string) string {
	raw, err := json.Marshal(contractx.ToolErrorPayload{
		Error: contractx.ToolErrorDetail{Code: code, Message: message},
	})
	if err != nil {
		return `{"error":{"code":"EXECUTION_ERROR","message":"unserializable error"}}`
	}
	return string(raw)
}

func (d Definition) info() *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(d.Params))
	for _, p := range d.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     p.Type,
			Desc:     p.Desc,
			Enum:     p.Enum,
			Required: p.Required,
		}
	}
	return &schema.ToolInfo{
		Name:        d.Name,
		Desc:        d.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
