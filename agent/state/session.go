package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Session is the unit of persistence: one conversation, its ordered
// messages, and timestamps. It is only mutated through Store.Append.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	default:
		return false
	}
}

type ToolStatus string

const (
	ToolStatusOK    ToolStatus = "ok"
	ToolStatusError ToolStatus = "error"
)

// ToolCallRecord is a resolved tool call. Output is the exact text handed
// back to the completion service (JSON for structured results).
//
// Arguments hold what the model sent, decoded with encoding/json. Stored
// arguments come back the same way, so numbers load as float64 even when an
// int was appended. Read them through a numeric conversion rather than a
// type assertion on int.
type ToolCallRecord struct {
	CallID    string         `json:"call_id"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Output    string         `json:"output"`
	Status    ToolStatus     `json:"status"`
}

// Message is one persisted thread entry. A tool message carries the records
// of one tool round; its Content keeps any text the model sent alongside the
// tool request.
type Message struct {
	Role      Role             `json:"role"`
	Content   string           `json:"content"`
	Agent     string           `json:"agent,omitempty"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

var (
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
	ErrInvalidMessage = errors.New("invalid message")

	ErrUnreadableRecord = errors.New("unreadable session record")
)

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		ID:        sessionID,
		Messages:  []Message{},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// IsNew reports whether the session has never been persisted.
func (s *Session) IsNew() bool {
	return s == nil || len(s.Messages) == 0
}

// LastTimestamp returns the timestamp of the newest message, or zero.
func (s *Session) LastTimestamp() time.Time {
	if s == nil || len(s.Messages) == 0 {
		return time.Time{}
	}
	return s.Messages[len(s.Messages)-1].Timestamp
}

func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidMessage, m.Role)
	}
	if m.Role == RoleTool {
		if len(m.ToolCalls) == 0 {
			return fmt.Errorf("%w: tool message without tool calls", ErrInvalidMessage)
		}
		for i, rec := range m.ToolCalls {
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("tool call %d: %w", i, err)
			}
		}
		return nil
	}
	if len(m.ToolCalls) > 0 {
		return fmt.Errorf("%w: role %s cannot carry tool calls", ErrInvalidMessage, m.Role)
	}
	return nil
}

func (r ToolCallRecord) Validate() error {
	if strings.TrimSpace(r.CallID) == "" {
		return fmt.Errorf("%w: tool call id is empty", ErrInvalidMessage)
	}
	if strings.TrimSpace(r.ToolName) == "" {
		return fmt.Errorf("%w: tool name is empty", ErrInvalidMessage)
	}
	if r.Status != ToolStatusOK && r.Status != ToolStatusError {
		return fmt.Errorf("%w: tool call status %q is unresolved", ErrInvalidMessage, r.Status)
	}
	return nil
}

/* ------------------------- persisted representation ------------------------ */

// record is the stored shape of a session. Messages stay raw so a single
// corrupt entry never prevents the rest from loading.
type record struct {
	ID           string            `json:"id"`
	PartitionKey string            `json:"partition_key"`
	Messages     []json.RawMessage `json:"messages"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// decodeRecord reads a stored record field by field. A header field that
// fails to decode is logged and left zero so the messages still load.
// Only a document that is not a JSON object, or whose messages are not an
// array, yields ErrUnreadableRecord.
func decodeRecord(sessionID string, data []byte, logger zerolog.Logger) (*record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableRecord, err)
	}

	rec := &record{}
	if raw, ok := fields["messages"]; ok && !isJSONNull(raw) {
		if err := json.Unmarshal(raw, &rec.Messages); err != nil {
			return nil, fmt.Errorf("%w: messages: %v", ErrUnreadableRecord, err)
		}
	}

	header := []struct {
		name string
		dst  any
	}{
		{"id", &rec.ID},
		{"partition_key", &rec.PartitionKey},
		{"created_at", &rec.CreatedAt},
		{"updated_at", &rec.UpdatedAt},
	}
	for _, f := range header {
		raw, ok := fields[f.name]
		if !ok || isJSONNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Str("field", f.name).
				Msg("ignoring unreadable session record field")
		}
	}
	if rec.ID == "" {
		rec.ID = sessionID
	}
	return rec, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func (r *record) toSession(logger zerolog.Logger) *Session {
	return &Session{
		ID:        r.ID,
		Messages:  decodeMessages(r.ID, r.Messages, logger),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// decodeMessages keeps every valid message in order and skips the rest
// with a warning.
func decodeMessages(sessionID string, raws []json.RawMessage, logger zerolog.Logger) []Message {
	out := make([]Message, 0, len(raws))
	for i, raw := range raws {
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Int("index", i).
				Msg("skipping unreadable stored message")
			continue
		}
		if err := msg.Validate(); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Int("index", i).
				Msg("skipping malformed stored message")
			continue
		}
		out = append(out, msg)
	}
	return out
}

func encodeMessages(msgs []Message) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(msgs))
	for _, msg := range msgs {
		raw, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("marshal message: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// prepareBatch validates a batch and clamps timestamps so the stored
// sequence never goes backwards.
func prepareBatch(after time.Time, msgs []Message, now time.Time) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	out := make([]Message, len(msgs))
	prev := after
	for i, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("batch message %d: %w", i, err)
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		msg.Timestamp = msg.Timestamp.UTC()
		if msg.Timestamp.Before(prev) {
			msg.Timestamp = prev
		}
		prev = msg.Timestamp
		out[i] = msg
	}
	return out, nil
}
