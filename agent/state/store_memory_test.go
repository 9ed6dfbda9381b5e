package state

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(base)))

	batch := []Message{
		{Role: RoleUser, Content: "find Alex", Timestamp: base},
		{Role: RoleTool, Agent: "directory", Content: "looking up", Timestamp: base.Add(time.Second), ToolCalls: []ToolCallRecord{{
			CallID: "c1", ToolName: "search_users", Arguments: map[string]any{"query": "Alex"},
			Output: `[{"id":"u7","name":"Alex"}]`, Status: ToolStatusOK,
		}}},
		{Role: RoleAssistant, Agent: "directory", Content: "Found Alex.", Timestamp: base.Add(2 * time.Second)},
	}
	if err := store.Append(ctx, "s1", batch); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	sess, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(sess.Messages, batch) {
		t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", sess.Messages, batch)
	}
	if !sess.CreatedAt.Equal(base) || !sess.UpdatedAt.Equal(base) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", sess.CreatedAt, sess.UpdatedAt)
	}
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	sess, err := store.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !sess.IsNew() {
		t.Fatalf("expected new session, got %+v", sess)
	}
}

func TestMemoryStoreRejectsEmptySessionID(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), " "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Load() error = %v, want ErrInvalidSession", err)
	}
	if err := store.Append(context.Background(), "", []Message{{Role: RoleUser}}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Append() error = %v, want ErrInvalidSession", err)
	}
}

func TestMemoryStoreAppendRejectsInvalidBatchAtomically(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	batch := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleTool, Content: "dangling"},
	}
	err := store.Append(ctx, "s1", batch)
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("Append() error = %v, want ErrInvalidMessage", err)
	}

	sess, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("partial batch persisted: %+v", sess.Messages)
	}
}

func TestMemoryStoreAppendKeepsTimestampsMonotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(fixedClock(now)))

	if err := store.Append(ctx, "s1", []Message{{Role: RoleUser, Content: "a", Timestamp: now}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	skewed := []Message{
		{Role: RoleAssistant, Content: "b", Timestamp: now.Add(-time.Hour)},
		{Role: RoleUser, Content: "c"},
	}
	if err := store.Append(ctx, "s1", skewed); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	sess, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for i := 1; i < len(sess.Messages); i++ {
		if sess.Messages[i].Timestamp.Before(sess.Messages[i-1].Timestamp) {
			t.Fatalf("message %d goes back in time: %v < %v", i, sess.Messages[i].Timestamp, sess.Messages[i-1].Timestamp)
		}
	}
}

func TestMemoryStoreSkipsMalformedMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	good := func(role Role, content string) json.RawMessage {
		raw, err := json.Marshal(Message{Role: role, Content: content})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return raw
	}

	store.SeedRaw("s1",
		good(RoleUser, "one"),
		json.RawMessage(`{"role":"robot","content":"?"}`),
		json.RawMessage(`{"content":"no role"}`),
		json.RawMessage(`{"role":"tool","content":"no records"}`),
		json.RawMessage(`{"role":"tool","tool_calls":[{"tool_name":"get_user","status":"ok"}]}`),
		json.RawMessage(`not json at all`),
		good(RoleAssistant, "two"),
	)

	sess, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sess.Messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Content != "one" || sess.Messages[1].Content != "two" {
		t.Fatalf("unexpected survivors: %+v", sess.Messages)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Append(ctx, "s1", []Message{{Role: RoleUser, Content: "x"}}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	sess, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sess.Messages) != 0 {
		t.Fatalf("expected empty session after delete")
	}
}

func TestMemoryStoreToolArgumentsLoadAsJSONValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	batch := []Message{{Role: RoleTool, Agent: "calendar", ToolCalls: []ToolCallRecord{{
		CallID: "c1", ToolName: "list_events",
		Arguments: map[string]any{"limit": 5, "user_id": "u1", "tags": []string{"standup"}},
		Output:    `[]`, Status: ToolStatusOK,
	}}}}
	if err := store.Append(ctx, "s1", batch); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	sess, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	args := sess.Messages[0].ToolCalls[0].Arguments
	want := map[string]any{"limit": float64(5), "user_id": "u1", "tags": []any{"standup"}}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("arguments = %#v, want %#v", args, want)
	}
}
