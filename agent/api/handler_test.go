package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
)

type fakeTurns struct {
	reply    string
	err      error
	calls    int
	session  *statex.Session
	loadErr  error
	lastText string
}

func (f *fakeTurns) HandleMessage(_ context.Context, _ string, text string) (string, error) {
	f.calls++
	f.lastText = text
	return f.reply, f.err
}

func (f *fakeTurns) Session(_ context.Context, id string) (*statex.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.session != nil {
		return f.session, nil
	}
	return statex.NewSession(id, time.Unix(0, 0).UTC()), nil
}

type fakePurger struct {
	op string
}

func (f *fakePurger) Purge(_ context.Context, op string) (int, error) {
	f.op = op
	return 3, nil
}

func newTestServer(turns TurnService, purger CachePurger) *server.Hertz {
	s := server.Default(server.WithHostPorts(":0"))
	NewHandler(turns, purger, WithLogger(zerolog.Nop())).Register(s)
	return s
}

func post(s *server.Hertz, path, body string) *ut.ResponseRecorder {
	return ut.PerformRequest(s.Engine, "POST", path,
		&ut.Body{Body: bytes.NewReader([]byte(body)), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func do(s *server.Hertz, method, path string) *ut.ResponseRecorder {
	return ut.PerformRequest(s.Engine, method, path, &ut.Body{Body: bytes.NewReader(nil), Len: 0})
}

func decode(t *testing.T, w *ut.ResponseRecorder) chatResponse {
	t.Helper()
	var out chatResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	return out
}

func TestChatReturnsReply(t *testing.T) {
	turns := &fakeTurns{reply: "Your manager is Dana Reyes."}
	s := newTestServer(turns, nil)

	w := post(s, "/v1/chat", `{"session_id":"s1","message":"Who is my manager?"}`)

	require.Equal(t, 200, w.Result().StatusCode())
	out := decode(t, w)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, "Your manager is Dana Reyes.", out.Reply)
	assert.Nil(t, out.Error)
	assert.Equal(t, "Who is my manager?", turns.lastText)
}

func TestChatRejectsEmptyFieldsBeforeOrchestration(t *testing.T) {
	turns := &fakeTurns{reply: "unused"}
	s := newTestServer(turns, nil)

	for _, body := range []string{
		`{"session_id":"","message":"hi"}`,
		`{"session_id":"s1","message":"   "}`,
		`not json`,
		`["s1","hi"]`,
		``,
	} {
		w := post(s, "/v1/chat", body)
		require.Equal(t, 400, w.Result().StatusCode(), body)
		out := decode(t, w)
		require.NotNil(t, out.Error)
		assert.Equal(t, contractx.KindInvalidRequest, out.Error.Kind)
	}
	assert.Zero(t, turns.calls)
}

func TestChatMapsTurnErrors(t *testing.T) {
	cases := []struct {
		kind      contractx.ErrorKind
		status    int
		retryable bool
	}{
		{contractx.KindBusy, 409, true},
		{contractx.KindCompletionFailed, 502, true},
		{contractx.KindCompletionTimeout, 504, true},
		{contractx.KindToolLoopExceeded, 500, false},
		{contractx.KindEmptyReply, 500, false},
		{contractx.KindInternal, 500, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			turns := &fakeTurns{reply: "Sorry", err: contractx.NewTurnError(tc.kind, "failed", nil)}
			w := post(newTestServer(turns, nil), "/v1/chat", `{"session_id":"s1","message":"hi"}`)

			require.Equal(t, tc.status, w.Result().StatusCode())
			out := decode(t, w)
			require.NotNil(t, out.Error)
			assert.Equal(t, tc.kind, out.Error.Kind)
			assert.Equal(t, tc.retryable, out.Error.Retryable)
			assert.Equal(t, "Sorry", out.Reply)
		})
	}
}

func TestChatTreatsUntypedErrorAsInternal(t *testing.T) {
	turns := &fakeTurns{err: errors.New("boom")}
	w := post(newTestServer(turns, nil), "/v1/chat", `{"session_id":"s1","message":"hi"}`)

	require.Equal(t, 500, w.Result().StatusCode())
	assert.Equal(t, contractx.KindInternal, decode(t, w).Error.Kind)
}

func TestGetSession(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	turns := &fakeTurns{session: &statex.Session{
		ID:        "s1",
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []statex.Message{{Role: statex.RoleUser, Content: "hi", Timestamp: now}},
	}}
	s := newTestServer(turns, nil)

	w := do(s, "GET", "/v1/sessions/s1")
	require.Equal(t, 200, w.Result().StatusCode())

	var out sessionResponse
	require.NoError(t, json.Unmarshal(w.Result().Body(), &out))
	assert.Equal(t, "s1", out.SessionID)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "hi", out.Messages[0].Content)
}

func TestGetSessionStoreFailure(t *testing.T) {
	s := newTestServer(&fakeTurns{loadErr: errors.New("offline")}, nil)

	w := do(s, "GET", "/v1/sessions/s1")
	assert.Equal(t, 502, w.Result().StatusCode())
}

func TestPurgeCache(t *testing.T) {
	purger := &fakePurger{}
	s := newTestServer(&fakeTurns{}, purger)

	w := do(s, "DELETE", "/v1/cache/get_user")
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "get_user", purger.op)
	assert.Contains(t, string(w.Result().Body()), `"deleted":3`)

	w = do(newTestServer(&fakeTurns{}, nil), "DELETE", "/v1/cache/get_user")
	assert.Equal(t, 503, w.Result().StatusCode())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(&fakeTurns{}, nil)

	w := do(s, "GET", "/healthz")
	assert.Equal(t, 200, w.Result().StatusCode())

	w = do(s, "GET", "/metrics")
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Contains(t, string(w.Result().Header.ContentType()), "text/plain")
}
