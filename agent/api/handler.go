package api

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/chative-workplace-assistant/agent/contract"
	statex "github.com/tanpawarit/chative-workplace-assistant/agent/state"
	"github.com/tanpawarit/chative-workplace-assistant/pkg/metrics"
)

// TurnService runs turns and reads stored sessions.
type TurnService interface {
	HandleMessage(ctx context.Context, sessionID, text string) (string, error)
	Session(ctx context.Context, sessionID string) (*statex.Session, error)
}

// CachePurger drops every cached entry of one operation.
type CachePurger interface {
	Purge(ctx context.Context, operation string) (int, error)
}

type Handler struct {
	turns  TurnService
	cache  CachePurger
	logger zerolog.Logger
}

type Option func(*Handler)

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler wires the routes to their services. cache may be nil when
// caching is disabled.
func NewHandler(turns TurnService, cache CachePurger, opts ...Option) *Handler {
	h := &Handler{turns: turns, cache: cache, logger: log.Logger}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string     `json:"session_id"`
	Reply     string     `json:"reply,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Kind      contractx.ErrorKind `json:"kind"`
	Message   string              `json:"message"`
	Retryable bool                `json:"retryable"`
}

type sessionResponse struct {
	SessionID string           `json:"session_id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []statex.Message `json:"messages"`
}

// Chat handles POST /v1/chat.
func (h *Handler) Chat(ctx context.Context, c *app.RequestContext) {
	var req chatRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, chatResponse{Error: &errorBody{
			Kind:    contractx.KindInvalidRequest,
			Message: "body must be a JSON object with session_id and message",
		}})
		return
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		c.JSON(consts.StatusBadRequest, chatResponse{SessionID: req.SessionID, Error: &errorBody{
			Kind:    contractx.KindInvalidRequest,
			Message: "session_id and message are required",
		}})
		return
	}

	reply, err := h.turns.HandleMessage(ctx, req.SessionID, req.Message)
	if err != nil {
		var te *contractx.TurnError
		if !errors.As(err, &te) {
			te = contractx.NewTurnError(contractx.KindInternal, "turn could not be processed", err)
		}
		h.logger.Warn().Err(err).Str("session_id", req.SessionID).Str("kind", string(te.Kind)).Msg("chat turn failed")
		c.JSON(statusFor(te.Kind), chatResponse{
			SessionID: req.SessionID,
			Reply:     reply,
			Error:     &errorBody{Kind: te.Kind, Message: te.Message, Retryable: te.Retryable()},
		})
		return
	}

	c.JSON(consts.StatusOK, chatResponse{SessionID: req.SessionID, Reply: reply})
}

// GetSession handles GET /v1/sessions/:id.
func (h *Handler) GetSession(ctx context.Context, c *app.RequestContext) {
	id := strings.TrimSpace(c.Param("id"))
	sess, err := h.turns.Session(ctx, id)
	if err != nil {
		if errors.Is(err, statex.ErrInvalidSession) {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "session id is required"})
			return
		}
		h.logger.Error().Err(err).Str("session_id", id).Msg("load session failed")
		c.JSON(consts.StatusBadGateway, map[string]string{"error": "session store unavailable"})
		return
	}

	msgs := sess.Messages
	if msgs == nil {
		msgs = []statex.Message{}
	}
	c.JSON(consts.StatusOK, sessionResponse{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  msgs,
	})
}

// PurgeCache handles DELETE /v1/cache/:operation.
func (h *Handler) PurgeCache(ctx context.Context, c *app.RequestContext) {
	if h.cache == nil {
		c.JSON(consts.StatusServiceUnavailable, map[string]string{"error": "cache is disabled"})
		return
	}
	op := strings.TrimSpace(c.Param("operation"))
	deleted, err := h.cache.Purge(ctx, op)
	if err != nil {
		h.logger.Error().Err(err).Str("operation", op).Msg("cache purge failed")
		c.JSON(consts.StatusBadGateway, map[string]string{"error": "cache backend unavailable"})
		return
	}
	h.logger.Info().Str("operation", op).Int("deleted", deleted).Msg("cache purged")
	c.JSON(consts.StatusOK, map[string]any{"operation": op, "deleted": deleted})
}

func (h *Handler) Health(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Metrics(_ context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		h.logger.Error().Err(err).Msg("gather metrics failed")
		c.String(consts.StatusInternalServerError, "metrics unavailable")
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

func statusFor(kind contractx.ErrorKind) int {
	switch kind {
	case contractx.KindInvalidRequest:
		return consts.StatusBadRequest
	case contractx.KindBusy:
		return consts.StatusConflict
	case contractx.KindCompletionFailed:
		return consts.StatusBadGateway
	case contractx.KindCompletionTimeout:
		return consts.StatusGatewayTimeout
	default:
		return consts.StatusInternalServerError
	}
}
