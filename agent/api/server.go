// Package api exposes the assistant over HTTP.
package api

import (
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
)

// Config is loaded with the HTTP prefix.
type Config struct {
	Addr            string        `default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"30s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

// NewServer builds a hertz server with every route registered. Run it with
// Spin or Run and stop it with Shutdown.
func NewServer(cfg Config, h *Handler) *server.Hertz {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	s := server.New(
		server.WithHostPorts(addr),
		server.WithReadTimeout(cfg.ReadTimeout),
		server.WithExitWaitTime(cfg.ShutdownTimeout),
		server.WithDisablePrintRoute(true),
	)
	h.Register(s)
	return s
}

func (h *Handler) Register(s *server.Hertz) {
	s.GET("/healthz", h.Health)
	s.GET("/metrics", h.Metrics)

	v1 := s.Group("/v1")
	v1.POST("/chat", h.Chat)
	v1.GET("/sessions/:id", h.GetSession)
	v1.DELETE("/cache/:operation", h.PurgeCache)
}
