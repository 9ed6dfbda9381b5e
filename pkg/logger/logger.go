package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Service      string `split_words:"true" default:"chative"`
	Level        string `split_words:"true"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
	Service:      "chative",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init replaces the global zerolog logger. Components receive log.Logger (or
// a child of it) at construction time, so Init must run before wiring.
func Init(opts ...Config) {
	conf := safe(opts...)
	log.Logger = New(os.Stdout, *conf)
}

// New builds a logger writing to w without touching the global one.
func New(w io.Writer, conf Config) zerolog.Logger {
	if conf.PrettyFormat {
		w = zerolog.ConsoleWriter{Out: w}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	if service := strings.TrimSpace(conf.Service); service != "" {
		logger = logger.With().Str("service", service).Logger()
	}

	logger = logger.Level(resolveLevel(conf))
	return logger.With().Caller().Stack().Logger()
}

func resolveLevel(conf Config) zerolog.Level {
	if conf.Debug {
		return zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(conf.Level))); err == nil && conf.Level != "" {
		return lvl
	}
	return zerolog.InfoLevel
}
