package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesServiceField(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "chative-test"})
	logger.Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["service"] != "chative-test" {
		t.Fatalf("service = %v", line["service"])
	}
	if line["message"] != "hello" {
		t.Fatalf("message = %v", line["message"])
	}
}

func TestResolveLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		conf Config
		want zerolog.Level
	}{
		{Config{}, zerolog.InfoLevel},
		{Config{Debug: true}, zerolog.DebugLevel},
		{Config{Level: "warn"}, zerolog.WarnLevel},
		{Config{Level: "nonsense"}, zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := resolveLevel(tc.conf); got != tc.want {
			t.Fatalf("resolveLevel(%+v) = %s, want %s", tc.conf, got, tc.want)
		}
	}
}
