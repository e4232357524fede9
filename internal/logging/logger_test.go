package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{Level: "info"})

	logger := Component("cache")
	logger.Warn().Str("key", "emb:game:1").Msg("cache get failed")

	out := buf.String()
	if !strings.Contains(out, `"component":"cache"`) {
		t.Errorf("expected component field, got %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARNING": zerolog.WarnLevel,
		"off":     zerolog.Disabled,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDetectFormat_NonFile(t *testing.T) {
	if got := detectFormat(&bytes.Buffer{}); got != "json" {
		t.Errorf("expected json for non-terminal writer, got %s", got)
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background())
	id := CorrelationID(ctx)
	if len(id) != 8 {
		t.Fatalf("expected 8-char correlation id, got %q", id)
	}
	if again := CorrelationID(WithCorrelationID(ctx)); again != id {
		t.Errorf("existing correlation id should be kept, got %q want %q", again, id)
	}
}
