package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestComponentTagsChildLogger(t *testing.T) {
	var buf bytes.Buffer
	root := zerolog.New(&buf)

	child := Component(root, "fetcher")
	child.Info().Msg("hello")

	line := buf.String()
	if !strings.Contains(line, `"component":"fetcher"`) {
		t.Errorf("missing component field: %s", line)
	}
	if !strings.Contains(line, `"message":"hello"`) {
		t.Errorf("missing message: %s", line)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger(Config{Level: "warn"})
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %s, want warn", logger.GetLevel())
	}

	logger = NewLogger(Config{Level: "nonsense"})
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("unknown level must fall back to info, got %s", logger.GetLevel())
	}
}
