package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("provider", "openai").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"provider":"openai"`) || !strings.Contains(out, `"time"`) {
		t.Errorf("expected structured warn line with timestamp, got %s", out)
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	for _, level := range []string{"", "loud"} {
		log := New(level, &bytes.Buffer{})
		if log.GetLevel() != zerolog.InfoLevel {
			t.Errorf("level %q: expected info, got %s", level, log.GetLevel())
		}
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	Console("debug", &buf).Debug().Msg("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected console output, got %q", buf.String())
	}
}
