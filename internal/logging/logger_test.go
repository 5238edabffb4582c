package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"pktedit/internal/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    string
		expected log.Level
	}{
		{"debug level", "debug", log.DebugLevel},
		{"info level", "info", log.InfoLevel},
		{"warn level", "warn", log.WarnLevel},
		{"warning level", "warning", log.WarnLevel},
		{"error level", "error", log.ErrorLevel},
		{"invalid defaults to warn", "invalid", log.WarnLevel},
		{"case insensitive DEBUG", "DEBUG", log.DebugLevel},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			logger := logging.New(testCase.level)
			if logger == nil {
				t.Fatal("New returned nil logger")
			}
			if logger.GetLevel() != testCase.expected {
				t.Errorf("expected level %v, got %v", testCase.expected, logger.GetLevel())
			}
		})
	}
}

func TestResolveLevel(t *testing.T) {
	t.Setenv(logging.LevelEnvVar, "debug")

	if got := logging.ResolveLevel("error"); got != "error" {
		t.Errorf("explicit level ignored, got %q", got)
	}
	if got := logging.ResolveLevel(""); got != "debug" {
		t.Errorf("env level ignored, got %q", got)
	}

	t.Setenv(logging.LevelEnvVar, "")
	if got := logging.ResolveLevel(""); got != logging.DefaultLevel {
		t.Errorf("expected default level, got %q", got)
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")
	logger.Info("edit dropped", logging.FieldTextOffset, 5)

	out := buf.String()
	if !strings.Contains(out, "edit dropped") || !strings.Contains(out, "text_offset=5") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := logging.Discard()
	logger.Error("nothing to see")
	if logger.GetLevel() != log.ErrorLevel {
		t.Errorf("expected error level, got %v", logger.GetLevel())
	}
}

func TestSetDefaultAndLevel(t *testing.T) {
	// Not parallel because it modifies global state.
	original := logging.Default()
	defer logging.SetDefault(original)

	logging.SetDefault(logging.New("info"))
	logging.SetLevel("debug")
	if logging.Default().GetLevel() != log.DebugLevel {
		t.Error("SetLevel to debug failed")
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	logger := logging.New("error")
	ctx := logging.WithLogger(context.Background(), logger)
	if logging.FromContext(ctx) != logger {
		t.Error("FromContext did not return the attached logger")
	}
	if logging.FromContext(context.Background()) == nil {
		t.Error("FromContext returned nil without a logger")
	}
}
