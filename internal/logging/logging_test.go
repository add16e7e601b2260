package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewCLISurfaceUsesTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(CLI, false, &buf)
	logger.Info("scan complete")
	if strings.Contains(buf.String(), "{") {
		t.Fatalf("expected text output for the CLI surface, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "scan complete") {
		t.Fatalf("expected message to appear in output, got %q", buf.String())
	}
}

func TestNewAgentSurfaceUsesJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Agent, false, &buf)
	logger.Info("tool dispatched")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected JSON output for the agent surface: %v", err)
	}
	if decoded["msg"] != "tool dispatched" {
		t.Fatalf("unexpected decoded message: %v", decoded["msg"])
	}
}

func TestNewVerboseSetsDebugLevel(t *testing.T) {
	logger := New(CLI, true, &bytes.Buffer{})
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level when verbose, got %v", logger.GetLevel())
	}
}

func TestNewQuietSetsInfoLevel(t *testing.T) {
	logger := New(CLI, false, &bytes.Buffer{})
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level by default, got %v", logger.GetLevel())
	}
}

func TestWithOpStampsComponentAndOp(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Agent, false, &buf)
	entry := WithOp(logger, "scanner", "T2FullWalk")
	entry.Info("done")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["component"] != "scanner" || decoded["op"] != "T2FullWalk" {
		t.Fatalf("expected component/op fields, got %v", decoded)
	}
}
