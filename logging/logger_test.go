package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/sortviz/contextx"
)

func TestNewFromConfigWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(&Config{Service: "sortviz", Module: "test", Level: "info", Writer: &buf})

	l.InfoContext(context.Background(), "run recorded", "frames", 3)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log line: %v (%q)", err, buf.String())
	}
	if rec["service"] != "sortviz" || rec["module"] != "test" {
		t.Errorf("missing service/module attrs: %v", rec)
	}
	if _, ok := rec["timestamp"]; !ok {
		t.Errorf("time key should be renamed to timestamp: %v", rec)
	}
	if rec["frames"] != float64(3) {
		t.Errorf("unexpected frames attr: %v", rec["frames"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(&Config{Service: "sortviz", Module: "test", Level: "warn", Writer: &buf})
	t.Cleanup(func() { SetLevel("info") })

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}

	SetLevel("debug")
	l.Debug("visible")
	if buf.Len() == 0 {
		t.Fatalf("debug should be emitted after SetLevel(debug)")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARNING").String() != "WARN" {
		t.Errorf("warning should map to WARN")
	}
	if ParseLevel("nonsense").String() != "INFO" {
		t.Errorf("unknown level should default to INFO")
	}
}

func TestNamedAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(&Config{Service: "sortviz", Module: "app", Writer: &buf}).Named("sampler")
	l.Info("tick")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["component"] != "sampler" || l.Module != "sampler" {
		t.Errorf("unexpected component: %v", rec)
	}
}

func TestTraceHandlerAddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewFromConfig(&Config{Service: "sortviz", Module: "test", Writer: &buf})

	ctx := contextx.WithRunID(contextx.WithRequestID(context.Background(), "req-7"), "R99")
	l.InfoContext(ctx, "sample recorded")
	l.Info("no context ids")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "req-7", rec["request_id"])
	assert.Equal(t, "R99", rec["run_id"])

	rec = nil
	require.NoError(t, json.Unmarshal(lines[1], &rec))
	assert.NotContains(t, rec, "request_id")
	assert.NotContains(t, rec, "run_id")
}

func TestOutputBothWritesStdoutAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "sortviz.log")
	l := NewFromConfig(&Config{Service: "sortviz", Module: "test", Output: OutputBoth, File: path, Writer: &buf}).Named("sampler")

	l.InfoContext(contextx.WithRunID(context.Background(), "R1"), "tick")
	l.Debug("filtered")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, out := range [][]byte{buf.Bytes(), data} {
		lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
		require.Len(t, lines, 1)
		var rec map[string]any
		require.NoError(t, json.Unmarshal(lines[0], &rec))
		assert.Equal(t, "sampler", rec["component"])
		assert.Equal(t, "R1", rec["run_id"])
	}
}
