package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reloadr-hq/reloadr/pkg/config"
	"reloadr-hq/reloadr/pkg/reload/journal"
)

var (
	cfgPath     string
	journalPath string
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "reloadr-cmd")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	journalPath = filepath.Join(dir, "journal.db")
	cfgPath = filepath.Join(dir, "reloadr.yaml")
	content := fmt.Sprintf(`journal:
  backend: sqlite
  sqlite:
    path: %s
telemetry:
  logging:
    level: error
`, journalPath)
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--config", cfgPath))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Reloadr "+Version)
	assert.Contains(t, out, "Go Version: ")
}

func TestCheckCommand_Marked(t *testing.T) {
	out, err := execute(t, "check", "testdata/app.go", "--format", "text")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SYMBOL"))
	assert.Regexp(t, `^Tick\s+function\s+ok\s+[0-9a-f]{12}`, lines[1])
	assert.Regexp(t, `^Counter\s+class\s+ok\s+[0-9a-f]{12}`, lines[2])
}

func TestCheckCommand_Named(t *testing.T) {
	out, err := execute(t, "check", "testdata/app.go", "helper", "Counter", "--format", "json")
	require.NoError(t, err)

	var results []checkResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "helper", results[0].Symbol)
	assert.Equal(t, "function", results[0].Kind)
	assert.True(t, results[0].OK)
	assert.Equal(t, "class", results[1].Kind)
}

func TestCheckCommand_Failure(t *testing.T) {
	out, err := execute(t, "check", "testdata/broken.go", "--format", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 definitions failed")

	assert.Contains(t, out, "Good,function,ok,")
	assert.Contains(t, out, "Box,class,failed,")
}

func TestCheckCommand_BadFormat(t *testing.T) {
	_, err := execute(t, "check", "testdata/app.go", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--format")
}

func TestHistoryCommand(t *testing.T) {
	store, err := journal.NewSQLiteStorage(config.SQLiteConfig{Path: journalPath, BusyTimeout: time.Second}, nil)
	require.NoError(t, err)

	now := time.Now()
	for i, status := range []string{journal.StatusSuccess, journal.StatusFailure, journal.StatusSuccess} {
		rec := &journal.Record{
			ID:        fmt.Sprintf("id-%d", i),
			Symbol:    "Tick",
			Kind:      "function",
			File:      "app.go",
			Status:    status,
			Duration:  time.Millisecond,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		}
		if status == journal.StatusFailure {
			rec.Error = "syntax error"
		}
		require.NoError(t, store.Store(context.Background(), rec))
	}
	require.NoError(t, store.Close())

	out, err := execute(t, "history", "--symbol", "Tick", "--status", "failure", "--format", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "TIME,SYMBOL,KIND,STATUS,DURATION,RETAGGED,MIGRATED,ERROR", lines[0])
	assert.Contains(t, lines[1], ",Tick,function,failure,1ms,0,0,syntax error")

	_, err = execute(t, "history", "--status", "maybe")
	assert.Error(t, err)
}

func TestRunCommand_MissingScript(t *testing.T) {
	_, err := execute(t, "run", "testdata/missing.go", "--mode", "none")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command run failed")
}

func TestFormatResults(t *testing.T) {
	assert.Equal(t, 1, formatResults([]any{1}))
	assert.Equal(t, []any{1, "a"}, formatResults([]any{1, "a"}))
	assert.Equal(t, []any{}, formatResults([]any{}))
}
