package core

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_DisabledByDefault(t *testing.T) {
	logger, closer, err := NewLogger(LogConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer()

	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected a no-op logger when no file and no debug")
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "warpfield.log")

	logger, closer, err := NewLogger(LogConfig{File: path, Level: "warn"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("filtered out")
	logger.Warn("kept", zap.Int("stars", 300))
	if err := closer(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(string(data), `"stars":300`) {
		t.Errorf("expected structured field in log, got %q", data)
	}
}

func TestNewLogger_RollsOverFullFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warpfield.log")
	full := int64(maxLogSizeMB * 1024 * 1024)
	if err := os.WriteFile(path, make([]byte, full), 0644); err != nil {
		t.Fatalf("failed to create large log: %v", err)
	}

	logger, closer, err := NewLogger(LogConfig{File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("after rollover")
	if err := closer(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	backups, err := filepath.Glob(filepath.Join(dir, "warpfield-*.log"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected one backup, got %v", backups)
	}
	backup, err := os.Stat(backups[0])
	if err != nil {
		t.Fatalf("failed to stat backup: %v", err)
	}
	if backup.Size() != full {
		t.Errorf("backup size = %d, want %d", backup.Size(), full)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected fresh log file: %v", err)
	}
	if int64(len(data)) >= full || !strings.Contains(string(data), "after rollover") {
		t.Errorf("fresh log holds %d bytes, want only the new entry", len(data))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// stubCrash captures exit codes and output for the duration of a test
func stubCrash(t *testing.T) (*bytes.Buffer, <-chan int) {
	t.Helper()
	codes := make(chan int, 1)
	out := &bytes.Buffer{}

	crashMu.Lock()
	prevExit, prevOut, prevCleanup := crashExit, crashOut, crashCleanup
	crashExit = func(code int) { codes <- code }
	crashOut = out
	crashCleanup = nil
	crashMu.Unlock()

	t.Cleanup(func() {
		crashMu.Lock()
		crashExit, crashOut, crashCleanup = prevExit, prevOut, prevCleanup
		crashMu.Unlock()
		SetCrashLogger(nil)
	})
	return out, codes
}

func TestHandleCrash_NilIsIgnored(t *testing.T) {
	_, codes := stubCrash(t)
	HandleCrash(nil)
	select {
	case <-codes:
		t.Error("exit called for nil panic")
	default:
	}
}

func TestHandleCrash_RunsCleanupInReverse(t *testing.T) {
	out, codes := stubCrash(t)
	obsCore, logs := observer.New(zapcore.ErrorLevel)
	SetCrashLogger(zap.New(obsCore))

	var order []string
	RegisterCrashCleanup(func() { order = append(order, "first") })
	RegisterCrashCleanup(func() { panic("cleanup failure") })
	RegisterCrashCleanup(func() { order = append(order, "last") })

	HandleCrash("boom")

	if code := <-codes; code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if len(order) != 2 || order[0] != "last" || order[1] != "first" {
		t.Errorf("cleanup order = %v", order)
	}
	if !strings.Contains(out.String(), "CRASH DETECTED: boom") {
		t.Errorf("missing crash banner in %q", out.String())
	}
	if logs.FilterMessage("crash detected").Len() != 1 {
		t.Error("crash not logged")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	_, codes := stubCrash(t)

	var wg sync.WaitGroup
	wg.Add(1)
	Go(func() {
		defer wg.Done()
		panic("worker died")
	})
	wg.Wait()

	select {
	case code := <-codes:
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	case <-time.After(time.Second):
		t.Fatal("panic was not handled")
	}
}
