package core

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

var (
	crashMu      sync.Mutex
	crashCleanup []func()
	crashLogger  = zap.NewNop()

	// Swapped in tests
	crashExit           = os.Exit
	crashOut  io.Writer = os.Stderr
)

// RegisterCrashCleanup adds a function run before the crash report, typically terminal restore
// Cleanups run in reverse registration order
func RegisterCrashCleanup(fn func()) {
	crashMu.Lock()
	crashCleanup = append(crashCleanup, fn)
	crashMu.Unlock()
}

// SetCrashLogger routes crash reports to the application log as well as stderr
func SetCrashLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	crashMu.Lock()
	crashLogger = logger
	crashMu.Unlock()
}

// HandleCrash is the unified panic handler that restores the terminal and prints the stack trace
func HandleCrash(r any) {
	if r == nil {
		return
	}

	crashMu.Lock()
	cleanups := make([]func(), len(crashCleanup))
	copy(cleanups, crashCleanup)
	logger, exit, out := crashLogger, crashExit, crashOut
	crashMu.Unlock()

	// Restore terminal to sane state before printing
	for i := len(cleanups) - 1; i >= 0; i-- {
		runCleanup(cleanups[i])
	}

	stack := debug.Stack()
	logger.Error("crash detected", zap.Any("panic", r), zap.ByteString("stack", stack))
	_ = logger.Sync()

	fmt.Fprintf(out, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(out, "Stack Trace:\r\n%s\r\n", stack)

	exit(1)
}

// runCleanup keeps a failing cleanup from masking the original panic
func runCleanup(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// Go runs a function in a new goroutine with panic recovery
// Use this instead of the 'go' keyword to ensure terminal cleanup on crash
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
