package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogDir  = "logs"
	defaultLogFile = "warpfield.log"
	// maxLogSizeMB rolls the file over to a single timestamped backup
	maxLogSizeMB = 10
)

// LogConfig selects where and how much to log
// The terminal owns stdout, so logs only ever go to a file
type LogConfig struct {
	File   string `mapstructure:"file" yaml:"file" json:"file"`
	Debug  bool   `mapstructure:"debug" yaml:"debug" json:"debug"`
	Level  string `mapstructure:"level" yaml:"level" json:"level"`
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// NewLogger builds the application logger and a closer for its file
// Logging is disabled (zap.NewNop) unless a file is set or debug is on
func NewLogger(cfg LogConfig) (*zap.Logger, func() error, error) {
	noop := func() error { return nil }
	if cfg.File == "" && !cfg.Debug {
		return zap.NewNop(), noop, nil
	}

	path := cfg.File
	if path == "" {
		path = filepath.Join(defaultLogDir, defaultLogFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, noop, errors.Wrapf(err, "[core] failed to create log directory for %s", path)
	}
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogSizeMB,
		MaxBackups: 1,
		LocalTime:  true,
	}

	level := ParseLevel(cfg.Level)
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	var enc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	logger := zap.New(zapcore.NewCore(enc, zapcore.AddSync(sink), level), zap.AddCaller())
	closer := func() error {
		_ = logger.Sync()
		return sink.Close()
	}
	return logger, closer, nil
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info", "":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
