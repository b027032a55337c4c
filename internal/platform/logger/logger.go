package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap so the rest of the service depends on one construction point.
type Logger struct {
	*zap.Logger
	config LoggerConfig
}

var (
	globalLogger *Logger
	once         sync.Once
)

// NewLogger builds the process-wide logger. Later calls return the first instance.
func NewLogger(cfg LoggerConfig) *Logger {
	once.Do(func() {
		var zapConfig zap.Config
		if strings.ToLower(cfg.Level) == "debug" {
			zapConfig = zap.NewDevelopmentConfig()
		} else {
			zapConfig = zap.NewProductionConfig()
			zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		zapConfig.Level = zap.NewAtomicLevelAt(cfg.ToZapLevel())

		switch cfg.OutputFile {
		case "", "stdout", "stderr":
			out := cfg.OutputFile
			if out == "" {
				out = "stdout"
			}
			zapConfig.OutputPaths = []string{out}
			zapConfig.ErrorOutputPaths = []string{"stderr"}
		default:
			if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "logger: cannot create log dir, using stdout: %v\n", err)
				zapConfig.OutputPaths = []string{"stdout"}
			} else {
				zapConfig.OutputPaths = []string{cfg.OutputFile, "stdout"}
			}
			zapConfig.ErrorOutputPaths = []string{"stderr"}
		}

		if f := strings.ToLower(cfg.Format); f == "console" || f == "text" {
			zapConfig.Encoding = "console"
			zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			zapConfig.Encoding = "json"
		}

		l, err := zapConfig.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger: build failed, falling back to production logger: %v\n", err)
			l, _ = zap.NewProduction()
		}
		globalLogger = &Logger{Logger: l, config: cfg}
		globalLogger.Info("Logger initialized",
			zap.String("level", cfg.Level),
			zap.String("format", zapConfig.Encoding),
			zap.Strings("output_paths", zapConfig.OutputPaths))
	})
	return globalLogger
}

// Named adds a new path segment to the logger's name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), config: l.config}
}

// With adds structured context to the logger.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), config: l.config}
}
