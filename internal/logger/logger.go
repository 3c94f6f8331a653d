// internal/logger/logger.go
package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger with the context helpers used across curvelaunch.
type Logger struct {
	*zap.Logger
	config *Config
	closer io.Closer
}

// New builds a logger that writes to the console (stderr, so command output
// on stdout stays clean) and, when LogFile is set, to a rotated JSON file.
func New(cfg *Config) (*Logger, error) {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg *Config, console io.Writer) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	var cores []zapcore.Core
	switch strings.ToLower(cfg.Console) {
	case "", ConsolePretty:
		cores = append(cores, zapcore.NewCore(PrettyEncoder(), zapcore.Lock(zapcore.AddSync(console)), level))
	case ConsolePlain:
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(zapcore.AddSync(console)), level))
	case ConsoleNone:
	default:
		return nil, fmt.Errorf("unknown console log format %q", cfg.Console)
	}

	var closer io.Closer
	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closer = rotator
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(rotator), level))
	}

	if len(cores) == 0 {
		return &Logger{Logger: zap.NewNop(), config: cfg}, nil
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		),
		config: cfg,
		closer: closer,
	}, nil
}

// encoderConfig keeps the production key set whatever the level, so the file
// format does not change under --debug.
func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	return enc
}

// Config returns the configuration the logger was built from.
func (l *Logger) Config() Config { return *l.config }

// WithOperation returns a logger tagged with the operation name and a fresh
// correlation id.
func (l *Logger) WithOperation(operation string) *zap.Logger {
	return l.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
		zap.Time("start_time", time.Now().UTC()),
	)
}

// WithComponent adds the component name.
func (l *Logger) WithComponent(component string) *zap.Logger {
	return l.With(zap.String("component", component))
}

// WithLaunch adds the launch identity to every entry.
func (l *Logger) WithLaunch(launchID, mint string) *zap.Logger {
	return l.With(
		zap.String("launch_id", launchID),
		zap.String("mint", mint),
	)
}

// LogError logs msg at error level with err attached.
func (l *Logger) LogError(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.Error(msg, fields...)
}

// TrackPerformance logs the start of an operation at debug level and returns
// a func that logs its duration.
func (l *Logger) TrackPerformance(operation string) (end func()) {
	start := time.Now()
	opLogger := l.WithOperation(operation)

	opLogger.Debug("Starting operation")

	return func() {
		duration := time.Since(start)
		opLogger.Debug("Operation completed",
			zap.Duration("duration", duration),
			zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
		)
	}
}

// Sync flushes buffered entries, ignoring the errors terminals return for
// fsync on stdout and stderr.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// Close syncs and closes the log file.
func (l *Logger) Close() error {
	syncErr := l.Sync()
	if l.closer == nil {
		return syncErr
	}
	return errors.Join(syncErr, l.closer.Close())
}
