package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Badsnus/qr-studio/pkg/logger/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	Log     *types.Logger
	logHook atomic.Pointer[types.LogHook]
)

// Config represents configuration options for logger initialization
type Config struct {
	Debug     bool   // Enable debug logging
	TimeZone  string // IANA zone used for timestamps, UTC when empty
	LogToFile bool   // Also write JSON logs to a file
	LogsDir   string // Directory for log files, relative to the working directory

	Console io.Writer // Console output, os.Stdout when nil
}

// SetLogHook sets a hook function that will be called for each log entry.
// A nil hook removes the current one.
func SetLogHook(hook types.LogHook) {
	if hook == nil {
		logHook.Store(nil)
		return
	}
	logHook.Store(&hook)
	Log.Debug("Log hook set")
}

// Init builds the process logger and stores it in Log.
func Init(config Config) error {
	l, err := New(config)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// New builds a logger named "main" with a colored console core and an
// optional JSON file core. Every entry is passed to the hook set with
// SetLogHook.
func New(config Config) (*types.Logger, error) {
	l := &types.Logger{Name: "main"}

	loc, err := location(config.TimeZone)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "timestamp",
		NameKey:        "logger",
		CallerKey:      "caller",
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     timeEncoder(loc),
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	level := zapcore.InfoLevel
	if config.Debug {
		level = zapcore.DebugLevel
	}

	console := config.Console
	if console == nil {
		console = os.Stdout
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(zapcore.AddSync(console)), level),
	}

	if config.LogToFile {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		l.LogsPath = filepath.Join(wd, config.LogsDir)
		if err = os.MkdirAll(l.LogsPath, os.ModePerm); err != nil {
			return nil, err
		}

		name := fmt.Sprintf("qr-studio-%s.log", time.Now().In(loc).Format("2006-01-02"))
		fileWriter, err := os.OpenFile(filepath.Join(l.LogsPath, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}

		fileEncoderConfig := encoderConfig
		fileEncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), zapcore.AddSync(fileWriter), level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.Hooks(func(entry zapcore.Entry) error {
		if hook := logHook.Load(); hook != nil {
			(*hook)(types.Log{
				Timestamp:  entry.Time.In(loc),
				Caller:     entry.Caller.String(),
				LoggerName: entry.LoggerName,
				Level:      entry.Level,
				Message:    entry.Message,
			})
		}
		return nil
	}))

	l.SugaredLogger = log.Named(l.Name).Sugar()
	return l, nil
}

// Named returns a new logger with the specified name ("bot", "api", etc.)
func Named(name string) (*types.Logger, error) {
	if Log == nil {
		return nil, fmt.Errorf("logger is not initialized")
	}
	return Log.Named(name), nil
}

func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("logger: time zone %q: %w", tz, err)
	}
	return loc, nil
}

func timeEncoder(loc *time.Location) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(timeLayout))
	}
}
