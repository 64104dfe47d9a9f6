package log

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kyokomi/emoji/v2"
	log "github.com/sirupsen/logrus"
)

type LoggerContextKey string

const (
	FormatJSON  = "json"
	FormatFancy = "fancy"

	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatContextKey LoggerContextKey = "log-format"
)

var (
	Formats = []string{FormatJSON, FormatFancy}
	Levels  = []string{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}
)

// New creates a logger writing to stdout with the fancy formatter at info level.
func New(ctx context.Context) (*log.Entry, error) {
	l := log.New()
	l.SetOutput(os.Stdout)

	e := l.WithContext(ctx)
	if err := Configure(e, LevelInfo, FormatFancy); err != nil {
		return nil, err
	}

	return e, nil
}

func Configure(e *log.Entry, level string, format string) error {
	formatter, err := getLogFormatter(format)
	if err != nil {
		return err
	}

	logLevel, err := getLogLevel(level)
	if err != nil {
		return err
	}

	l := e.Logger
	l.SetFormatter(formatter)
	l.SetLevel(logLevel)

	ctx := e.Context
	if ctx == nil {
		ctx = context.Background()
	}

	e.Context = context.WithValue(ctx, FormatContextKey, format)

	return nil
}

// AttachFile appends every log entry to the file at path as plain text.
// Write failures on the file are reported on stderr and never fail the caller.
func AttachFile(e *log.Entry, path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	e.Logger.AddHook(NewFileHook(f))

	return f, nil
}

func getLogFormatter(format string) (log.Formatter, error) {
	switch format {
	case FormatJSON:
		return &log.JSONFormatter{}, nil
	case FormatFancy:
		return &fancyFormatter{}, nil
	}

	return nil, fmt.Errorf("unknown log format: %s", format)
}

func getLogLevel(level string) (log.Level, error) {
	switch level {
	case LevelTrace:
		return log.TraceLevel, nil
	case LevelDebug:
		return log.DebugLevel, nil
	case LevelInfo:
		return log.InfoLevel, nil
	case LevelWarn:
		return log.WarnLevel, nil
	case LevelError:
		return log.ErrorLevel, nil
	}

	return 0, fmt.Errorf("unknown log level: %s", level)
}

type fancyFormatter struct{}

func (f *fancyFormatter) Format(e *log.Entry) ([]byte, error) {
	msg := emoji.Sprintf("%s\n", e.Message)
	if err, ok := e.Data[log.ErrorKey]; ok {
		msg = emoji.Sprintf("%s: %v\n", e.Message, err)
	}

	return []byte(msg), nil
}
