package logs

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Logger logger interface
type Logger interface {
	Debug(ctx context.Context, msg string, args ...interface{})
	Info(ctx context.Context, msg string, args ...interface{})
	Warn(ctx context.Context, msg string, args ...interface{})
	Error(ctx context.Context, msg string, args ...interface{})
}

// LogLevel log level
type LogLevel int

const (
	//Debug enable debug or above log output
	Debug LogLevel = 0
	//Info enable info or above log output
	Info LogLevel = 1
	//Warn enable warn or above log output
	Warn LogLevel = 2
	//Error enable error or above log output
	Error LogLevel = 3
)

func (ll LogLevel) String() string {
	switch ll {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	}
	return ""
}

// ParseLevel converts a level name such as "info" to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "info", "":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return Info, errors.Errorf("unknown log level:%v", s)
}

type fieldsKey struct{}

// WithFields returns a context whose log lines are tagged with the given key/value pairs
func WithFields(ctx context.Context, kvs ...interface{}) context.Context {
	var b strings.Builder
	if prev, ok := ctx.Value(fieldsKey{}).(string); ok {
		b.WriteString(prev)
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, "%v=%v ", kvs[i], kvs[i+1])
	}
	return context.WithValue(ctx, fieldsKey{}, b.String())
}

func fields(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if f, ok := ctx.Value(fieldsKey{}).(string); ok {
		return f
	}
	return ""
}

type defaultLogger struct {
	mu       sync.Mutex
	writer   io.StringWriter
	logLevel LogLevel
}

//NewLogger init Logger instance
func NewLogger(writer io.StringWriter, logLevel LogLevel) *defaultLogger {
	return &defaultLogger{writer: writer, logLevel: logLevel}
}

func (l *defaultLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	if Debug >= l.logLevel {
		l.write(logBase(Debug) + fields(ctx) + fmt.Sprintf(msg, args...) + "\n")
	}
}

func (l *defaultLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if Info >= l.logLevel {
		l.write(logBase(Info) + fields(ctx) + fmt.Sprintf(msg, args...) + "\n")
	}
}

func (l *defaultLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if Warn >= l.logLevel {
		l.write(logBase(Warn) + fields(ctx) + fmt.Sprintf(msg, args...) + "\n")
	}
}

func (l *defaultLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if Error >= l.logLevel {
		l.write(logBase(Error) + fields(ctx) + fmt.Sprintf(msg, args...) + "\n")
	}
}

func (l *defaultLogger) write(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer.WriteString(line)
}

// Tee returns a Logger that forwards every line to all of the given loggers
func Tee(loggers ...Logger) Logger {
	return teeLogger(loggers)
}

type teeLogger []Logger

func (t teeLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	for _, l := range t {
		l.Debug(ctx, msg, args...)
	}
}

func (t teeLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	for _, l := range t {
		l.Info(ctx, msg, args...)
	}
}

func (t teeLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	for _, l := range t {
		l.Warn(ctx, msg, args...)
	}
}

func (t teeLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	for _, l := range t {
		l.Error(ctx, msg, args...)
	}
}

var seperatorReg = regexp.MustCompile("[/\\\\]")

func fileLine() string {
	_, file, line, ok := runtime.Caller(3)
	if ok {
		idx := seperatorReg.FindAllStringIndex(file, -1)
		if len(idx) > 0 {
			file = file[idx[len(idx)-1][1]:]
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}

func logBase(level LogLevel) string {
	return fmt.Sprintf("%v [%s] %s ", time.Now().Format("2006-01-02 15:04:05.000000"), level, fileLine())
}
