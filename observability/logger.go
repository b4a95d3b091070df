package observability

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
	"github.com/willibrandon/mtlog/sinks"
)

// SourceContext tags every event written by a gowiz logger.
const SourceContext = "gowiz"

// ResolutionIDProperty names the property holding the resolution identifier.
const ResolutionIDProperty = "ResolutionId"

// Logger writes message-template events. Verbose is used for graph
// mutations, Debug for branch transitions and Warn for aborted resolutions.
type Logger interface {
	Verbose(messageTemplate string, args ...any)
	VerboseContext(ctx context.Context, messageTemplate string, args ...any)

	Debug(messageTemplate string, args ...any)
	DebugContext(ctx context.Context, messageTemplate string, args ...any)

	Info(messageTemplate string, args ...any)
	InfoContext(ctx context.Context, messageTemplate string, args ...any)

	Warn(messageTemplate string, args ...any)
	WarnContext(ctx context.Context, messageTemplate string, args ...any)

	Error(messageTemplate string, args ...any)
	ErrorContext(ctx context.Context, messageTemplate string, args ...any)

	Fatal(messageTemplate string, args ...any)
	FatalContext(ctx context.Context, messageTemplate string, args ...any)

	// ForContext returns a child logger attaching key to every event
	ForContext(key string, value any) Logger
}

// NewLogger creates a logger writing rendered events to output.
func NewLogger(output io.Writer, level LogLevel) Logger {
	return newSinkLogger(sinks.NewConsoleSinkWithWriter(output), level)
}

// ForResolution scopes a logger to one resolution.
func ForResolution(logger Logger, resolutionID string) Logger {
	return logger.ForContext(ResolutionIDProperty, resolutionID)
}

func newSinkLogger(sink core.LogEventSink, level LogLevel) Logger {
	return &mtlogAdapter{
		logger: mtlog.New(
			mtlog.WithSink(sink),
			mtlog.WithTimestamp(),
			mtlog.WithSourceContext(SourceContext),
			mtlog.WithMinimumLevel(level.eventLevel()),
		),
	}
}

// mtlogAdapter narrows core.Logger to Logger.
type mtlogAdapter struct {
	logger core.Logger
}

func (a *mtlogAdapter) Verbose(messageTemplate string, args ...any) {
	a.logger.Verbose(messageTemplate, args...)
}

func (a *mtlogAdapter) VerboseContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.VerboseContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) Debug(messageTemplate string, args ...any) {
	a.logger.Debug(messageTemplate, args...)
}

func (a *mtlogAdapter) DebugContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.DebugContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) Info(messageTemplate string, args ...any) {
	a.logger.Info(messageTemplate, args...)
}

func (a *mtlogAdapter) InfoContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.InfoContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) Warn(messageTemplate string, args ...any) {
	a.logger.Warn(messageTemplate, args...)
}

func (a *mtlogAdapter) WarnContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.WarnContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) Error(messageTemplate string, args ...any) {
	a.logger.Error(messageTemplate, args...)
}

func (a *mtlogAdapter) ErrorContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.ErrorContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) Fatal(messageTemplate string, args ...any) {
	a.logger.Fatal(messageTemplate, args...)
}

func (a *mtlogAdapter) FatalContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.FatalContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) ForContext(key string, value any) Logger {
	return &mtlogAdapter{logger: a.logger.ForContext(key, value)}
}

// LogLevel represents log verbosity level
type LogLevel int

const (
	// VerboseLevel is the most detailed logging level.
	VerboseLevel LogLevel = iota
	// DebugLevel is for debug messages.
	DebugLevel
	// InfoLevel is for informational messages.
	InfoLevel
	// WarnLevel is for warning messages.
	WarnLevel
	// ErrorLevel is for error messages.
	ErrorLevel
	// FatalLevel is for fatal error messages.
	FatalLevel
)

var levelNames = [...]string{"verbose", "debug", "info", "warn", "error", "fatal"}

// eventLevel converts to the mtlog level of the same rank. Out of range
// levels map to Warn.
func (l LogLevel) eventLevel() core.LogEventLevel {
	switch l {
	case VerboseLevel:
		return core.VerboseLevel
	case DebugLevel:
		return core.DebugLevel
	case InfoLevel:
		return core.InformationLevel
	case ErrorLevel:
		return core.ErrorLevel
	case FatalLevel:
		return core.FatalLevel
	default:
		return core.WarningLevel
	}
}

// String returns the lower-case level name.
func (l LogLevel) String() string {
	if l < VerboseLevel || l > FatalLevel {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLogLevel parses a level name as accepted by the CLI configuration.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace":
		return VerboseLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info", "information":
		return InfoLevel, nil
	case "warn", "warning", "":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return WarnLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// LevelForVerbosity maps a count of -v flags to a level: none is Warn,
// one is Info, two is Debug and three or more is Verbose.
func LevelForVerbosity(count int) LogLevel {
	switch {
	case count <= 0:
		return WarnLevel
	case count == 1:
		return InfoLevel
	case count == 2:
		return DebugLevel
	default:
		return VerboseLevel
	}
}

// NullLogger is a logger that discards all output
type nullLogger struct{}

// NewNullLogger creates a logger that discards all output
func NewNullLogger() Logger {
	return &nullLogger{}
}

func (n *nullLogger) Verbose(messageTemplate string, args ...any)                             {}
func (n *nullLogger) VerboseContext(ctx context.Context, messageTemplate string, args ...any) {}
func (n *nullLogger) Debug(messageTemplate string, args ...any)                               {}
func (n *nullLogger) DebugContext(ctx context.Context, messageTemplate string, args ...any)   {}
func (n *nullLogger) Info(messageTemplate string, args ...any)                                {}
func (n *nullLogger) InfoContext(ctx context.Context, messageTemplate string, args ...any)    {}
func (n *nullLogger) Warn(messageTemplate string, args ...any)                                {}
func (n *nullLogger) WarnContext(ctx context.Context, messageTemplate string, args ...any)    {}
func (n *nullLogger) Error(messageTemplate string, args ...any)                               {}
func (n *nullLogger) ErrorContext(ctx context.Context, messageTemplate string, args ...any)   {}
func (n *nullLogger) Fatal(messageTemplate string, args ...any)                               {}
func (n *nullLogger) FatalContext(ctx context.Context, messageTemplate string, args ...any)   {}
func (n *nullLogger) ForContext(key string, value any) Logger                                 { return n }
