// Package logger provides the engine's leveled structured logger: a
// slog.Logger with five custom severities (TRACE, DEBUG, INFO, WARNING,
// ERROR), a package-level default instance, and package-level
// Tracef/Debugf/Infof/Warnf/Errorf helpers adapters call without threading
// a logger handle through every function signature.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Jan-Chojnacki/Stripe-Slinger/internal/cfg"
)

// Custom severities, ordered the same way slog's built-in levels are but
// spaced to leave room beneath/above them for TRACE and a silencing OFF.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

const (
	SeverityTrace   = "TRACE"
	SeverityDebug   = "DEBUG"
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
	SeverityOff     = "OFF"
)

func severityForLevel(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return SeverityTrace
	case l < LevelInfo:
		return SeverityDebug
	case l < LevelWarn:
		return SeverityInfo
	case l < LevelError:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func levelForSeverity(severity string) slog.Level {
	switch severity {
	case SeverityTrace:
		return LevelTrace
	case SeverityDebug:
		return LevelDebug
	case SeverityWarning:
		return LevelWarn
	case SeverityError:
		return LevelError
	case SeverityOff:
		return LevelOff
	default:
		return LevelInfo
	}
}

type loggerFactory struct {
	file      io.Writer
	sysWriter io.Writer
	level     string
	format    string
	prefix    string
}

var (
	defaultLoggerFactory = &loggerFactory{sysWriter: os.Stderr, level: SeverityInfo, format: "text"}
	programLevel         = new(slog.LevelVar)
	defaultLogger        = slog.New(defaultLoggerFactory.createJSONOrTextHandler(os.Stderr, programLevel, ""))
)

func init() {
	setLoggingLevel(defaultLoggerFactory.level, programLevel)
}

// Init configures the package-level default logger from cfg.LoggingConfig:
// destination (file with rotation, or stderr), format, and severity
// threshold.
func Init(c cfg.LoggingConfig) error {
	f := &loggerFactory{level: c.Severity, format: c.Format, prefix: ""}

	var w io.Writer
	if c.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    512, // megabytes
			MaxBackups: 3,
			Compress:   true,
		}
		f.file = rotator
		w = rotator
	} else {
		f.sysWriter = os.Stderr
		w = os.Stderr
	}

	defaultLoggerFactory = f
	setLoggingLevel(f.level, programLevel)
	defaultLogger = slog.New(f.createJSONOrTextHandler(w, programLevel, f.prefix))
	return nil
}

func setLoggingLevel(severity string, lv *slog.LevelVar) {
	lv.Set(levelForSeverity(severity))
}

// SetLogFormat switches the default logger between "text" and "json"
// encodings; any other value (including empty) behaves as "json".
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	w := defaultLoggerFactory.sysWriter
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(w, programLevel, defaultLoggerFactory.prefix))
}

func (f *loggerFactory) createJSONOrTextHandler(w io.Writer, lv *slog.LevelVar, prefix string) slog.Handler {
	if f.format == "text" {
		return &textHandler{w: w, lv: lv, prefix: prefix}
	}
	return &jsonHandler{w: w, lv: lv, prefix: prefix}
}

// textHandler and jsonHandler are minimal slog.Handler implementations
// that render exactly the severity-tagged, single-line shape the rest of
// this stack's tooling expects, rather than slog's default key=value
// attribute ordering.
type textHandler struct {
	w      io.Writer
	lv     *slog.LevelVar
	prefix string
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.lv.Level() }
func (h *textHandler) WithAttrs(_ []slog.Attr) slog.Handler             { return h }
func (h *textHandler) WithGroup(_ string) slog.Handler                  { return h }
func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
		r.Time.Format("2006/01/02 15:04:05.000000"), severityForLevel(r.Level), h.prefix+r.Message)
	return err
}

type jsonHandler struct {
	w      io.Writer
	lv     *slog.LevelVar
	prefix string
}

func (h *jsonHandler) Enabled(_ context.Context, level slog.Level) bool { return level >= h.lv.Level() }
func (h *jsonHandler) WithAttrs(_ []slog.Attr) slog.Handler             { return h }
func (h *jsonHandler) WithGroup(_ string) slog.Handler                  { return h }
func (h *jsonHandler) Handle(_ context.Context, r slog.Record) error {
	type timestamp struct {
		Seconds int64 `json:"seconds"`
		Nanos   int   `json:"nanos"`
	}
	entry := struct {
		Timestamp timestamp `json:"timestamp"`
		Severity  string    `json:"severity"`
		Message   string    `json:"message"`
	}{
		Timestamp: timestamp{Seconds: r.Time.Unix(), Nanos: r.Time.Nanosecond()},
		Severity:  severityForLevel(r.Level),
		Message:   h.prefix + r.Message,
	}
	enc := json.NewEncoder(h.w)
	return enc.Encode(entry)
}

func Tracef(format string, args ...any) { defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { defaultLogger.Log(context.Background(), LevelDebug, fmt.Sprintf(format, args...)) }
func Infof(format string, args ...any)  { defaultLogger.Log(context.Background(), LevelInfo, fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { defaultLogger.Log(context.Background(), LevelWarn, fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { defaultLogger.Log(context.Background(), LevelError, fmt.Sprintf(format, args...)) }
