package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/oops"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler
	log.Logger = log.Output(NewPrettyZerologWriter(os.Stderr))
	zerolog.SetGlobalLevel(config.Config.LogLevel)
}

func GlobalLogger() *zerolog.Logger {
	return &log.Logger
}

func Trace() *zerolog.Event {
	return log.Trace().Timestamp().Stack()
}

func Debug() *zerolog.Event {
	return log.Debug().Timestamp().Stack()
}

func Info() *zerolog.Event {
	return log.Info().Timestamp().Stack()
}

func Warn() *zerolog.Event {
	return log.Warn().Timestamp().Stack()
}

func Error() *zerolog.Event {
	return log.Error().Timestamp().Stack()
}

func Fatal() *zerolog.Event {
	return log.Fatal().Timestamp().Stack()
}

func With() zerolog.Context {
	return log.With().Stack()
}

type loggerContextKey struct{}

func AttachLoggerToContext(logger *zerolog.Logger, ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// ExtractLogger returns the logger attached to the context, or the global
// logger if there is none.
func ExtractLogger(ctx context.Context) *zerolog.Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return GlobalLogger()
}

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorRed   = "\033[31m"
	colorBlue  = "\033[34m"
	colorGray  = "\033[37m"
)

var levelColors = map[string]string{
	"trace": colorGray,
	"debug": colorGray,
	"info":  "\033[44m",
	"warn":  "\033[43m",
	"error": "\033[41m",
	"fatal": "\033[41m",
	"panic": "\033[41m",
}

const separator = "---------------------------------------\n"

/*
Rewrites zerolog's JSON lines as a readable block per event for the console.
Anything that isn't JSON goes through unchanged.
*/
type PrettyZerologWriter struct {
	out io.Writer
	wd  string

	// Multi-line events get a separator before and after.
	lastWasBlock bool
}

func NewPrettyZerologWriter(out io.Writer) *PrettyZerologWriter {
	wd, _ := os.Getwd()
	return &PrettyZerologWriter{out: out, wd: wd}
}

type logEvent struct {
	time, level, message, err string
	stack                     []any
	fields                    map[string]any
}

func parseEvent(p []byte) (logEvent, bool) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return logEvent{}, false
	}

	str := func(name string) string {
		s, _ := raw[name].(string)
		delete(raw, name)
		return s
	}
	ev := logEvent{
		time:    str(zerolog.TimestampFieldName),
		level:   str(zerolog.LevelFieldName),
		message: str(zerolog.MessageFieldName),
		err:     str(zerolog.ErrorFieldName),
	}
	ev.stack, _ = raw[zerolog.ErrorStackFieldName].([]any)
	delete(raw, zerolog.ErrorStackFieldName)
	ev.fields = raw
	return ev, true
}

func (ev logEvent) isBlock() bool {
	return ev.err != "" || ev.stack != nil || len(ev.fields) > 0
}

func heading(color, text string) string {
	return "  " + colorBold + color + text + colorReset
}

func (w *PrettyZerologWriter) Write(p []byte) (int, error) {
	ev, ok := parseEvent(p)
	if !ok {
		return w.out.Write(p)
	}

	var b strings.Builder
	if ev.isBlock() || w.lastWasBlock {
		b.WriteString(separator)
	}
	w.lastWasBlock = ev.isBlock()

	b.WriteString(ev.time + " ")
	if ev.level != "" {
		fmt.Fprintf(&b, "%s%s%s%s: ", levelColors[ev.level], colorBold, strings.ToUpper(ev.level), colorReset)
	}
	b.WriteString(ev.message + "\n")

	if ev.err != "" {
		fmt.Fprintf(&b, "%s %s\n", heading(colorRed, "ERROR:"), ev.err)
	}
	w.writeFields(&b, ev.fields)
	w.writeStack(&b, ev.stack)

	// zerolog wants the length of the input back
	_, err := io.WriteString(w.out, b.String())
	return len(p), err
}

func (w *PrettyZerologWriter) writeFields(b *strings.Builder, fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString(heading(colorBlue, "Fields:") + "\n")
	for _, name := range names {
		value, _ := json.MarshalIndent(fields[name], "    ", "  ")
		fmt.Fprintf(b, "    %s: %s\n", name, value)
	}
}

func (w *PrettyZerologWriter) writeStack(b *strings.Builder, stack []any) {
	if stack == nil {
		return
	}
	b.WriteString(heading(colorBlue, "Stack trace:") + "\n")
	for _, frame := range stack {
		f, ok := frame.(map[string]any)
		if !ok {
			continue
		}
		file, _ := f["file"].(string)
		function, _ := f["function"].(string)
		line, _ := f["line"].(float64)
		fmt.Fprintf(b, "    %s (%s:%d)\n", function, strings.Replace(file, w.wd, ".", 1), int(line))
	}
}

func LogPanics(logger *zerolog.Logger) {
	if r := recover(); r != nil {
		LogPanicValue(logger, r, "recovered from panic")
	}
}

func LogPanicValue(logger *zerolog.Logger, val any, msg string) {
	if logger == nil {
		logger = GlobalLogger()
	}

	if err, ok := val.(error); ok {
		l := logger.Error().Err(err)
		if _, ok := err.(*oops.Error); !ok {
			l = l.Interface(zerolog.ErrorStackFieldName, oops.Trace())
		}
		l.Msg(msg)
	} else {
		logger.Error().
			Interface("recovered", val).
			Interface(zerolog.ErrorStackFieldName, oops.Trace()).
			Msg(msg)
	}
}
