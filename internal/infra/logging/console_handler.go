package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

const (
	ansiCodeReset     = "\033[0m"
	ansiCodeRed       = "\033[31m"
	ansiCodeGreen     = "\033[32m"
	ansiCodeYellow    = "\033[33m"
	ansiCodeBlue      = "\033[34m"
	ansiCodeCyan      = "\033[36m"
	ansiCodeGray      = "\033[90m"
	ansiCodeUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var ansiCodeMap = map[slog.Level]string{
	slog.LevelDebug: ansiCodeCyan,
	slog.LevelInfo:  ansiCodeGreen,
	slog.LevelWarn:  ansiCodeYellow,
	slog.LevelError: ansiCodeRed,
}

// ConsoleHandler implements slog.Handler for human-readable, colored output.
//
// The request id and the authenticated caller added by TracingHandler are
// lifted out of the attributes into the line header:
//
//	15:04:05.000000 [INFO] 01jd4x… admin:01jd4w… post deleted | logger=svc.postsvc post=…
type ConsoleHandler struct {
	// Output is the destination for log output (typically os.Stdout or os.Stderr)
	Output io.Writer
	// Level is the minimum level for log records to be processed
	Level slog.Leveler
	// PkgLevels maps dotted logger names to minimum log levels
	PkgLevels map[string]slog.Level
	// Source appends the calling function and file position
	Source bool

	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	attrs = append(attrs, h.attrs...)

	if r.Level < h.pkgLevel(loggerName(attrs)) {
		return nil
	}

	requestID, caller, attrs := splitCorrelation(attrs)

	var line strings.Builder

	line.WriteString(ansiCodeGray + r.Time.Format("15:04:05.000000") + ansiCodeReset)
	line.WriteString(" " + ansiCodeMap[r.Level] + "[" + r.Level.String() + "]" + ansiCodeReset)

	if requestID != "" {
		line.WriteString(" " + ansiCodeGray + requestID + ansiCodeReset)
	}

	if caller != "" {
		line.WriteString(" " + ansiCodeBlue + caller + ansiCodeReset)
	}

	line.WriteString(" " + r.Message)

	if len(attrs) > 0 {
		var prefix string
		if len(h.groups) > 0 {
			prefix = strings.Join(h.groups, ".") + "."
		}

		line.WriteString(" " + ansiCodeGray + "|" + ansiCodeReset)
		renderAttrs(&line, prefix, attrs)
	}

	if h.Source && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fn := strings.Split(f.Function, string(os.PathSeparator))

		line.WriteString("\n-> " + ansiCodeGray + fn[len(fn)-1] + "()")
		line.WriteString(" in " + ansiCodeUnderline + f.File + ":" + strconv.Itoa(f.Line) + ansiCodeReset)
	}

	fmt.Fprintln(h.Output, line.String())

	return nil
}

// pkgLevel returns the minimum level for a dotted logger name: the level of
// the longest matching prefix in PkgLevels, the "" entry, or the handler level.
func (h *ConsoleHandler) pkgLevel(name string) slog.Level {
	for key := name; ; {
		if level, ok := h.PkgLevels[key]; ok {
			return level
		}

		if key == "" {
			return h.Level.Level()
		}

		i := strings.LastIndex(key, ".")
		if i < 0 {
			key = ""
		} else {
			key = key[:i]
		}
	}
}

func loggerName(attrs []slog.Attr) string {
	for _, attr := range attrs {
		if attr.Key == loggerKey {
			return attr.Value.String()
		}
	}

	return ""
}

// splitCorrelation removes the request id and the caller group from attrs and
// returns them in their compact form. OpenTelemetry ids stay in the attributes.
func splitCorrelation(attrs []slog.Attr) (requestID, caller string, rest []slog.Attr) {
	rest = make([]slog.Attr, 0, len(attrs))

	for _, attr := range attrs {
		if attr.Value.Kind() != slog.KindGroup {
			rest = append(rest, attr)

			continue
		}

		switch attr.Key {
		case callerGroupKey:
			var id, role string

			for _, a := range attr.Value.Group() {
				switch a.Key {
				case "id":
					id = a.Value.String()
				case "role":
					role = a.Value.String()
				}
			}

			caller = role + ":" + id
		case traceGroupKey:
			var otel []slog.Attr

			for _, a := range attr.Value.Group() {
				if a.Key == "id" {
					requestID = a.Value.String()

					continue
				}

				otel = append(otel, a)
			}

			if len(otel) > 0 {
				rest = append(rest, slog.Attr{Key: attr.Key, Value: slog.GroupValue(otel...)})
			}
		default:
			rest = append(rest, attr)
		}
	}

	return requestID, caller, rest
}

func renderAttrs(out *strings.Builder, prefix string, attrs []slog.Attr) {
	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			renderAttrs(out, prefix+attr.Key+".", attr.Value.Group())

			continue
		}

		out.WriteString(" " + prefix + attr.Key)
		out.WriteString("=" + ansiCodeGray + attr.Value.String() + ansiCodeReset)
	}
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)

	return &clone
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	clone := *h
	clone.groups = append(slices.Clip(h.groups), name)

	return &clone
}

// Enabled implements slog.Handler.Enabled. It admits the lowest of the handler
// and package levels; Handle applies the level of the record's package.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := h.Level.Level()

	for _, l := range h.PkgLevels {
		minLevel = min(minLevel, l)
	}

	return minLevel <= level
}
