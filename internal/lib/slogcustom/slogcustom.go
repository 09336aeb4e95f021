// Package slogcustom is a compact, colored slog handler for console output.
package slogcustom

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"

	"github.com/fatih/color"
)

type CustomHandler struct {
	l     *log.Logger
	level slog.Leveler
	attrs []slog.Attr
	group string
}

func NewCustomHandler(out io.Writer, level slog.Leveler) *CustomHandler {
	return &CustomHandler{
		l:     log.New(out, "", 0),
		level: level,
	}
}

// New builds a logger writing to out at the named level (debug, info, warn, error).
func New(out io.Writer, level string) *slog.Logger {
	return slog.New(NewCustomHandler(out, ParseLevel(level)))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.HiBlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	}

	var b strings.Builder
	write := func(a slog.Attr) {
		key := a.Key
		if c.group != "" {
			key = c.group + "." + key
		}
		b.WriteString(color.GreenString(key) + "=" + fmt.Sprint(a.Value.Any()) + " ")
	}
	for _, a := range c.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	c.l.Println(
		r.Time.Format("15:04:05.000"),
		level,
		r.Message,
		b.String(),
	)
	return nil
}

func (c *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = append(append([]slog.Attr(nil), c.attrs...), attrs...)
	return &next
}

func (c *CustomHandler) WithGroup(name string) slog.Handler {
	next := *c
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}

func (c *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= c.level.Level()
}
