// Package telemetry wires structured logging through log/slog using a
// tint handler, matching the terse, boundary-wrapped error style of the
// teacher's docker and CLI code.
package telemetry

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New builds a slog.Logger writing leveled, colorized lines to w (os.Stderr
// when w is nil). debug enables slog.LevelDebug; otherwise slog.LevelInfo.
func New(w *os.File, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	return slog.New(handler)
}

// Default is process-wide, set by cmd/hostctl's entrypoint; packages that
// can't take a logger by construction (deep in call chains triggered from
// tests) fall back to it.
var Default = New(nil, false)
