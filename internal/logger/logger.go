// Package logger implements area/level-gated logging over stdlib `log`,
// grounded on the teacher's `pkg/logger` (a level + per-area enabled-bit
// logger backed by a rotated log file), simplified to a single-process
// interpreter's needs: no atomic enabled-bits (there's no concurrent
// writer contending for them), no file rotation (a CLI run's log is
// bounded by the process lifetime, not a long-lived server's), and
// configuration read once at construction from an
// *configuration.Config rather than a global singleton.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/isb-lang/isb/internal/configuration"
)

// Level is a logging severity, ordered low to high.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{Debug: "DEBUG", Info: "INFO", Warn: "WARN", Error: "ERROR"}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

func parseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return Debug
	case "WARN":
		return Warn
	case "ERROR":
		return Error
	default:
		return Info
	}
}

// Area names a logging subsystem, so each can be gated independently
// -- e.g. enabling `vm` tracing without also printing lexer chatter.
type Area string

const (
	AreaLexer    Area = "lexer"
	AreaParser   Area = "parser"
	AreaCompiler Area = "compiler"
	AreaVM       Area = "vm"
	AreaRepl     Area = "repl"
	AreaConfig   Area = "config"
	AreaGeneral  Area = "general"
)

// Logger writes leveled, area-gated messages to an underlying io.Writer.
type Logger struct {
	out     *log.Logger
	level   Level
	areas   map[Area]bool
	enabled bool
}

// New builds a Logger reading its enabled flag, minimum level, and
// per-area toggles from cfg's `[Logging]` section, writing to w.
func New(cfg *configuration.Config, w io.Writer) *Logger {
	l := &Logger{
		out:     log.New(w, "", log.LstdFlags),
		level:   parseLevel(cfg.GetString("Logging", "level", "INFO")),
		enabled: cfg.GetBool("Logging", "enabled", true),
		areas:   make(map[Area]bool),
	}
	for _, area := range []Area{AreaLexer, AreaParser, AreaCompiler, AreaVM, AreaRepl, AreaConfig, AreaGeneral} {
		key := fmt.Sprintf("log_%s", string(area))
		l.areas[area] = cfg.GetBool("Logging", key, true)
	}
	return l
}

func (l *Logger) enabledFor(area Area, level Level) bool {
	return l.enabled && level >= l.level && l.areas[area]
}

func (l *Logger) log(area Area, level Level, format string, args ...interface{}) {
	if !l.enabledFor(area, level) {
		return
	}
	l.out.Printf("[%s] [%s] %s", level, area, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(area Area, format string, args ...interface{}) { l.log(area, Debug, format, args...) }
func (l *Logger) Info(area Area, format string, args ...interface{})  { l.log(area, Info, format, args...) }
func (l *Logger) Warn(area Area, format string, args ...interface{})  { l.log(area, Warn, format, args...) }
func (l *Logger) Error(area Area, format string, args ...interface{}) { l.log(area, Error, format, args...) }
