package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/isb-lang/isb/internal/configuration"
)

func TestLoggerGatesByLevelAndArea(t *testing.T) {
	cfg := configuration.New()
	var buf bytes.Buffer
	l := New(cfg, &buf)
	l.level = Warn
	l.areas[AreaVM] = true
	l.areas[AreaLexer] = false

	l.Debug(AreaVM, "should not appear, below level")
	l.Warn(AreaLexer, "should not appear, area disabled")
	l.Error(AreaVM, "boom at ip=%d", 42)

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Fatalf("expected gated messages to be suppressed, got: %s", out)
	}
	if !strings.Contains(out, "boom at ip=42") {
		t.Fatalf("expected the Error/AreaVM message to appear, got: %s", out)
	}
}

func TestLoggerDisabledSuppressesEverything(t *testing.T) {
	cfg := configuration.New()
	var buf bytes.Buffer
	l := New(cfg, &buf)
	l.enabled = false
	l.Error(AreaGeneral, "should never appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output when disabled, got: %s", buf.String())
	}
}
