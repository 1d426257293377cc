package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/isb-lang/isb/internal/engine"
	"github.com/isb-lang/isb/internal/history"
	"github.com/isb-lang/isb/internal/logger"
)

// shell drives an interactive ISB REPL session: spec.md §6.2's `] `
// primary / `> ` continuation prompts and `quit`/`list`/`clear`
// commands, layered over engine.Repl's incremental-compilation cycle.
//
// Grounded on the teacher's `pkg/tinyos` command dispatch
// (`commands_core.go`'s `case "clear":`, `commands_system.go`'s
// `case "quit", "exit":`) for the command vocabulary, and on
// `other_examples/GaryLuck-basic-plus-1` for using `golang.org/x/term`
// directly against the controlling terminal rather than a line-editing
// library (none appears anywhere in the retrieved corpus).
type shell struct {
	repl *engine.Repl
	hist *history.Store
	log  *logger.Logger

	stdin  *os.File
	stdout *os.File
	stderr *os.File

	interactive bool
	scanner     *bufio.Scanner

	// pending holds the lines of the fragment currently being submitted,
	// so the whole fragment (not just its last line) is recorded.
	pending []string
}

func newShell(e *engine.Engine, hist *history.Store, log *logger.Logger, stdin, stdout, stderr *os.File) *shell {
	return &shell{
		repl:        engine.NewRepl(e),
		hist:        hist,
		log:         log,
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		interactive: isatty.IsTerminal(stdin.Fd()),
		scanner:     bufio.NewScanner(stdin),
	}
}

func (s *shell) run() int {
	if s.interactive {
		if oldState, err := term.MakeRaw(int(s.stdin.Fd())); err == nil {
			defer term.Restore(int(s.stdin.Fd()), oldState)
			// Raw mode disables the terminal's own line discipline;
			// read lines ourselves so Enter/Backspace still behave.
			return s.runRawLoop(oldState)
		}
	}
	return s.runLineLoop()
}

// runLineLoop drives the REPL over a plain line-buffered reader --
// used for piped/non-tty input, and as the fallback when raw mode
// can't be entered.
func (s *shell) runLineLoop() int {
	sawError := false
	s.printPrompt()
	for s.scanner.Scan() {
		if s.handleLine(s.scanner.Text()) {
			sawError = true
		}
		s.printPrompt()
	}
	fmt.Fprintln(s.stdout)
	if sawError {
		return 1
	}
	return 0
}

// runRawLoop re-implements simple line editing (printable runes,
// Backspace, Enter, Ctrl-C/Ctrl-D to quit) against a raw terminal, so
// the continuation prompt can be redrawn without the controlling
// terminal re-echoing a half-submitted line. Restored to cooked mode
// by the caller's deferred term.Restore.
func (s *shell) runRawLoop(_ *term.State) int {
	sawError := false
	reader := bufio.NewReader(s.stdin)
	var line strings.Builder

	s.printPrompt()
	for {
		r, _, err := reader.ReadRune()
		if err != nil {
			break
		}
		switch r {
		case '\r', '\n':
			fmt.Fprint(s.stdout, "\r\n")
			if s.handleLine(line.String()) {
				sawError = true
			}
			line.Reset()
			s.printPrompt()
		case 3, 4: // Ctrl-C, Ctrl-D
			fmt.Fprint(s.stdout, "\r\n")
			if sawError {
				return 1
			}
			return 0
		case 127, 8: // Backspace/Delete
			if line.Len() > 0 {
				buf := []byte(line.String())
				line.Reset()
				line.Write(buf[:len(buf)-1])
				fmt.Fprint(s.stdout, "\b \b")
			}
		default:
			line.WriteRune(r)
			fmt.Fprint(s.stdout, string(r))
		}
	}
	fmt.Fprint(s.stdout, "\r\n")
	if sawError {
		return 1
	}
	return 0
}

func (s *shell) printPrompt() {
	if !s.interactive {
		return
	}
	if s.repl.Pending() {
		fmt.Fprint(s.stdout, "> ")
	} else {
		fmt.Fprint(s.stdout, "] ")
	}
}

// handleLine dispatches a command or submits line as a fragment,
// reporting whether it surfaced a compile/runtime error.
func (s *shell) handleLine(line string) bool {
	switch normalizeCommand(line) {
	case "quit":
		os.Exit(0)
	case "list":
		s.printListing()
		return false
	case "clear":
		s.repl.Engine.Reset()
		fmt.Fprintln(s.stdout, "cleared")
		return false
	}

	start := time.Now()
	s.pending = append(s.pending, line)
	outcome := s.repl.SubmitLine(line)

	if outcome.NeedsMore {
		return false
	}

	source := strings.Join(s.pending, "\n")
	s.pending = nil
	if s.hist != nil {
		errMsg := ""
		hadError := len(outcome.Diagnostics) > 0
		if hadError {
			errMsg = string(outcome.Diagnostics[len(outcome.Diagnostics)-1].Code)
		}
		if _, err := s.hist.Append(source, !hadError, errMsg); err != nil {
			s.log.Warn(logger.AreaGeneral, "failed to record history: %v", err)
		}
	}

	if len(outcome.Diagnostics) > 0 {
		if outcome.Ran {
			printRuntimeDiagnostics(s.stdout, s.repl.Engine.CodeLines(), outcome.Diagnostics)
		} else {
			printCompileDiagnostics(s.stdout, outcome.Diagnostics)
		}
		return true
	}
	if outcome.HasValue {
		fmt.Fprintf(s.stdout, "%s\r\n", outcome.Value.String())
	}
	if outcome.Ran {
		fmt.Fprintf(s.stdout, "(ran %s, %s instructions)\r\n",
			humanize.Time(start),
			humanize.Comma(int64(s.repl.Engine.IP())))
	}
	return false
}

func (s *shell) printListing() {
	for i, l := range s.repl.Engine.CodeLines() {
		fmt.Fprintf(s.stdout, "%4d %s\r\n", i, l)
	}
}

// normalizeCommand recognizes quit/list/clear case-insensitively with
// an optional trailing "()", per spec.md §6.2.
func normalizeCommand(line string) string {
	t := strings.TrimSpace(line)
	t = strings.TrimSuffix(t, "()")
	return strings.ToLower(t)
}
