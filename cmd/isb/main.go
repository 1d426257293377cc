// Command isb is the ISB command-line driver: run or compile a `.bas`
// source file or a `.asm` assembly listing non-interactively, or drop
// into an interactive REPL when no input file is given.
//
// Grounded on the teacher's root `main.go` (config-then-logger-then-run
// startup sequence) and its `flag`-free but equally linear arg handling
// style, adapted here to the standard library `flag` package -- the
// CLI-entry-point convention every retrieved example actually uses
// (no third-party CLI framework appears anywhere in the corpus).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/isb-lang/isb/internal/configuration"
	"github.com/isb-lang/isb/internal/diag"
	"github.com/isb-lang/isb/internal/engine"
	"github.com/isb-lang/isb/internal/history"
	"github.com/isb-lang/isb/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("isb", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var input, output string
	var compileOnly bool
	var configPath string
	fs.StringVar(&input, "i", "", "source (.bas) or assembly (.asm) file to run or compile")
	fs.StringVar(&input, "input", "", "source (.bas) or assembly (.asm) file to run or compile")
	fs.StringVar(&output, "o", "", "assembly output path (default stdout, with -c)")
	fs.StringVar(&output, "output", "", "assembly output path (default stdout, with -c)")
	fs.BoolVar(&compileOnly, "c", false, "emit assembly without running (source input only)")
	fs.BoolVar(&compileOnly, "compile", false, "emit assembly without running (source input only)")
	fs.StringVar(&configPath, "config", "isb.cfg", "path to the settings file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := configuration.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "isb: loading %s: %v\n", configPath, err)
		return 2
	}
	log := logger.New(cfg, stderr)

	histPath := cfg.GetString("History", "path", "isb_history.db")
	hist, err := history.Open(histPath)
	if err != nil {
		log.Warn(logger.AreaGeneral, "history store unavailable: %v", err)
		hist = nil
	}
	if hist != nil {
		defer hist.Close()
	}

	if input == "" {
		shell := newShell(engine.New("repl"), hist, log, stdin, stdout, stderr)
		return shell.run()
	}

	return runFile(input, output, compileOnly, hist, log, stdout, stderr)
}

func runFile(input, output string, compileOnly bool, hist *history.Store, log *logger.Logger, stdout, stderr *os.File) int {
	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(stderr, "isb: %v\n", err)
		return 2
	}
	source := string(data)

	e := engine.New(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))

	isAssembly := strings.EqualFold(filepath.Ext(input), ".asm")
	var ok bool
	if isAssembly {
		ok = e.ParseAssembly(source)
	} else {
		ok = e.Compile(source, false)
	}
	recordFragment(hist, log, source, ok, e)
	if !ok {
		printCompileDiagnostics(stderr, e.Diagnostics())
		return 1
	}

	if compileOnly {
		if isAssembly {
			fmt.Fprintln(stderr, "isb: -c/--compile has no effect on .asm input")
		}
		text := e.AssemblyInTextFormat()
		if output == "" {
			fmt.Fprint(stdout, text)
			return 0
		}
		if err := os.WriteFile(output, []byte(text), 0644); err != nil {
			fmt.Fprintf(stderr, "isb: writing %s: %v\n", output, err)
			return 2
		}
		return 0
	}

	// Diagnostics recorded before this point (if any, ok would already
	// be false above) are compile-time; anything Run adds from here is
	// runtime, and spec.md §6.4 formats the two differently.
	before := len(e.Diagnostics())
	terminated := e.Run(true)
	if !terminated || e.HasError() {
		printRuntimeDiagnostics(stderr, e.CodeLines(), e.Diagnostics()[before:])
		return 1
	}
	return 0
}

// printCompileDiagnostics renders compile-time diagnostics (lexer,
// parser, lowering, assembly-text parsing) per spec.md §6.4: "a range
// and human line/column," not the runtime's 0-based-line form.
func printCompileDiagnostics(w *os.File, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "Compile error: %s (line %d, column %d)\n", d.Message, d.Range.Start.Line, d.Range.Start.Column)
	}
}

// printRuntimeDiagnostics renders runtime diagnostics per spec.md §6.4:
// `Runtime error: <message> (<line>: <source-line-text>)`, <line> being
// the 0-based source line index.
func printRuntimeDiagnostics(w *os.File, lines []string, diags []diag.Diagnostic) {
	for _, d := range diags {
		lineIdx := d.Range.Start.Line - 1
		text := ""
		if lineIdx >= 0 && lineIdx < len(lines) {
			text = lines[lineIdx]
		}
		fmt.Fprintf(w, "Runtime error: %s (%d: %s)\n", d.Message, lineIdx, text)
	}
}

func recordFragment(hist *history.Store, log *logger.Logger, source string, ok bool, e *engine.Engine) {
	if hist == nil {
		return
	}
	errMsg := ""
	if !ok {
		if d, has := e.ErrorInfo(); has {
			errMsg = string(d.Code) + ": " + d.Message
		}
	}
	if _, err := hist.Append(source, ok, errMsg); err != nil {
		log.Warn(logger.AreaGeneral, "failed to record history: %v", err)
	}
}
