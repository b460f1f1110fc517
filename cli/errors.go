package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/opal-lang/msci/core/diag"
	"github.com/opal-lang/msci/runtime/compiler"
	"github.com/opal-lang/msci/runtime/syntax"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "usage", "io", "compile"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// errDiagnostics is returned when scripts compiled with diagnostics. They
// have already been printed.
var errDiagnostics = errors.New("scripts have errors")

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil || errors.Is(err, errDiagnostics) {
		return
	}

	var cliErr *CLIError
	var internal *compiler.InternalError
	var loadErr *syntax.LoadError
	switch {
	case errors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case errors.As(err, &internal):
		fprintf(w, "%s%s\n", Colorize("Internal error: ", ColorRed, useColor), internal.Violation.Error())
		fprintf(w, "%s\n", Colorize("This is a compiler bug; please report it with the script that triggered it.", ColorGray, useColor))
	case errors.As(err, &loadErr):
		fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), loadErr.Error())
		fprintf(w, "%s\n", Colorize("Hint: check the table against the builtin one (msci syntax)", ColorYellow, useColor))
	default:
		fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// FormatDiagnostics prints the diagnostics of one script, one per entry,
// with the offending line underlined.
func FormatDiagnostics(w io.Writer, path string, diags []diag.Diagnostic, useColor bool) {
	for _, d := range diags {
		head, rest, _ := strings.Cut(d.Format(), "\n")
		fprintf(w, "%s:%s %s\n", Colorize(path, ColorCyan, useColor), head, Colorize("["+d.Kind.String()+"]", ColorGray, useColor))
		if rest != "" {
			fprintf(w, "%s\n", rest)
		}
	}
}

func ioError(action, path string, err error) error {
	return &CLIError{
		Type:    "io",
		Message: fmt.Sprintf("cannot %s %s", action, path),
		Details: err.Error(),
	}
}
