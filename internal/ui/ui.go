package ui

import (
	"fmt"
	"io"
)

// UI represents the command output honoring --quiet and --verbose.
type UI struct {
	Verbose bool
	Quiet   bool
	out     io.Writer
	spinner *Spinner
}

// NewUI creates a new UI instance writing to out.
func NewUI(out io.Writer, verbose, quiet bool) *UI {
	return &UI{
		Verbose: verbose,
		Quiet:   quiet,
		out:     out,
	}
}

// Printf prints formatted output if not in quiet mode
func (u *UI) Printf(format string, args ...interface{}) {
	if !u.Quiet {
		fmt.Fprintf(u.out, format, args...)
	}
}

// Println prints a line if not in quiet mode
func (u *UI) Println(args ...interface{}) {
	if !u.Quiet {
		fmt.Fprintln(u.out, args...)
	}
}

// Print writes s unconditionally. Query results and generated SQL go
// through here so --quiet still yields them.
func (u *UI) Print(s string) {
	fmt.Fprint(u.out, s)
}

// VerbosePrintf prints only in verbose mode
func (u *UI) VerbosePrintf(format string, args ...interface{}) {
	if u.Verbose && !u.Quiet {
		fmt.Fprintf(u.out, format, args...)
	}
}

// StartProgress starts a spinner unless quiet.
func (u *UI) StartProgress(message string) {
	if u.Quiet {
		return
	}
	u.spinner = NewSpinner(message)
	u.spinner.out = u.out
	u.spinner.Start()
}

// StopProgress stops the running spinner with a final status line.
func (u *UI) StopProgress(success bool, message string) {
	if u.spinner == nil {
		return
	}
	u.spinner.Stop(success, message)
	u.spinner = nil
}

// Success prints a success line unless quiet.
func (u *UI) Success(message string) {
	if !u.Quiet {
		fmt.Fprintf(u.out, "%s %s\n", ColorSuccess("SUCCESS:"), message)
	}
}

// Info prints an info line unless quiet.
func (u *UI) Info(message string) {
	if !u.Quiet {
		fmt.Fprintf(u.out, "%s %s\n", ColorInfo("INFO:"), message)
	}
}

// Warning prints a warning even in quiet mode.
func (u *UI) Warning(message string) {
	fmt.Fprintf(u.out, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}
