package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

var (
	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")

	// stdout is where the Show helpers write.
	stdout io.Writer = os.Stdout
)

// colorFunc returns a function that colors text if supported
func colorFunc(color string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, color)
		}
		return text
	}
}

// ColorEnabled reports whether stdout is a color capable terminal.
func ColorEnabled() bool {
	return supportsColor
}

// SetOutput redirects the Show helpers and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := stdout
	stdout = w
	return prev
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	if len(title)+4 > width {
		width = len(title) + 4
	}
	padding := (width - len(title) - 2) / 2

	fmt.Fprintln(stdout, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(stdout, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", width-2-padding-len(title)),
	)
	fmt.Fprintln(stdout, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError prints err with its context and any suggestions. Application
// errors carry their own suggestions; anything else gets a hint derived
// from the message.
func ShowError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(stdout, "\n%s\n", ColorError("ERROR:"))

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(stdout, "  %s %s\n", ColorDim("["+string(appErr.Code)+"]"), appErr.Message)
		for _, key := range sortedKeys(appErr.Context) {
			fmt.Fprintf(stdout, "  %s\n", ColorDim(fmt.Sprintf("%s: %v", key, appErr.Context[key])))
		}
		if appErr.Cause != nil {
			for _, line := range strings.Split(appErr.Cause.Error(), "\n") {
				fmt.Fprintf(stdout, "  %s\n", ColorDim(line))
			}
		}
		for _, s := range appErr.Suggestions {
			fmt.Fprintf(stdout, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(s))
		}
		if len(appErr.Suggestions) > 0 {
			return
		}
	} else {
		for i, line := range strings.Split(err.Error(), "\n") {
			if i == 0 {
				fmt.Fprintf(stdout, "  %s\n", line)
			} else {
				fmt.Fprintf(stdout, "  %s\n", ColorDim(line))
			}
		}
	}

	if suggestion := getSuggestion(err); suggestion != "" {
		fmt.Fprintf(stdout, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(suggestion))
	}
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(stdout, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(stdout, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(stdout, "%s %s\n", ColorInfo("INFO:"), message)
}

// Box draws a box around content
func Box(title, content string) {
	lines := strings.Split(content, "\n")
	maxLen := len(title) + 1

	for _, line := range lines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}

	fmt.Fprintf(stdout, "+- %s %s+\n",
		ColorBold(title),
		strings.Repeat("-", maxLen-len(title)-1),
	)
	for _, line := range lines {
		fmt.Fprintf(stdout, "| %s%s |\n",
			line,
			strings.Repeat(" ", maxLen-len(line)),
		)
	}
	fmt.Fprintf(stdout, "+%s+\n", strings.Repeat("-", maxLen+2))
}

// getSuggestion returns a hint for errors that do not carry their own.
func getSuggestion(err error) string {
	switch errors.GetErrorCode(err) {
	case errors.ErrCodeAuthenticationFailed:
		return "Check the user, password or key file in connection.json"
	case errors.ErrCodeSQLPermission:
		return "Ensure the session role has the necessary privileges"
	case errors.ErrCodeSQLObjectNotFound:
		return "Verify the object exists or check the current database and schema"
	case errors.ErrCodeUnsupportedByAccount:
		return "This feature is not enabled for the account or server version"
	case errors.ErrCodeMalformedVersionTag:
		return "Version tags look like V_1 or RUN_12"
	case errors.ErrCodeSQLTimeout:
		return "Raise the timeout in settings.yaml or use a larger warehouse"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"):
		return "Verify your Snowflake account identifier and network connectivity"
	case strings.Contains(lower, "syntax error"):
		return "Run 'sfds format' on the statement to spot the problem"
	default:
		return ""
	}
}
