package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Out and ErrOut are swapped in tests.
var (
	Out    io.Writer = os.Stdout
	ErrOut io.Writer = os.Stderr
)

// Header prints text with an underline sized to its cell width, so wide
// Hangul titles are fully underlined.
func Header(text string) {
	fmt.Fprintf(Out, "\n%s%s%s\n", Bold+Cyan, text, Reset)
	fmt.Fprintln(Out, strings.Repeat("─", min(runewidth.StringWidth(text)+4, 80)))
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func Success(text string) {
	fmt.Fprintf(Out, "%s✓%s %s\n", Green, Reset, text)
}

func Error(text string) {
	fmt.Fprintf(ErrOut, "%s✗%s %s\n", Red, Reset, text)
}

func Warn(text string) {
	fmt.Fprintf(Out, "%s!%s %s\n", Yellow, Reset, text)
}

func Info(label, value string) {
	fmt.Fprintf(Out, "  %s%-16s%s %s\n", Dim, label, Reset, value)
}

// ClearLine erases the current terminal line of w, such as an activity
// indicator, and returns the cursor to column 0.
func ClearLine(w io.Writer) {
	fmt.Fprint(w, "\n\033[K")
}

// NotSet renders an empty value as a dim placeholder.
func NotSet(v string) string {
	if v == "" {
		return Dim + "(not set)" + Reset
	}
	return v
}

// Clock formats a message timestamp as hour:minute in local time.
func Clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}
