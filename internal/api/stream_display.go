package api

import (
	"fmt"
	"io"
	"strings"

	"resumechat/internal/display"
)

// StreamDisplay prints a streamed answer for the ask command: an activity
// line until the first text arrives, then the answer indented under it.
type StreamDisplay struct {
	out io.Writer
	// interactive enables the activity line; it is skipped when output is
	// piped.
	interactive bool

	activityUp  bool
	started     bool
	atLineStart bool
}

func NewStreamDisplay(out io.Writer) *StreamDisplay {
	if out == nil {
		out = display.Out
	}
	return &StreamDisplay{out: out, interactive: display.IsTerminal(out), atLineStart: true}
}

// Start shows the activity line.
func (d *StreamDisplay) Start(activity string) {
	if !d.interactive {
		return
	}
	fmt.Fprintf(d.out, "  %s⠋%s %s%s%s", display.Yellow, display.Reset, display.Dim, activity, display.Reset)
	d.activityUp = true
}

// HandleText is the StreamCallback for StreamChat.
func (d *StreamDisplay) HandleText(text string) {
	if text == "" {
		return
	}
	if d.activityUp {
		d.clearActivity()
	}
	d.started = true

	var b strings.Builder
	for _, r := range text {
		if d.atLineStart && r != '\n' {
			b.WriteString("  ")
			d.atLineStart = false
		}
		b.WriteRune(r)
		if r == '\n' {
			d.atLineStart = true
		}
	}
	fmt.Fprint(d.out, b.String())
}

// Finish ends the answer block. It is safe to call after an error.
func (d *StreamDisplay) Finish() {
	if d.activityUp {
		d.clearActivity()
	}
	if d.started && !d.atLineStart {
		fmt.Fprintln(d.out)
		d.atLineStart = true
	}
}

// Started reports whether any answer text was printed.
func (d *StreamDisplay) Started() bool {
	return d.started
}

func (d *StreamDisplay) clearActivity() {
	display.ClearLine(d.out)
	d.activityUp = false
}
