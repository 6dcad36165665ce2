// Package pipeline executes external commands, singly or chained by pipes,
// with output capture, console teeing and line matching, plus the log-file
// framing used around every build step.
package pipeline

import (
	"fmt"
	"io"
	"strings"
)

// Output is the explicit output context for one run. It owns the console
// echo policy and the current redirection target that used to be ambient
// state in older bots: every component that prints or runs commands gets a
// reference to the run's single Output.
type Output struct {
	// Console is the user's terminal, normally os.Stdout.
	Console io.Writer

	// RunLog is the bot's own run log. When stdout is already redirected to
	// a file, RunLog and Console are the same writer.
	RunLog io.Writer

	// EchoConsole duplicates captured command output to the console
	// (-l flag). It is honored only while neither the run log nor the
	// current sink already is the console, so no line prints twice.
	EchoConsole bool

	// redirect, when set, receives all Log output instead of the console.
	// It is set for the duration of one framed internal operation.
	redirect io.Writer
}

// Log writes a message to the current output target, appending a newline
// if the message lacks one.
func (o *Output) Log(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	if o.redirect != nil {
		_, _ = io.WriteString(o.redirect, msg)
		if o.EchoConsole && o.RunLog != o.Console {
			_, _ = io.WriteString(o.Console, msg)
		}
		return
	}

	_, _ = io.WriteString(o.Console, msg)
	if o.RunLog != nil && o.RunLog != o.Console {
		_, _ = io.WriteString(o.RunLog, msg)
	}
}

// kind writes a classified message (ERROR, NOTE, HINT), terminating it with
// a dot unless it already ends in punctuation.
func (o *Output) kind(kind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !strings.ContainsRune(".:!?", rune(msg[len(msg)-1])) {
		msg += "."
	}
	o.Log("%s: %s", kind, msg)
}

// Note writes a NOTE-classified message.
func (o *Output) Note(format string, args ...interface{}) {
	o.kind("NOTE", format, args...)
}

// Error writes an ERROR-classified message.
func (o *Output) Error(format string, args ...interface{}) {
	o.kind("ERROR", format, args...)
}

// Hint writes a HINT-classified message.
func (o *Output) Hint(format string, args ...interface{}) {
	o.kind("HINT", format, args...)
}

// pushRedirect points Log at w and returns the previous target for restore.
func (o *Output) pushRedirect(w io.Writer) io.Writer {
	prev := o.redirect
	o.redirect = w
	return prev
}

func (o *Output) popRedirect(prev io.Writer) {
	o.redirect = prev
}

// Redirect returns the current redirection target, nil outside framed
// internal operations. Commands run without an explicit sink write there.
func (o *Output) Redirect() io.Writer { return o.redirect }
