package errors

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type style string

const (
	styleReset style = "\033[0m"
	styleError style = "\033[1;31m"
	styleCode  style = "\033[1m"
	styleLink  style = "\033[36m"
	styleDim   style = "\033[90m"
)

var colorEnabled = true

// DisableColors turns off ANSI styling in Format and PrintError.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI styling back on.
func EnableColors() { colorEnabled = true }

func (s style) paint(text string) string {
	if !colorEnabled || text == "" {
		return text
	}
	return string(s) + text + string(styleReset)
}

// Format renders the error as a multi-line diagnostic:
//
//	error[R202]: Unknown view type
//	  --> demo.yaml:3:11
//	  |
//	1 | views:
//	2 |   - name: evens
//	3 |     type: filtr
//	  |           ^
//	  = hint: Use one of: filter, sort
func (e *Error) Format() string {
	var b strings.Builder

	head := "error"
	if e.Code != "" {
		head += "[" + e.Code + "]"
	}
	fmt.Fprintf(&b, "%s%s\n", styleError.paint(head), styleCode.paint(": "+e.Message))

	width := 1
	if e.Location != nil {
		last := e.Location.Line
		if len(e.Context) > 0 {
			last = e.firstLine + len(e.Context) - 1
		}
		width = len(strconv.Itoa(last))
		fmt.Fprintf(&b, "%*s%s %s\n", width+1, "", styleLink.paint("-->"), e.Location)
		e.writeContext(&b, width)
	}

	gutter := strings.Repeat(" ", width+1) + styleDim.paint("=") + " "
	for _, line := range wrapText(e.Detail, 72) {
		b.WriteString(gutter + line + "\n")
	}
	if e.Wrapped != nil {
		b.WriteString(gutter + "cause: " + e.Wrapped.Error() + "\n")
	}
	if e.Suggestion != "" {
		b.WriteString(gutter + styleLink.paint("hint:") + " " + e.Suggestion + "\n")
	}
	return b.String()
}

func (e *Error) writeContext(b *strings.Builder, width int) {
	if len(e.Context) == 0 {
		return
	}
	bar := styleDim.paint("|")
	blank := strings.Repeat(" ", width)
	fmt.Fprintf(b, "%s %s\n", blank, bar)

	start := e.firstLine
	for i, text := range e.Context {
		n := start + i
		fmt.Fprintf(b, "%*d %s %s\n", width, n, bar, text)
		if n == e.Location.Line && e.Location.Column > 0 {
			pad := strings.Repeat(" ", e.Location.Column-1)
			fmt.Fprintf(b, "%s %s %s%s\n", blank, bar, pad, styleError.paint("^"))
		}
	}
}

// FormatCompact renders the error on one line, prefixed by its location.
func (e *Error) FormatCompact() string {
	if e.Location == nil {
		return e.Error()
	}
	return e.Location.String() + ": " + e.Error()
}

// wrapText greedily packs words into lines of at most width bytes. A single
// word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, w := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(w) > width {
			lines = append(lines, w)
			continue
		}
		*last += " " + w
	}
	return lines
}

// PrintError writes err to w. An *Error anywhere in the chain gets the full
// diagnostic; anything else is printed on one line.
func PrintError(w io.Writer, err error) {
	var e *Error
	if errors.As(err, &e) {
		fmt.Fprint(w, e.Format())
		return
	}
	fmt.Fprintf(w, "%s %s\n", styleError.paint("error:"), err)
}
