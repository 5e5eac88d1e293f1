package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{name: "config", code: "R101", wantMsg: "Invalid configuration file", wantCat: CategoryConfig},
		{name: "script", code: "R202", wantMsg: "Unknown view type", wantCat: CategoryScript},
		{name: "verify", code: "R301", wantMsg: "View diverged from recompute", wantCat: CategoryVerify},
		{name: "unknown", code: "R999", wantMsg: "Unknown error", wantCat: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("R300")
	if got, want := err.Error(), "R300: Step failed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err.Wrap(fmt.Errorf("boom"))
	if got, want := err.Error(), "R300: Step failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := Newf(CategoryCLI, "bad flag %q", "--x")
	if got, want := plain.Error(), `bad flag "--x"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrapAndIs(t *testing.T) {
	base := stderrors.New("disk on fire")
	err := fmt.Errorf("loading: %w", New("R101").Wrap(base))

	if !stderrors.Is(err, base) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !Is(err, "R101") {
		t.Error("Is should find the code through fmt wrapping")
	}
	if Is(err, "R100") {
		t.Error("Is should not match another code")
	}
	if Is(base, "R101") {
		t.Error("Is should not match a plain error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "R300") != nil {
		t.Error("FromError(nil) should be nil")
	}

	coded := New("R205")
	if got := FromError(fmt.Errorf("ctx: %w", coded), "R300"); got != coded {
		t.Error("FromError should return an existing *Error unchanged")
	}

	plain := stderrors.New("plain")
	got := FromError(plain, "R300")
	if got.Code != "R300" || got.Wrapped != plain {
		t.Errorf("FromError(plain) = %+v", got)
	}
}

func TestWithLocationReadsContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	content := "a: 1\nb: 2\nc: 3\nd: 4\ne: 5\nf: 6\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("R205").WithLocation(path, 4, 4)
	want := []string{"b: 2", "c: 3", "d: 4", "e: 5", "f: 6"}
	if strings.Join(err.Context, "|") != strings.Join(want, "|") {
		t.Errorf("Context = %q, want %q", err.Context, want)
	}

	err = New("R205").WithLocation(path, 1, 0)
	want = []string{"a: 1", "b: 2", "c: 3"}
	if strings.Join(err.Context, "|") != strings.Join(want, "|") {
		t.Errorf("Context = %q, want %q", err.Context, want)
	}

	if got := err.Location.String(); got != path+":1" {
		t.Errorf("Location = %q", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	content := "views:\n  - name: evens\n    type: filtr\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New("R202").
		WithLocation(path, 3, 11).
		WithSuggestion("Use one of: filter, sort")

	out := err.Format()
	for _, want := range []string{
		"error[R202]: Unknown view type\n",
		"  --> " + path + ":3:11\n",
		"1 | views:\n",
		"3 |     type: filtr\n  |           ^\n",
		"  = hint: Use one of: filter, sort\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not emit colors when disabled")
	}

	compact := err.FormatCompact()
	if compact != path+":3:11: R202: Unknown view type" {
		t.Errorf("FormatCompact() = %q", compact)
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, New("R100").WithDetailf("missing %s", "x.yaml"))
	if !strings.Contains(buf.String(), "error[R100]: Configuration file not found") ||
		!strings.Contains(buf.String(), "missing x.yaml") {
		t.Errorf("PrintError() = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, stderrors.New("plain failure"))
	if got := buf.String(); got != "error: plain failure\n" {
		t.Errorf("PrintError(plain) = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	want := []string{"one two", "three", "four five", "six"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText() = %q, want %q", lines, want)
	}
	if got := wrapText("a verylongword b", 4); strings.Join(got, "|") != "a|verylongword|b" {
		t.Errorf("wrapText(long word) = %q", got)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}
