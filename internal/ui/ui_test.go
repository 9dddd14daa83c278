package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevColor, prevVerbose := Out, color.NoColor, Verbose
	Out = &buf
	color.NoColor = true
	t.Cleanup(func() {
		Out = prevOut
		color.NoColor = prevColor
		Verbose = prevVerbose
	})
	return &buf
}

func TestPrinters(t *testing.T) {
	buf := capture(t)

	PrintSuccess("uploaded %d", 3)
	PrintError("failed %s", "x")
	PrintWarning("careful")
	PrintInfo("note")

	out := buf.String()
	for _, want := range []string{"✓ uploaded 3", "✗ failed x", "careful", "note"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintVerbose(t *testing.T) {
	buf := capture(t)

	Verbose = false
	PrintVerbose("hidden")
	PrintVerboseSuccess("hidden too")
	if buf.Len() != 0 {
		t.Errorf("verbose output printed while disabled: %q", buf.String())
	}

	Verbose = true
	PrintVerbose("shown %d", 1)
	if !strings.Contains(buf.String(), "shown 1") {
		t.Errorf("verbose output missing: %q", buf.String())
	}
}

func TestPrintTable(t *testing.T) {
	buf := capture(t)

	PrintTable([]string{"ID", "TITLE"}, [][]string{
		{"a", "Intro"},
		{"long-id", "Credits"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if strings.Index(lines[1], "Intro") != strings.Index(lines[2], "Credits") {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestPrintErrorWithSolution(t *testing.T) {
	buf := capture(t)

	PrintErrorWithSolution("Sync", "No cloud provider configured", "run reelmark sync up --provider s3", "")

	out := buf.String()
	if !strings.Contains(out, "Sync failed: No cloud provider configured") {
		t.Errorf("missing problem line:\n%s", out)
	}
	if !strings.Contains(out, "Solution: run reelmark sync up") {
		t.Errorf("missing solution line:\n%s", out)
	}
	if strings.Contains(out, "Alternative") {
		t.Errorf("empty alternative should be skipped:\n%s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1024:    "1.00 KB",
		1 << 20: "1.00 MB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("/media/videos/movie.mkv", 12); got != "...movie.mkv" {
		t.Errorf("got %q", got)
	}
}
