// Package ui provides terminal output helpers for reelmark: colored status
// lines, a spinner for cloud calls, progress bars and simple tables.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var (
	Success = color.New(color.FgGreen).SprintFunc()
	Error   = color.New(color.FgRed).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()

	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
)

// Out is where every printer writes. Tests swap it for a buffer.
var Out io.Writer = os.Stdout

// Verbose enables PrintVerbose output. Set from the --verbose flag.
var Verbose bool

func PrintSuccess(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(Out, "%s %s\n", Success(IconSuccess), msg)
}

func PrintError(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(Out, "%s %s\n", Error(IconError), msg)
}

func PrintWarning(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(Out, "%s  %s\n", Warning(IconWarning), msg)
}

func PrintInfo(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(Out, "%s  %s\n", Info(IconInfo), msg)
}

func PrintDim(format string, a ...interface{}) {
	fmt.Fprintln(Out, Dim(fmt.Sprintf(format, a...)))
}

func PrintVerbose(format string, a ...interface{}) {
	if !Verbose {
		return
	}
	PrintDim("  "+format, a...)
}

func PrintVerboseSuccess(format string, a ...interface{}) {
	if !Verbose {
		return
	}
	fmt.Fprintf(Out, "  %s %s\n", Success(IconSuccess), Dim(fmt.Sprintf(format, a...)))
}

func PrintSectionHeader(emoji, text string) {
	fmt.Fprintf(Out, "\n%s %s\n", emoji, Bold(text))
}

func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(Out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(Out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

type Spinner struct {
	writer  io.Writer
	message string
	active  bool
}

func NewSpinner(message string) *Spinner {
	return &Spinner{
		writer:  Out,
		message: message,
		active:  false,
	}
}

func (s *Spinner) Start() {
	s.active = true
	fmt.Fprintf(s.writer, "  %s %s...", Info("⏳"), s.message)
}

func (s *Spinner) Stop() {
	if s.active {
		fmt.Fprintf(s.writer, "\r  %s %s\n", Success(IconSuccess), s.message)
		s.active = false
	}
}

func (s *Spinner) Fail() {
	if s.active {
		fmt.Fprintf(s.writer, "\r  %s %s\n", Error(IconError), s.message)
		s.active = false
	}
}

func PrintDivider() {
	fmt.Fprintln(Out, Dim(strings.Repeat("━", 50)))
}

// PrintTable prints rows under a bold header, columns aligned.
func PrintTable(header []string, rows [][]string) {
	w := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	bold := make([]string, len(header))
	for i, h := range header {
		bold[i] = Bold(h)
	}
	fmt.Fprintln(w, "  "+strings.Join(bold, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, "  "+strings.Join(row, "\t"))
	}
	w.Flush()
}

// PrintSummaryTable prints key/value pairs in the given order.
func PrintSummaryTable(keys []string, items map[string]string) {
	maxKeyLen := 0
	for _, key := range keys {
		if len(key) > maxKeyLen {
			maxKeyLen = len(key)
		}
	}

	PrintDivider()
	for _, key := range keys {
		padding := strings.Repeat(" ", maxKeyLen-len(key))
		fmt.Fprintf(Out, "  %s:%s %s\n", Bold(key), padding, items[key])
	}
	PrintDivider()
}

func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Truncate shortens s to maxLen runes, keeping the tail.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen || maxLen < 4 {
		return s
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

// PrintErrorWithSolution prints a failed operation with its suggested fix.
func PrintErrorWithSolution(operation, problem, solution, alternative string) {
	fmt.Fprintln(Out)
	PrintError("%s failed: %s", operation, problem)
	if solution != "" {
		fmt.Fprintf(Out, "🔧 %s: %s\n", Bold("Solution"), solution)
	}
	if alternative != "" {
		fmt.Fprintf(Out, "💡 %s: %s\n", Bold("Alternative"), alternative)
	}
	fmt.Fprintln(Out)
}

// PrintChanges prints the counts of a bookmark diff.
func PrintChanges(added, removed, changed, unchanged int) {
	PrintSectionHeader("🔖", "BOOKMARK CHANGES")
	if added > 0 {
		fmt.Fprintf(Out, "  %s %d added\n", Success("+"), added)
	}
	if removed > 0 {
		fmt.Fprintf(Out, "  %s %d removed\n", Error("-"), removed)
	}
	if changed > 0 {
		fmt.Fprintf(Out, "  %s %d changed\n", Warning("~"), changed)
	}
	if unchanged > 0 {
		fmt.Fprintf(Out, "  %s %d unchanged\n", Info("="), unchanged)
	}
	fmt.Fprintln(Out)
}
