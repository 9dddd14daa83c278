package tui

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Projector palette: amber accent on a neutral base, adaptive for light terminals.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	colorGood   = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	colorBad    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "243", Dark: "246"}
	colorText   = lipgloss.AdaptiveColor{Light: "235", Dark: "252"}
	colorFrame  = lipgloss.AdaptiveColor{Light: "250", Dark: "238"}
)

var (
	// PathStyle renders media file names in diff summaries.
	PathStyle = lipgloss.NewStyle().Foreground(colorAccent)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

var (
	IconSuccess = lipgloss.NewStyle().Foreground(colorGood).Render("✓")
	IconError   = lipgloss.NewStyle().Foreground(colorBad).Render("✗")
	IconWarning = lipgloss.NewStyle().Foreground(colorAccent).Render("!")
	IconInfo    = mutedStyle.Render("i")
	IconArrow   = mutedStyle.Render("▸")
	IconBullet  = mutedStyle.Render("·")
)

// Theme builds the huh theme used by every reelmark prompt.
func Theme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(colorFrame)
	t.Focused.Card = t.Focused.Base
	t.Focused.Title = t.Focused.Title.Foreground(colorAccent).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(colorMuted)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(colorBad)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(colorBad)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(colorAccent)
	t.Focused.MultiSelectSelector = t.Focused.MultiSelectSelector.Foreground(colorAccent)
	t.Focused.Option = t.Focused.Option.Foreground(colorText)
	t.Focused.UnselectedOption = t.Focused.UnselectedOption.Foreground(colorText)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(colorGood)
	t.Focused.SelectedPrefix = t.Focused.SelectedPrefix.Foreground(colorGood)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Foreground(lipgloss.Color("0")).Background(colorAccent).Bold(true)
	t.Focused.BlurredButton = t.Focused.BlurredButton.Foreground(colorText).Background(lipgloss.Color("0"))

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Card = t.Blurred.Base
	t.Blurred.Title = t.Blurred.Title.Foreground(colorMuted).Bold(false)

	return t
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// accessible reports whether prompts should fall back to plain line input:
// NO_COLOR, a dumb terminal, or output that isn't a terminal.
func accessible() bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return true
	}
	return !isTerminal()
}

// ApplyTheme applies the reelmark theme to a form
func ApplyTheme(form *huh.Form) *huh.Form {
	if accessible() {
		return form.WithAccessible(true)
	}
	return form.WithTheme(Theme())
}
