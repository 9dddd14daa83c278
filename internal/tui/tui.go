// Package tui provides interactive terminal forms built on charmbracelet/huh:
// confirming a download that would replace local bookmarks, choosing a backup
// and picking bookmarks to remove.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/diff"
)

// ConfirmReplace shows what a downloaded backup would change and asks before
// it replaces the local collection.
func ConfirmReplace(source string, d *diff.BookmarkDiff) (bool, error) {
	var confirm bool

	form := ApplyTheme(huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Replace local bookmarks with %s?", source)).
				Description(describeDiff(d)).
				Affirmative("Replace").
				Negative("Keep local").
				Value(&confirm),
		),
	))

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirm, nil
}

// ConfirmPrune asks before deleting cloud backups.
func ConfirmPrune(names []string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}

	var confirm bool
	form := ApplyTheme(huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d cloud backups?", len(names))).
				Description(summarizeNames(names, 5)).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirm),
		),
	))

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirm, nil
}

// SelectBackup presents a selection form to choose a backup file
func SelectBackup(backups []string) (string, error) {
	if len(backups) == 0 {
		return "", fmt.Errorf("no backups available")
	}

	var selected string

	var options []huh.Option[string]
	for _, b := range backups {
		options = append(options, huh.NewOption(b, b))
	}

	form := ApplyTheme(huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select backup").
				Options(options...).
				Value(&selected),
		),
	))

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

// PickBookmarks presents a multi-select of bookmarks; nothing is preselected.
func PickBookmarks(title string, list []bookmark.Bookmark) ([]bookmark.Bookmark, error) {
	if len(list) == 0 {
		return nil, nil
	}

	var selected []string
	byID := make(map[string]bookmark.Bookmark, len(list))

	var options []huh.Option[string]
	for _, b := range list {
		byID[b.ID] = b
		options = append(options, huh.NewOption(formatBookmarkLabel(b), b.ID))
	}

	form := ApplyTheme(huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title(title).
				Description("Space to toggle, Enter to confirm, / to filter").
				Options(options...).
				Height(20).
				Value(&selected),
		),
	))

	if err := form.Run(); err != nil {
		return nil, err
	}

	var result []bookmark.Bookmark
	for _, id := range selected {
		if b, ok := byID[id]; ok {
			result = append(result, b)
		}
	}

	return result, nil
}

// formatBookmarkLabel creates a display label for a bookmark
func formatBookmarkLabel(b bookmark.Bookmark) string {
	file := filepath.Base(b.Filepath)
	if len(file) > 40 {
		file = "..." + file[len(file)-37:]
	}

	title := b.Title
	if title == "" {
		title = "(untitled)"
	}

	return fmt.Sprintf("[%s] %s - %s", bookmark.FormatTimestamp(b.Timestamp), title, file)
}

func describeDiff(d *diff.BookmarkDiff) string {
	if d == nil || !d.HasChanges() {
		return "No changes: the backup matches your local bookmarks"
	}

	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%s %d added", IconArrow, n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%s %d removed", IconArrow, n))
	}
	if n := len(d.Changed); n > 0 {
		parts = append(parts, fmt.Sprintf("%s %d changed", IconArrow, n))
	}
	for _, fc := range d.GetTopFiles(3) {
		parts = append(parts, fmt.Sprintf("%s %s %+d", IconBullet, PathStyle.Render(filepath.Base(fc.Filepath)), fc.Delta))
	}
	return strings.Join(parts, "\n")
}

func summarizeNames(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, "\n")
	}
	return strings.Join(names[:max], "\n") + fmt.Sprintf("\n... and %d more", len(names)-max)
}
