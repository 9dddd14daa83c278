// Package diff compares two bookmark collections, typically the local store
// and a downloaded backup. It reports added, removed and changed bookmarks
// and how the per-file bookmark counts moved.
package diff

import (
	"fmt"
	"slices"
	"sort"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
)

// Change is a bookmark present on both sides with different content.
type Change struct {
	ID     string
	Old    bookmark.Bookmark
	New    bookmark.Bookmark
	Fields []string
}

// FileChange is the bookmark count delta for one media file.
type FileChange struct {
	Filepath string
	OldCount int
	NewCount int
	Delta    int
}

// BookmarkDiff describes how to get from Old to New.
type BookmarkDiff struct {
	Added          []bookmark.Bookmark
	Removed        []bookmark.Bookmark
	Changed        []Change
	UnchangedCount int
	FileChanges    map[string]FileChange
}

// Compare diffs old against new by bookmark id. Results are sorted by
// file path, then timestamp, so output is stable.
func Compare(oldList, newList []bookmark.Bookmark) *BookmarkDiff {
	d := &BookmarkDiff{
		Added:       []bookmark.Bookmark{},
		Removed:     []bookmark.Bookmark{},
		Changed:     []Change{},
		FileChanges: make(map[string]FileChange),
	}

	oldByID := make(map[string]bookmark.Bookmark, len(oldList))
	for _, b := range oldList {
		oldByID[b.ID] = b
	}
	newByID := make(map[string]bookmark.Bookmark, len(newList))
	for _, b := range newList {
		newByID[b.ID] = b
	}

	for _, nb := range newList {
		ob, exists := oldByID[nb.ID]
		if !exists {
			d.Added = append(d.Added, nb)
			continue
		}
		if fields := changedFields(ob, nb); len(fields) > 0 {
			d.Changed = append(d.Changed, Change{ID: nb.ID, Old: ob, New: nb, Fields: fields})
		} else {
			d.UnchangedCount++
		}
	}
	for _, ob := range oldList {
		if _, exists := newByID[ob.ID]; !exists {
			d.Removed = append(d.Removed, ob)
		}
	}

	oldCounts := countByFile(oldList)
	newCounts := countByFile(newList)
	for path, n := range newCounts {
		if o := oldCounts[path]; o != n {
			d.FileChanges[path] = FileChange{Filepath: path, OldCount: o, NewCount: n, Delta: n - o}
		}
	}
	for path, o := range oldCounts {
		if _, exists := newCounts[path]; !exists {
			d.FileChanges[path] = FileChange{Filepath: path, OldCount: o, Delta: -o}
		}
	}

	sortBookmarks(d.Added)
	sortBookmarks(d.Removed)
	sort.Slice(d.Changed, func(i, j int) bool {
		return less(d.Changed[i].New, d.Changed[j].New)
	})
	return d
}

func changedFields(a, b bookmark.Bookmark) []string {
	var fields []string
	if a.Title != b.Title {
		fields = append(fields, "title")
	}
	if a.Timestamp != b.Timestamp {
		fields = append(fields, "timestamp")
	}
	if a.Filepath != b.Filepath {
		fields = append(fields, "filepath")
	}
	if a.Description != b.Description {
		fields = append(fields, "description")
	}
	if !slices.Equal(a.Tags, b.Tags) {
		fields = append(fields, "tags")
	}
	if !a.ModifiedAt().Equal(b.ModifiedAt()) {
		fields = append(fields, "updatedAt")
	}
	return fields
}

func countByFile(list []bookmark.Bookmark) map[string]int {
	counts := make(map[string]int)
	for _, b := range list {
		counts[b.Filepath]++
	}
	return counts
}

func less(a, b bookmark.Bookmark) bool {
	if a.Filepath != b.Filepath {
		return a.Filepath < b.Filepath
	}
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.ID < b.ID
}

func sortBookmarks(list []bookmark.Bookmark) {
	sort.Slice(list, func(i, j int) bool { return less(list[i], list[j]) })
}

// HasChanges returns true if the collections differ.
func (d *BookmarkDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// GetTopFiles returns the n files whose bookmark count moved the most.
func (d *BookmarkDiff) GetTopFiles(n int) []FileChange {
	changes := make([]FileChange, 0, len(d.FileChanges))
	for _, c := range d.FileChanges {
		changes = append(changes, c)
	}

	sort.Slice(changes, func(i, j int) bool {
		absI, absJ := abs(changes[i].Delta), abs(changes[j].Delta)
		if absI != absJ {
			return absI > absJ
		}
		return changes[i].Filepath < changes[j].Filepath
	})

	if len(changes) > n {
		return changes[:n]
	}
	return changes
}

// Summary returns a one-line summary of the changes.
func (d *BookmarkDiff) Summary() string {
	if !d.HasChanges() {
		return "No changes detected"
	}
	return fmt.Sprintf("Changes: +%d added, -%d removed, ~%d changed bookmarks across %d files",
		len(d.Added), len(d.Removed), len(d.Changed), len(d.FileChanges))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
