package bookmark

import (
	"fmt"
	"path/filepath"
	"time"
)

// Add appends b after validating it and checking id uniqueness.
func Add(list []Bookmark, b Bookmark) ([]Bookmark, error) {
	if err := b.Validate(); err != nil {
		return list, err
	}
	if _, ok := Find(list, b.ID); ok {
		return list, fmt.Errorf("bookmark %s already exists", b.ID)
	}
	b.Tags = NormalizeTags(b.Tags)
	return append(list, b), nil
}

// Remove drops the bookmark with the given id. It reports whether one was removed.
func Remove(list []Bookmark, id string) ([]Bookmark, bool) {
	for i, b := range list {
		if b.ID == id {
			out := make([]Bookmark, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}

// Patch describes a partial update; nil fields are left untouched.
type Patch struct {
	Title       *string
	Timestamp   *float64
	Description *string
	Tags        []string
}

// Update applies p to the bookmark with the given id and touches UpdatedAt.
func Update(list []Bookmark, id string, p Patch, now time.Time) ([]Bookmark, error) {
	for i := range list {
		if list[i].ID != id {
			continue
		}
		b := list[i].Clone()
		if p.Title != nil {
			b.Title = *p.Title
		}
		if p.Timestamp != nil {
			if err := ValidateTimestamp(*p.Timestamp); err != nil {
				return list, err
			}
			b.Timestamp = *p.Timestamp
		}
		if p.Description != nil {
			b.Description = *p.Description
		}
		if p.Tags != nil {
			b.Tags = NormalizeTags(p.Tags)
		}
		b.UpdatedAt = now.UTC()
		out := CloneAll(list)
		out[i] = b
		return out, nil
	}
	return list, fmt.Errorf("bookmark %s not found", id)
}

// Find returns the bookmark with the given id.
func Find(list []Bookmark, id string) (Bookmark, bool) {
	for _, b := range list {
		if b.ID == id {
			return b, true
		}
	}
	return Bookmark{}, false
}

// ForFile returns the bookmarks pointing at path, in list order.
func ForFile(list []Bookmark, path string) []Bookmark {
	var out []Bookmark
	for _, b := range list {
		if b.Filepath == path {
			out = append(out, b)
		}
	}
	return out
}

// Relocate rewrites bookmarks of a media file that moved from oldPath to
// newPath. It returns the updated list and how many bookmarks changed.
func Relocate(list []Bookmark, oldPath, newPath string, now time.Time) ([]Bookmark, int) {
	out := CloneAll(list)
	changed := 0
	for i := range out {
		if out[i].Filepath == oldPath && oldPath != newPath {
			out[i].Filepath = newPath
			out[i].UpdatedAt = now.UTC()
			changed++
		}
	}
	return out, changed
}

// RelocateByName points bookmarks whose file no longer exists at newPath when
// their basename matches. exists reports whether a path is still present.
func RelocateByName(list []Bookmark, newPath string, exists func(string) bool, now time.Time) ([]Bookmark, int) {
	name := filepath.Base(newPath)
	out := CloneAll(list)
	changed := 0
	for i := range out {
		if out[i].Filepath == newPath || filepath.Base(out[i].Filepath) != name {
			continue
		}
		if exists(out[i].Filepath) {
			continue
		}
		out[i].Filepath = newPath
		out[i].UpdatedAt = now.UTC()
		changed++
	}
	return out, changed
}
