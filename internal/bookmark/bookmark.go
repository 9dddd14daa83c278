// Package bookmark defines the timestamp bookmark record and the collection
// operations the player plugin performs on it (add, remove, update, relocate).
package bookmark

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTimestamp is the largest accepted position in seconds (365 days).
const MaxTimestamp = 365 * 24 * 60 * 60

// Bookmark marks a position inside a media file.
type Bookmark struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Timestamp   float64   `json:"timestamp"`
	Filepath    string    `json:"filepath"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
	Tags        []string  `json:"tags"`
}

// New creates a bookmark with a fresh id and creation time.
func New(title string, timestamp float64, filepath string, now time.Time) Bookmark {
	now = now.UTC()
	return Bookmark{
		ID:        uuid.NewString(),
		Title:     title,
		Timestamp: timestamp,
		Filepath:  filepath,
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      []string{},
	}
}

// ModifiedAt returns UpdatedAt, or CreatedAt for records that were never updated.
func (b Bookmark) ModifiedAt() time.Time {
	if b.UpdatedAt.IsZero() {
		return b.CreatedAt
	}
	return b.UpdatedAt
}

// Validate checks the record invariants.
func (b Bookmark) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("bookmark id is required")
	}
	if err := ValidateTimestamp(b.Timestamp); err != nil {
		return fmt.Errorf("bookmark %s: %w", b.ID, err)
	}
	return nil
}

// ValidateTimestamp rejects NaN, infinities and positions outside [0, MaxTimestamp].
func ValidateTimestamp(ts float64) error {
	if math.IsNaN(ts) || math.IsInf(ts, 0) {
		return fmt.Errorf("timestamp must be a finite number")
	}
	if ts < 0 || ts > MaxTimestamp {
		return fmt.Errorf("timestamp %.3f out of range [0, %d]", ts, MaxTimestamp)
	}
	return nil
}

// Clone returns a deep copy so callers can't alias the tags slice.
func (b Bookmark) Clone() Bookmark {
	c := b
	if b.Tags != nil {
		c.Tags = make([]string, len(b.Tags))
		copy(c.Tags, b.Tags)
	}
	return c
}

// CloneAll deep-copies a bookmark list.
func CloneAll(list []Bookmark) []Bookmark {
	out := make([]Bookmark, len(list))
	for i, b := range list {
		out[i] = b.Clone()
	}
	return out
}

// NormalizeTags trims, drops empties and removes duplicates while keeping order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// FormatTimestamp renders seconds as H:MM:SS (or M:SS under an hour).
func FormatTimestamp(ts float64) string {
	total := int(math.Floor(ts))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
