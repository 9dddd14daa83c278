// Package backup defines the blob exchanged with cloud providers: a snapshot
// of the bookmark collection plus metadata describing who wrote it and when.
//
// The wire format is a JSON object {bookmarks, metadata}; see Codec.
package backup

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
)

// FormatVersion is written into every backup's metadata.
const FormatVersion = "1.0"

// FilenamePrefix and FilenameExt frame the default backup name.
const (
	FilenamePrefix = "bookmarks-"
	FilenameExt    = ".json"
)

// Metadata describes a backup snapshot.
type Metadata struct {
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	TotalBookmarks int       `json:"totalBookmarks"`
	Device         string    `json:"device"`
	UserAgent      string    `json:"userAgent"`
}

// Backup is an immutable snapshot handed to a provider.
type Backup struct {
	Bookmarks []bookmark.Bookmark `json:"bookmarks"`
	Metadata  Metadata            `json:"metadata"`
}

// Origin identifies the writer of a backup.
type Origin struct {
	Device    string
	UserAgent string
}

// DefaultOrigin uses the hostname and a reelmark/<version> agent string.
func DefaultOrigin(version string) Origin {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return Origin{
		Device:    hostname,
		UserAgent: fmt.Sprintf("reelmark/%s (%s; %s)", version, runtime.GOOS, runtime.GOARCH),
	}
}

// New snapshots bookmarks into a fresh Backup. The slice is deep-copied so
// later changes to the caller's collection don't leak into the upload.
func New(bookmarks []bookmark.Bookmark, origin Origin, now time.Time) *Backup {
	return &Backup{
		Bookmarks: bookmark.CloneAll(bookmarks),
		Metadata: Metadata{
			Version:        FormatVersion,
			CreatedAt:      now.UTC(),
			TotalBookmarks: len(bookmarks),
			Device:         origin.Device,
			UserAgent:      origin.UserAgent,
		},
	}
}

// DefaultFilename returns bookmarks-YYYY-MM-DD.json for the UTC date of now.
// Uploads on the same calendar day share (and overwrite) this name.
func DefaultFilename(now time.Time) string {
	return FilenamePrefix + now.UTC().Format("2006-01-02") + FilenameExt
}

// Latest returns the lexicographically greatest filename. Default names
// embed an ISO date, so this is also the most recent backup.
func Latest(filenames []string) (string, bool) {
	if len(filenames) == 0 {
		return "", false
	}
	sorted := SortDescending(filenames)
	return sorted[0], true
}

// SortDescending returns a copy of filenames in lexicographic descending order.
func SortDescending(filenames []string) []string {
	sorted := append([]string(nil), filenames...)
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))
	return sorted
}

// IsBackupName reports whether name looks like a default backup filename.
func IsBackupName(name string) bool {
	return strings.HasPrefix(name, FilenamePrefix) && strings.HasSuffix(name, FilenameExt)
}

// Summary renders a short human-readable description of the backup.
func (b *Backup) Summary() string {
	summary := fmt.Sprintf("Backup created: %s\n", b.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	summary += fmt.Sprintf("Device: %s\n", b.Metadata.Device)
	summary += fmt.Sprintf("Bookmarks: %d\n", len(b.Bookmarks))
	summary += fmt.Sprintf("Format version: %s\n", b.Metadata.Version)
	return summary
}
