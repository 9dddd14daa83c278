package diff

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harshpatel5940/reelmark/internal/bookmark"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mk(id, file string, ts float64) bookmark.Bookmark {
	return bookmark.Bookmark{
		ID:        id,
		Title:     "t-" + id,
		Timestamp: ts,
		Filepath:  file,
		CreatedAt: t0,
		Tags:      []string{},
	}
}

func ids(list []bookmark.Bookmark) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

func TestCompare(t *testing.T) {
	changed := mk("c", "/m/a.mkv", 30)
	changed.Title = "renamed"
	changed.UpdatedAt = t0.Add(time.Hour)

	oldList := []bookmark.Bookmark{mk("a", "/m/a.mkv", 10), mk("b", "/m/b.mkv", 5), mk("c", "/m/a.mkv", 30)}
	newList := []bookmark.Bookmark{mk("a", "/m/a.mkv", 10), changed, mk("d", "/m/c.mkv", 1), mk("e", "/m/a.mkv", 2)}

	d := Compare(oldList, newList)

	if diff := cmp.Diff([]string{"e", "d"}, ids(d.Added)); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, ids(d.Removed)); diff != "" {
		t.Errorf("removed mismatch (-want +got):\n%s", diff)
	}
	if len(d.Changed) != 1 || d.Changed[0].ID != "c" {
		t.Fatalf("changed = %+v", d.Changed)
	}
	if diff := cmp.Diff([]string{"title", "updatedAt"}, d.Changed[0].Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if d.UnchangedCount != 1 {
		t.Errorf("unchanged = %d, want 1", d.UnchangedCount)
	}

	wantFiles := map[string]FileChange{
		"/m/a.mkv": {Filepath: "/m/a.mkv", OldCount: 2, NewCount: 3, Delta: 1},
		"/m/b.mkv": {Filepath: "/m/b.mkv", OldCount: 1, NewCount: 0, Delta: -1},
		"/m/c.mkv": {Filepath: "/m/c.mkv", OldCount: 0, NewCount: 1, Delta: 1},
	}
	if diff := cmp.Diff(wantFiles, d.FileChanges); diff != "" {
		t.Errorf("file changes mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareIdentical(t *testing.T) {
	list := []bookmark.Bookmark{mk("a", "/m/a.mkv", 1), mk("b", "/m/a.mkv", 2)}
	d := Compare(list, bookmark.CloneAll(list))

	if d.HasChanges() {
		t.Errorf("identical lists reported changes: %+v", d)
	}
	if d.UnchangedCount != 2 {
		t.Errorf("unchanged = %d", d.UnchangedCount)
	}
	if d.Summary() != "No changes detected" {
		t.Errorf("summary = %q", d.Summary())
	}
}

func TestCompareEmpty(t *testing.T) {
	d := Compare(nil, nil)
	if d.Added == nil || d.Removed == nil || d.Changed == nil {
		t.Error("result lists should never be nil")
	}
	if d.HasChanges() {
		t.Error("empty lists have no changes")
	}
}

func TestTagChangeDetected(t *testing.T) {
	a := mk("a", "/m/a.mkv", 1)
	b := a.Clone()
	b.Tags = []string{"fav"}

	d := Compare([]bookmark.Bookmark{a}, []bookmark.Bookmark{b})
	if len(d.Changed) != 1 || d.Changed[0].Fields[0] != "tags" {
		t.Errorf("changed = %+v", d.Changed)
	}
	if len(d.FileChanges) != 0 {
		t.Errorf("tag change should not move file counts: %v", d.FileChanges)
	}
}

func TestGetTopFiles(t *testing.T) {
	d := &BookmarkDiff{FileChanges: map[string]FileChange{
		"/a": {Filepath: "/a", Delta: 1},
		"/b": {Filepath: "/b", Delta: -5},
		"/c": {Filepath: "/c", Delta: 3},
		"/d": {Filepath: "/d", Delta: -1},
	}}

	got := d.GetTopFiles(3)
	var paths []string
	for _, c := range got {
		paths = append(paths, c.Filepath)
	}
	if diff := cmp.Diff([]string{"/b", "/c", "/a"}, paths); diff != "" {
		t.Errorf("top files mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	d := Compare([]bookmark.Bookmark{mk("a", "/m/a.mkv", 1)}, []bookmark.Bookmark{mk("b", "/m/b.mkv", 1)})
	s := d.Summary()
	if !strings.Contains(s, "+1 added") || !strings.Contains(s, "-1 removed") || !strings.Contains(s, "2 files") {
		t.Errorf("summary = %q", s)
	}
}
