package cloud

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

var fixedNow = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T) (*Manager, *fakeProvider, *fakeProvider) {
	t.Helper()
	a := newFakeProvider("token-a")
	b := newFakeProvider("token-b")
	m := NewManager(map[Kind]Provider{KindGDrive: a, KindDropbox: b},
		backup.Origin{Device: "test-host", UserAgent: "reelmark/test"}, logger.Nop())
	m.now = func() time.Time { return fixedNow }
	return m, a, b
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSetProviderUnknown(t *testing.T) {
	m, _, _ := newTestManager(t)

	ok, err := m.SetProvider(context.Background(), "bogus-id", Credentials{AccessToken: "x"})
	if ok {
		t.Error("unknown provider must not authenticate")
	}
	if err == nil || !strings.Contains(err.Error(), "Unknown provider: bogus-id") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.IsConfigError(err) {
		t.Error("unknown provider should be a configuration error")
	}
}

func TestSetProviderWithoutToken(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	ok, err := m.SetProvider(ctx, string(KindDropbox), Credentials{})
	if err != nil || ok {
		t.Fatalf("SetProvider = %v, %v; want false, nil", ok, err)
	}
	if _, active := m.Active(); active {
		t.Error("no provider should be active")
	}

	_, err = m.UploadBookmarks(ctx, nil, "")
	if err == nil || err.Error() != "No cloud provider configured" {
		t.Errorf("unexpected upload error: %v", err)
	}
	if _, err := m.ListBackups(ctx); err == nil {
		t.Error("ListBackups should fail without a provider")
	}
	if _, err := m.DownloadBookmarks(ctx, "x.json"); err == nil {
		t.Error("DownloadBookmarks should fail without a provider")
	}
	if _, err := m.SyncBookmarks(ctx, nil); err == nil {
		t.Error("SyncBookmarks should fail without a provider")
	}
	if m.DeleteBackup(ctx, "x.json") {
		t.Error("DeleteBackup should report false without a provider")
	}
}

func TestSetProviderFailureKeepsPreviousActive(t *testing.T) {
	m, a, b := newTestManager(t)
	ctx := context.Background()

	if ok, _ := m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"}); !ok {
		t.Fatal("expected gdrive to authenticate")
	}
	if ok, _ := m.SetProvider(ctx, string(KindDropbox), Credentials{AccessToken: "wrong"}); ok {
		t.Fatal("expected dropbox to reject the token")
	}
	if p, _ := m.Active(); p != Provider(a) {
		t.Error("previous active provider should be kept")
	}

	b.authErr = stderrors.New("connection refused")
	ok, err := m.SetProvider(ctx, string(KindDropbox), Credentials{AccessToken: "token-b"})
	if ok || err == nil {
		t.Fatalf("transport error should surface: %v, %v", ok, err)
	}
	if p, _ := m.Active(); p != Provider(a) {
		t.Error("previous active provider should survive a transport error")
	}

	m.Reset()
	if _, active := m.Active(); active {
		t.Error("Reset should clear the active provider")
	}
}

func TestUploadBookmarksBuildsFreshBackup(t *testing.T) {
	m, a, _ := newTestManager(t)
	ctx := context.Background()
	m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"})

	local := []bookmark.Bookmark{{ID: "1", Title: "One", CreatedAt: fixedNow, Tags: []string{"x"}}}
	id, err := m.UploadBookmarks(ctx, local, "")
	if err != nil {
		t.Fatal(err)
	}
	if id != "id-bookmarks-2024-01-03.json" {
		t.Errorf("unexpected id %q", id)
	}

	sent := a.lastSent
	if sent.Metadata.TotalBookmarks != 1 || sent.Metadata.Version != backup.FormatVersion {
		t.Errorf("unexpected metadata %+v", sent.Metadata)
	}
	if !sent.Metadata.CreatedAt.Equal(fixedNow) || sent.Metadata.Device != "test-host" {
		t.Errorf("unexpected metadata %+v", sent.Metadata)
	}

	local[0].Tags[0] = "mutated"
	if sent.Bookmarks[0].Tags[0] != "x" {
		t.Error("uploaded backup must not alias local bookmarks")
	}

	if _, err := m.UploadBookmarks(ctx, local, "custom.json"); err != nil {
		t.Fatal(err)
	}
	if got := a.uploads[len(a.uploads)-1]; got != "custom.json" {
		t.Errorf("explicit filename ignored, got %s", got)
	}
}

func TestSyncFirstSyncUploadsLocal(t *testing.T) {
	m, a, _ := newTestManager(t)
	ctx := context.Background()
	m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"})

	local := []bookmark.Bookmark{
		{ID: "1", Title: "One", CreatedAt: fixedNow, Tags: []string{}},
		{ID: "2", Title: "Two", CreatedAt: fixedNow, Tags: []string{}},
	}

	res, err := m.SyncBookmarks(ctx, local)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(local, res.Merged); diff != "" {
		t.Errorf("merged should equal local (-want +got):\n%s", diff)
	}
	if res.Added != 0 || res.Updated != 0 {
		t.Errorf("unexpected counts %+v", res)
	}
	if res.Conflicts == nil || len(res.Conflicts) != 0 {
		t.Errorf("conflicts must be an empty, non-nil slice: %#v", res.Conflicts)
	}
	if n := a.countCalls("upload"); n != 1 {
		t.Errorf("expected exactly one upload, got %d", n)
	}
	if a.countCalls("download") != 0 {
		t.Error("first sync must not download")
	}
	if diff := cmp.Diff(local, a.lastSent.Bookmarks); diff != "" {
		t.Errorf("uploaded bookmarks differ from local (-want +got):\n%s", diff)
	}
}

func TestSyncNewerRemoteWins(t *testing.T) {
	m, a, _ := newTestManager(t)
	ctx := context.Background()
	m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"})

	a.blobs["bookmarks-2024-01-02.json"] = &backup.Backup{Bookmarks: []bookmark.Bookmark{
		{ID: "1", Title: "Cloud", CreatedAt: ts("2024-01-01T00:00:00Z"), UpdatedAt: ts("2024-01-02T00:00:00Z"), Tags: []string{}},
	}}
	local := []bookmark.Bookmark{
		{ID: "1", Title: "Local", CreatedAt: ts("2024-01-01T00:00:00Z"), UpdatedAt: ts("2024-01-01T00:00:00Z"), Tags: []string{}},
	}

	res, err := m.SyncBookmarks(ctx, local)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Merged) != 1 || res.Merged[0].Title != "Cloud" {
		t.Fatalf("unexpected merged set %+v", res.Merged)
	}
	if res.Added != 0 || res.Updated != 1 {
		t.Errorf("added=%d updated=%d, want 0 and 1", res.Added, res.Updated)
	}

	if got := a.uploads[len(a.uploads)-1]; got != "bookmarks-2024-01-03.json" {
		t.Errorf("merged set should be uploaded under a fresh default name, got %s", got)
	}
	if a.lastSent.Bookmarks[0].Title != "Cloud" {
		t.Error("uploaded set should be the merged set")
	}
}

func TestSyncPicksLexicographicallyLatest(t *testing.T) {
	m, a, _ := newTestManager(t)
	ctx := context.Background()
	m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"})

	a.blobs["bookmarks-2023-12-31.json"] = &backup.Backup{Bookmarks: []bookmark.Bookmark{{ID: "old", CreatedAt: fixedNow}}}
	a.blobs["bookmarks-2024-01-01.json"] = &backup.Backup{Bookmarks: []bookmark.Bookmark{{ID: "new", CreatedAt: fixedNow}}}

	res, err := m.SyncBookmarks(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Merged) != 1 || res.Merged[0].ID != "new" {
		t.Errorf("expected bookmarks from the latest backup, got %+v", res.Merged)
	}
}

func TestSyncAbortsOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeProvider)
	}{
		{"list fails", func(f *fakeProvider) { f.listErr = errors.NewNetworkError("list", stderrors.New("boom")) }},
		{"download fails", func(f *fakeProvider) { f.dlErr = errors.NewNetworkError("download", stderrors.New("boom")) }},
		{"upload fails", func(f *fakeProvider) { f.upErr = errors.NewNetworkError("upload", stderrors.New("boom")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, a, _ := newTestManager(t)
			ctx := context.Background()
			m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"})
			a.blobs["bookmarks-2024-01-01.json"] = &backup.Backup{Bookmarks: []bookmark.Bookmark{{ID: "r", CreatedAt: fixedNow}}}
			tt.setup(a)

			res, err := m.SyncBookmarks(ctx, []bookmark.Bookmark{{ID: "l", CreatedAt: fixedNow}})
			if err == nil || res != nil {
				t.Fatalf("expected failure, got %+v", res)
			}
			if !strings.Contains(err.Error(), "boom") {
				t.Errorf("underlying message should propagate: %v", err)
			}
			if len(a.uploads) != 0 {
				t.Error("nothing should be uploaded after a failure")
			}
		})
	}
}

func TestSyncResultHasNoSourceMarker(t *testing.T) {
	m, a, _ := newTestManager(t)
	ctx := context.Background()
	m.SetProvider(ctx, string(KindGDrive), Credentials{AccessToken: "token-a"})

	a.blobs["bookmarks-2024-01-01.json"] = &backup.Backup{Bookmarks: []bookmark.Bookmark{
		{ID: "cloud-only", Title: "c", CreatedAt: fixedNow, Tags: []string{}},
	}}
	res, err := m.SyncBookmarks(ctx, []bookmark.Bookmark{{ID: "local", Title: "l", CreatedAt: fixedNow, UpdatedAt: fixedNow, Tags: []string{}}})
	if err != nil {
		t.Fatal(err)
	}

	allowed := map[string]bool{
		"id": true, "title": true, "timestamp": true, "filepath": true,
		"description": true, "createdAt": true, "updatedAt": true, "tags": true,
	}
	for _, b := range res.Merged {
		data, _ := json.Marshal(b)
		var fields map[string]any
		if err := json.Unmarshal(data, &fields); err != nil {
			t.Fatal(err)
		}
		var keys []string
		for k := range fields {
			if !allowed[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			t.Errorf("bookmark %s carries unexpected fields %v", b.ID, keys)
		}
	}
}
