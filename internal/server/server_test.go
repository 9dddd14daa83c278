package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/cloud"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/metrics"
	"github.com/harshpatel5940/reelmark/internal/store"
	"github.com/harshpatel5940/reelmark/internal/syncer"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeManager struct {
	remote []bookmark.Bookmark
	authOK bool
}

func (m *fakeManager) SetProvider(ctx context.Context, id string, creds cloud.Credentials) (bool, error) {
	return m.authOK, nil
}

func (m *fakeManager) UploadBookmarks(ctx context.Context, list []bookmark.Bookmark, filename string) (string, error) {
	return "file-1", nil
}

func (m *fakeManager) DownloadBookmarks(ctx context.Context, filename string) (*backup.Backup, error) {
	return backup.New(m.remote, backup.DefaultOrigin("test"), t0), nil
}

func (m *fakeManager) ListBackups(ctx context.Context) ([]string, error) {
	return []string{"bookmarks-2024-01-01.json"}, nil
}

func (m *fakeManager) SyncBookmarks(ctx context.Context, local []bookmark.Bookmark) (*cloud.SyncResult, error) {
	res := cloud.Merge(local, m.remote)
	return &cloud.SyncResult{Merged: res.Merged, Added: res.Added, Updated: res.Updated, Conflicts: []string{}}, nil
}

func newTestServer(t *testing.T, m *fakeManager, rateLimit int) (*httptest.Server, store.Store, *metrics.Recorder) {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "bookmarks.json"), logger.Nop())
	rec := metrics.New()
	h := syncer.New(m, logger.Nop(), syncer.WithTimeout(5*time.Second), syncer.WithRecorder(rec))

	s := New(Options{Listen: "127.0.0.1:0", RateLimit: rateLimit}, logger.Nop(), Deps{Store: st, Sync: h, Metrics: rec})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, st, rec
}

func postSync(t *testing.T, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/v1/sync", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{}, 0)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestBookmarksRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{}, 0)
	a := bookmark.New("Intro", 10, "/m/a.mkv", t0)
	b := bookmark.New("Credits", 20, "/m/b.mkv", t0)
	body, _ := json.Marshal([]bookmark.Bookmark{a, b})

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/bookmarks", strings.NewReader(string(body)))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/v1/bookmarks?file=/m/b.mkv")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got []bookmark.Bookmark
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]bookmark.Bookmark{b}, got); diff != "" {
		t.Errorf("filtered list mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceRejectsInvalid(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{}, 0)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/bookmarks", strings.NewReader(`[{"id":"x","timestamp":-1}]`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSyncWritesMergedBack(t *testing.T) {
	remote := bookmark.New("Remote", 5, "/m/r.mkv", t0)
	srv, st, _ := newTestServer(t, &fakeManager{authOK: true, remote: []bookmark.Bookmark{remote}}, 0)

	local := bookmark.New("Local", 1, "/m/l.mkv", t0)
	if err := st.Replace(context.Background(), []bookmark.Bookmark{local}); err != nil {
		t.Fatal(err)
	}

	resp, out := postSync(t, srv.URL, `{"action":"sync","provider":"gdrive","credentials":{"accessToken":"t"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, out)
	}
	if out["success"] != true || out["action"] != "sync" {
		t.Errorf("unexpected result %v", out)
	}

	stored, err := st.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 || stored[0].ID != local.ID || stored[1].ID != remote.ID {
		t.Errorf("merged list not stored, got %+v", stored)
	}
}

func TestDownloadDoesNotTouchStore(t *testing.T) {
	remote := bookmark.New("Remote", 5, "/m/r.mkv", t0)
	srv, st, _ := newTestServer(t, &fakeManager{authOK: true, remote: []bookmark.Bookmark{remote}}, 0)

	_, out := postSync(t, srv.URL, `{"action":"download","provider":"dropbox","credentials":{"accessToken":"t"}}`)
	if out["success"] != true {
		t.Fatalf("unexpected result %v", out)
	}
	if bms, _ := out["bookmarks"].([]any); len(bms) != 1 {
		t.Errorf("expected the downloaded bookmarks in the result, got %v", out["bookmarks"])
	}

	stored, _ := st.Load(context.Background())
	if len(stored) != 0 {
		t.Errorf("download must not replace local bookmarks, got %d", len(stored))
	}
}

func TestSyncFailureResult(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{authOK: false}, 0)

	resp, out := postSync(t, srv.URL, `{"action":"upload","provider":"gdrive","credentials":{}}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if out["success"] != false || out["error"] == "" {
		t.Errorf("expected a failure result, got %v", out)
	}
}

func TestSyncBadRequests(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{authOK: true}, 0)

	resp, _ := postSync(t, srv.URL, `{"action":"explode","provider":"gdrive"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", resp.StatusCode)
	}

	resp, _ = postSync(t, srv.URL, `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{authOK: true}, 0)
	postSync(t, srv.URL, `{"action":"upload","provider":"gdrive","credentials":{"accessToken":"t"}}`)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`reelmark_syncs_total{action="upload",outcome="success"} 1`,
		`reelmark_http_requests_total{method="POST",path="/v1/sync",status="200"} 1`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, &fakeManager{}, 2)

	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}
