package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

// fakeS3 is a tiny path-style S3 endpoint holding one bucket in memory.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		w.WriteHeader(http.StatusForbidden)
		if r.Method != http.MethodHead {
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
		}
		return
	}

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
		fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><IsTruncated>false</IsTruncated>", f.bucket, prefix)
		names := make([]string, 0, len(f.objects))
		for k := range f.objects {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if strings.HasPrefix(k, prefix) {
				fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
			}
		}
		b.WriteString("</ListBucketResult>")
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, b.String())
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		f.keys = append(f.keys, key)
		w.Header().Set("ETag", `"etag-1"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Write(data)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3(t *testing.T, bucket string) (*S3Provider, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "backups", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")
	// A CA bundle can't be applied to the httptest client.
	t.Setenv("AWS_CA_BUNDLE", "")

	p := NewS3Provider(S3Config{Bucket: bucket, Region: "us-east-1", Endpoint: srv.URL, Prefix: "users/me"},
		backup.JSONCodec{}, "reelmark", logger.Nop())
	p.httpClient = srv.Client()
	return p, fake
}

var s3Creds = Credentials{ClientID: "AKIDEXAMPLE", ClientSecret: "secret"}

func TestS3AuthenticateNeedsKeys(t *testing.T) {
	p, _ := newTestS3(t, "backups")
	ok, err := p.Authenticate(context.Background(), Credentials{AccessToken: "only-a-session-token"})
	if ok || err != nil {
		t.Errorf("Authenticate = %v, %v; want false, nil", ok, err)
	}
	if _, err := p.List(context.Background()); !errors.IsAuthError(err) {
		t.Errorf("operations before authentication should fail with an auth error, got %v", err)
	}
}

func TestS3AuthenticateRejected(t *testing.T) {
	p, _ := newTestS3(t, "someone-elses-bucket")
	ok, err := p.Authenticate(context.Background(), s3Creds)
	if ok || err != nil {
		t.Errorf("Authenticate = %v, %v; want false, nil", ok, err)
	}
}

func TestS3IgnoresAmbientCABundle(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", filepath.Join(t.TempDir(), "corp-ca.pem"))
	p, _ := newTestS3(t, "backups")

	if ok, err := p.Authenticate(context.Background(), s3Creds); !ok || err != nil {
		t.Errorf("Authenticate = %v, %v; want true, nil", ok, err)
	}
}

func TestS3RoundTrip(t *testing.T) {
	p, fake := newTestS3(t, "backups")
	ctx := context.Background()

	if ok, err := p.Authenticate(ctx, s3Creds); !ok || err != nil {
		t.Fatalf("Authenticate = %v, %v", ok, err)
	}
	if p.Name() != "S3-compatible" {
		t.Errorf("unexpected name %q", p.Name())
	}

	names, err := p.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty bucket, got %v", names)
	}

	b := backup.New([]bookmark.Bookmark{{ID: "1", Title: "One", CreatedAt: fixedNow, Tags: []string{}}}, backup.Origin{Device: "d"}, fixedNow)
	id, err := p.Upload(ctx, b, "bookmarks-2024-01-03.json")
	if err != nil {
		t.Fatal(err)
	}
	if id != "etag-1" {
		t.Errorf("unexpected id %q", id)
	}
	if _, ok := fake.objects["users/me/reelmark/bookmarks-2024-01-03.json"]; !ok {
		t.Errorf("object stored under unexpected key, have %v", fake.keys)
	}

	names, err = p.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "bookmarks-2024-01-03.json" {
		t.Errorf("unexpected names %v", names)
	}

	got, err := p.Download(ctx, "bookmarks-2024-01-03.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Bookmarks) != 1 || got.Bookmarks[0].Title != "One" {
		t.Errorf("unexpected backup %+v", got)
	}

	if _, err := p.Download(ctx, "missing.json"); !errors.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}

	if !p.Delete(ctx, "bookmarks-2024-01-03.json") {
		t.Error("Delete should succeed")
	}
	if len(fake.objects) != 0 {
		t.Error("object should be gone")
	}
}

func TestS3KeysStayInsideFolder(t *testing.T) {
	p, fake := newTestS3(t, "backups")
	ctx := context.Background()
	if ok, _ := p.Authenticate(ctx, s3Creds); !ok {
		t.Fatal("authentication failed")
	}

	for _, name := range []string{"../../secrets.json", `..\evil.json`, "a/b/c.json"} {
		if _, err := p.Upload(ctx, backup.New(nil, backup.Origin{}, fixedNow), name); err != nil {
			t.Fatal(err)
		}
	}
	for _, key := range fake.keys {
		rest := strings.TrimPrefix(key, "users/me/reelmark/")
		if rest == key || strings.Contains(rest, "/") || strings.Contains(rest, "..") || strings.Contains(rest, `\`) {
			t.Errorf("unsafe key %q", key)
		}
	}
}
