package cloud

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

func newTestDropbox(f *fakeHTTP) *DropboxProvider {
	p := NewDropboxProvider(f, backup.JSONCodec{}, "reelmark", logger.Nop())
	p.apiBase = "https://api.dropbox.test/2"
	p.contentBase = "https://content.dropbox.test/2"
	p.token = "tok"
	return p
}

func apiArgPath(t *testing.T, r recordedRequest) string {
	t.Helper()
	raw := r.Opts.Headers["Dropbox-API-Arg"]
	if raw == "" {
		raw = string(r.Opts.Body)
	}
	var arg struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(raw), &arg); err != nil {
		t.Fatalf("request carries no path argument: %v", err)
	}
	return arg.Path
}

func TestDropboxAuthenticate(t *testing.T) {
	ctx := context.Background()

	f := &fakeHTTP{}
	if ok, err := newTestDropbox(f).Authenticate(ctx, Credentials{}); ok || err != nil {
		t.Errorf("Authenticate without token = %v, %v", ok, err)
	}
	if f.count() != 0 {
		t.Error("no request should be made without a token")
	}

	f = (&fakeHTTP{}).on("POST", "/users/get_current_account", 200, `{"account_id":"x"}`)
	if ok, err := newTestDropbox(f).Authenticate(ctx, Credentials{AccessToken: "t"}); !ok || err != nil {
		t.Errorf("Authenticate = %v, %v", ok, err)
	}

	f = (&fakeHTTP{}).on("POST", "/users/get_current_account", 401, `{"error_summary":"invalid_access_token/"}`)
	if ok, err := newTestDropbox(f).Authenticate(ctx, Credentials{AccessToken: "t"}); ok || err != nil {
		t.Errorf("rejected token = %v, %v; want false, nil", ok, err)
	}
}

func TestDropboxSanitizesPaths(t *testing.T) {
	names := []string{
		"../../etc/passwd",
		`..\..\boot.ini`,
		"nested/dir/file.json",
		"....//....//x.json",
	}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			f := (&fakeHTTP{}).
				on("POST", "/files/upload", 200, `{"id":"id:1"}`).
				on("POST", "/files/download", 200, encodedBackup(t)).
				on("POST", "/files/delete_v2", 200, `{}`)
			p := newTestDropbox(f)
			ctx := context.Background()

			if _, err := p.Upload(ctx, backup.New(nil, backup.Origin{}, fixedNow), name); err != nil {
				t.Fatal(err)
			}
			if _, err := p.Download(ctx, name); err != nil {
				t.Fatal(err)
			}
			p.Delete(ctx, name)

			for _, r := range f.requests {
				path := apiArgPath(t, r)
				if !strings.HasPrefix(path, "/reelmark/") {
					t.Fatalf("path escaped the folder: %q", path)
				}
				component := strings.TrimPrefix(path, "/reelmark/")
				for _, bad := range []string{"../", `..\`, "/", `\`, ".."} {
					if strings.Contains(component, bad) {
						t.Errorf("path %q still contains %q", path, bad)
					}
				}
			}
		})
	}
}

func TestDropboxRejectsNamesThatSanitizeToNothing(t *testing.T) {
	f := &fakeHTTP{}
	p := newTestDropbox(f)

	if _, err := p.Download(context.Background(), "../../"); !errors.Is(err, errors.ValidationError) {
		t.Errorf("expected validation error, got %v", err)
	}
	if f.count() != 0 {
		t.Error("no request should be made")
	}
}

func TestDropboxListMissingFolder(t *testing.T) {
	f := (&fakeHTTP{}).on("POST", "/files/list_folder", 409, `{"error_summary":"path/not_found/"}`)

	names, err := newTestDropbox(f).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if names == nil || len(names) != 0 {
		t.Errorf("expected empty list, got %#v", names)
	}
}

func TestDropboxListOtherConflictFails(t *testing.T) {
	f := (&fakeHTTP{}).on("POST", "/files/list_folder", 409, `{"error_summary":"path/malformed_path/"}`)

	names, err := newTestDropbox(f).List(context.Background())
	if err == nil {
		t.Fatalf("expected an error for a malformed path, got %v", names)
	}
	if errors.IsNotFound(err) {
		t.Errorf("a malformed path is not a missing folder: %v", err)
	}
}

func TestDropboxList(t *testing.T) {
	f := (&fakeHTTP{}).on("POST", "/files/list_folder", 200, `{"entries":[
		{".tag":"file","name":"bookmarks-2024-01-01.json"},
		{".tag":"folder","name":"old"},
		{".tag":"file","name":"bookmarks-2024-01-02.json"}
	],"has_more":false}`)

	names, err := newTestDropbox(f).List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Errorf("folders should be skipped, got %v", names)
	}
}

func TestDropboxDownloadNotFound(t *testing.T) {
	f := (&fakeHTTP{}).on("POST", "/files/download", 409, `{"error_summary":"path/not_found/.."}`)

	_, err := newTestDropbox(f).Download(context.Background(), "missing.json")
	if !errors.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestDropboxDeleteFailure(t *testing.T) {
	f := (&fakeHTTP{}).on("POST", "/files/delete_v2", 409, `{"error_summary":"path_lookup/not_found/"}`)
	if newTestDropbox(f).Delete(context.Background(), "x.json") {
		t.Error("Delete should report false on failure")
	}
}
