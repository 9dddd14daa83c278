package cloud

import (
	"context"
	"sort"
	"sync"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/errors"
)

// fakeProvider keeps backups in memory and records every call.
type fakeProvider struct {
	mu       sync.Mutex
	token    string
	authErr  error
	listErr  error
	dlErr    error
	upErr    error
	blobs    map[string]*backup.Backup
	calls    []string
	uploads  []string
	lastSent *backup.Backup
}

func newFakeProvider(token string) *fakeProvider {
	return &fakeProvider{token: token, blobs: map[string]*backup.Backup{}}
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Authenticate(_ context.Context, creds Credentials) (bool, error) {
	f.record("authenticate")
	if f.authErr != nil {
		return false, f.authErr
	}
	return creds.AccessToken != "" && creds.AccessToken == f.token, nil
}

func (f *fakeProvider) Upload(_ context.Context, b *backup.Backup, filename string) (string, error) {
	f.record("upload")
	if f.upErr != nil {
		return "", f.upErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[filename] = b
	f.uploads = append(f.uploads, filename)
	f.lastSent = b
	return "id-" + filename, nil
}

func (f *fakeProvider) Download(_ context.Context, filename string) (*backup.Backup, error) {
	f.record("download")
	if f.dlErr != nil {
		return nil, f.dlErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.blobs[filename]
	if !ok {
		return nil, errors.NewNotFoundError("Backup not found: " + filename)
	}
	return b, nil
}

func (f *fakeProvider) List(context.Context) ([]string, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.blobs))
	for name := range f.blobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeProvider) Delete(_ context.Context, filename string) bool {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.blobs[filename]; !ok {
		return false
	}
	delete(f.blobs, filename)
	return true
}

func (f *fakeProvider) countCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}
