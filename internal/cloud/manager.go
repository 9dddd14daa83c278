package cloud

import (
	"context"
	"sync"
	"time"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/bookmark"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

// SyncResult is returned by SyncBookmarks. Conflicts is always non-nil and
// currently always empty: equal or older remote copies silently lose.
type SyncResult struct {
	Merged    []bookmark.Bookmark
	Added     int
	Updated   int
	Conflicts []string
}

// Manager owns the provider registry and the active provider. It is meant to
// be driven through syncer.Handler, which serializes operations; the mutex
// only keeps the active-provider pointer itself race free.
type Manager struct {
	providers map[Kind]Provider
	origin    backup.Origin
	log       logger.Logger
	now       func() time.Time

	mu     sync.RWMutex
	active Provider
}

// NewManager creates a manager over a fixed provider registry.
func NewManager(providers map[Kind]Provider, origin backup.Origin, log logger.Logger) *Manager {
	return &Manager{
		providers: providers,
		origin:    origin,
		log:       log,
		now:       time.Now,
	}
}

// SetProvider authenticates the provider registered under id and makes it
// active. Unknown ids are a configuration error. A failed authentication
// leaves the previously active provider in place and returns false.
func (m *Manager) SetProvider(ctx context.Context, id string, creds Credentials) (bool, error) {
	p, ok := m.providers[Kind(id)]
	if !ok {
		return false, errors.NewUnknownProviderError(id)
	}

	ok, err := p.Authenticate(ctx, creds)
	if err != nil {
		m.log.Warn("authentication failed", logger.String("provider", id), logger.Error(err))
		return false, err
	}
	if !ok {
		return false, nil
	}

	m.mu.Lock()
	m.active = p
	m.mu.Unlock()
	m.log.Debug("provider active", logger.String("provider", p.Name()))
	return true, nil
}

// Active returns the active provider, if any.
func (m *Manager) Active() (Provider, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active, m.active != nil
}

// Reset forgets the active provider.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// UploadBookmarks snapshots bookmarks into a fresh backup and uploads it.
// An empty filename means the default bookmarks-<date>.json.
func (m *Manager) UploadBookmarks(ctx context.Context, bookmarks []bookmark.Bookmark, filename string) (string, error) {
	p, err := m.require()
	if err != nil {
		return "", err
	}
	now := m.now()
	if filename == "" {
		filename = backup.DefaultFilename(now)
	}

	id, err := p.Upload(ctx, backup.New(bookmarks, m.origin, now), filename)
	if err != nil {
		return "", err
	}
	m.log.Info("uploaded bookmarks",
		logger.String("provider", p.Name()),
		logger.String("file", filename),
		logger.Int("count", len(bookmarks)))
	return id, nil
}

// DownloadBookmarks fetches the named backup from the active provider.
func (m *Manager) DownloadBookmarks(ctx context.Context, filename string) (*backup.Backup, error) {
	p, err := m.require()
	if err != nil {
		return nil, err
	}
	return p.Download(ctx, filename)
}

// ListBackups lists backup names on the active provider.
func (m *Manager) ListBackups(ctx context.Context) ([]string, error) {
	p, err := m.require()
	if err != nil {
		return nil, err
	}
	return p.List(ctx)
}

// DeleteBackup removes a backup, best effort.
func (m *Manager) DeleteBackup(ctx context.Context, filename string) bool {
	p, err := m.require()
	if err != nil {
		return false
	}
	return p.Delete(ctx, filename)
}

// SyncBookmarks merges local with the latest remote backup and uploads the
// result. The steps run strictly in order (list, download, merge, upload) and
// any failure aborts before anything is written.
func (m *Manager) SyncBookmarks(ctx context.Context, local []bookmark.Bookmark) (*SyncResult, error) {
	if _, err := m.require(); err != nil {
		return nil, err
	}

	names, err := m.ListBackups(ctx)
	if err != nil {
		return nil, err
	}

	latest, ok := backup.Latest(names)
	if !ok {
		m.log.Info("no remote backups, uploading local collection")
		if _, err := m.UploadBookmarks(ctx, local, ""); err != nil {
			return nil, err
		}
		return &SyncResult{Merged: bookmark.CloneAll(local), Conflicts: []string{}}, nil
	}

	remote, err := m.DownloadBookmarks(ctx, latest)
	if err != nil {
		return nil, err
	}

	res := Merge(local, remote.Bookmarks)
	if len(res.Skipped) > 0 {
		m.log.Warn("skipped invalid remote bookmarks",
			logger.String("from", latest),
			logger.Int("count", len(res.Skipped)))
	}
	if _, err := m.UploadBookmarks(ctx, res.Merged, ""); err != nil {
		return nil, err
	}

	m.log.Info("sync merged",
		logger.String("from", latest),
		logger.Int("added", res.Added),
		logger.Int("updated", res.Updated),
		logger.Int("total", len(res.Merged)))

	return &SyncResult{
		Merged:    res.Merged,
		Added:     res.Added,
		Updated:   res.Updated,
		Conflicts: []string{},
	}, nil
}

func (m *Manager) require() (Provider, error) {
	p, ok := m.Active()
	if !ok {
		return nil, errors.NewNoProviderError()
	}
	return p, nil
}
