package cloud

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/httpclient"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/security"
)

const (
	dropboxAPIBase     = "https://api.dropboxapi.com/2"
	dropboxContentBase = "https://content.dropboxapi.com/2"
)

// DropboxProvider stores backups under /<folder>/ in the user's Dropbox.
// Dropbox addresses files by path, so names are sanitized into a single safe
// path component instead of being rejected.
type DropboxProvider struct {
	http        httpclient.Client
	codec       backup.Codec
	folder      string
	log         logger.Logger
	apiBase     string
	contentBase string
	oauth       oauth2.Endpoint

	mu    sync.RWMutex
	token string
}

type dropboxEntry struct {
	Tag  string `json:".tag"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

type dropboxListResult struct {
	Entries []dropboxEntry `json:"entries"`
}

// NewDropboxProvider creates a Dropbox provider
func NewDropboxProvider(client httpclient.Client, codec backup.Codec, folder string, log logger.Logger) *DropboxProvider {
	return &DropboxProvider{
		http:        client,
		codec:       codec,
		folder:      folderName(folder),
		log:         log,
		apiBase:     dropboxAPIBase,
		contentBase: dropboxContentBase,
		oauth:       endpoints.Dropbox,
	}
}

// Name returns the provider name
func (p *DropboxProvider) Name() string { return "Dropbox" }

func (p *DropboxProvider) Authenticate(ctx context.Context, creds Credentials) (bool, error) {
	token, err := resolveToken(ctx, creds, p.oauth)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if stderrors.As(err, &rerr) {
			p.log.Warn("refresh token rejected", logger.String("provider", p.Name()))
			return false, nil
		}
		return false, errors.NewNetworkError("Dropbox token refresh", err)
	}
	if token == "" {
		return false, nil
	}

	resp, err := p.http.Post(ctx, p.apiBase+"/users/get_current_account", httpclient.Options{
		Headers: map[string]string{"Authorization": bearer(token)},
	})
	if err != nil {
		return false, errors.NewNetworkError("Dropbox authentication", err)
	}
	if !resp.OK() {
		p.log.Warn("authentication rejected",
			logger.String("provider", p.Name()),
			logger.Int("status", resp.StatusCode))
		return false, nil
	}

	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
	return true, nil
}

func (p *DropboxProvider) Upload(ctx context.Context, b *backup.Backup, filename string) (string, error) {
	path, err := p.path(filename)
	if err != nil {
		return "", err
	}
	data, err := p.codec.Encode(b)
	if err != nil {
		return "", err
	}

	arg, _ := json.Marshal(map[string]any{"path": path, "mode": "overwrite", "mute": true})
	resp, err := p.http.Post(ctx, p.contentBase+"/files/upload", httpclient.Options{
		Headers: p.headers(map[string]string{
			"Content-Type":    "application/octet-stream",
			"Dropbox-API-Arg": string(arg),
		}),
		Body: data,
	})
	if err != nil {
		return "", errors.NewNetworkError("Dropbox upload", err)
	}
	if !resp.OK() {
		return "", errors.NewStatusError("Dropbox upload", resp.StatusCode, resp.Text)
	}

	var entry dropboxEntry
	if err := json.Unmarshal([]byte(resp.Text), &entry); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	p.log.Debug("uploaded backup", logger.String("path", path), logger.String("id", entry.ID))
	return entry.ID, nil
}

func (p *DropboxProvider) Download(ctx context.Context, filename string) (*backup.Backup, error) {
	path, err := p.path(filename)
	if err != nil {
		return nil, err
	}

	arg, _ := json.Marshal(map[string]string{"path": path})
	resp, err := p.http.Post(ctx, p.contentBase+"/files/download", httpclient.Options{
		Headers: p.headers(map[string]string{"Dropbox-API-Arg": string(arg)}),
	})
	if err != nil {
		return nil, errors.NewNetworkError("Dropbox download", err)
	}
	if resp.StatusCode == 409 && strings.Contains(resp.Text, "not_found") {
		return nil, errors.NewNotFoundError(fmt.Sprintf("Backup not found: %s", filename))
	}
	if !resp.OK() {
		return nil, errors.NewStatusError("Dropbox download", resp.StatusCode, resp.Text)
	}

	return p.codec.Decode([]byte(resp.Text))
}

func (p *DropboxProvider) List(ctx context.Context) ([]string, error) {
	body, _ := json.Marshal(map[string]any{"path": "/" + p.folder, "recursive": false})
	resp, err := p.http.Post(ctx, p.apiBase+"/files/list_folder", httpclient.Options{
		Headers: p.headers(map[string]string{"Content-Type": "application/json"}),
		Body:    body,
	})
	if err != nil {
		return nil, errors.NewNetworkError("Dropbox list", err)
	}
	// path/not_found: the folder is created by the first upload.
	if resp.StatusCode == 409 && strings.Contains(resp.Text, "not_found") {
		return []string{}, nil
	}
	if !resp.OK() {
		return nil, errors.NewStatusError("Dropbox list", resp.StatusCode, resp.Text)
	}

	var result dropboxListResult
	if err := json.Unmarshal([]byte(resp.Text), &result); err != nil {
		return nil, fmt.Errorf("failed to parse folder listing: %w", err)
	}
	names := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		if e.Tag == "file" {
			names = append(names, e.Name)
		}
	}
	return names, nil
}

func (p *DropboxProvider) Delete(ctx context.Context, filename string) bool {
	path, err := p.path(filename)
	if err != nil {
		return false
	}
	body, _ := json.Marshal(map[string]string{"path": path})
	resp, err := p.http.Post(ctx, p.apiBase+"/files/delete_v2", httpclient.Options{
		Headers: p.headers(map[string]string{"Content-Type": "application/json"}),
		Body:    body,
	})
	if err != nil {
		p.log.Warn("delete failed", logger.String("path", path), logger.Error(err))
		return false
	}
	return resp.OK()
}

// path builds /<folder>/<name> with traversal sequences and separators
// stripped from the name.
func (p *DropboxProvider) path(filename string) (string, error) {
	name := security.SanitizeFilename(filename)
	if name == "" {
		return "", errors.NewValidationError(fmt.Sprintf("invalid filename %q", filename))
	}
	return "/" + p.folder + "/" + name, nil
}

func (p *DropboxProvider) headers(extra map[string]string) map[string]string {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	h := map[string]string{"Authorization": bearer(token)}
	for k, v := range extra {
		h[k] = v
	}
	return h
}
