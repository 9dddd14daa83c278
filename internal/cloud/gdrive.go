package cloud

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
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
	gdriveAPIBase    = "https://www.googleapis.com/drive/v3"
	gdriveUploadBase = "https://www.googleapis.com/upload/drive/v3"
	gdriveFolderMime = "application/vnd.google-apps.folder"
)

// GDriveProvider stores backups in a Google Drive folder. Drive addresses
// files by id, so every name is looked up with a search query; names are
// checked against the filename allow-list before they reach a query.
type GDriveProvider struct {
	http       httpclient.Client
	codec      backup.Codec
	folder     string
	log        logger.Logger
	apiBase    string
	uploadBase string
	oauth      oauth2.Endpoint

	mu    sync.RWMutex
	token string
}

type driveFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

// NewGDriveProvider creates a Google Drive provider
func NewGDriveProvider(client httpclient.Client, codec backup.Codec, folder string, log logger.Logger) *GDriveProvider {
	return &GDriveProvider{
		http:       client,
		codec:      codec,
		folder:     folderName(folder),
		log:        log,
		apiBase:    gdriveAPIBase,
		uploadBase: gdriveUploadBase,
		oauth:      endpoints.Google,
	}
}

// Name returns the provider name
func (p *GDriveProvider) Name() string { return "Google Drive" }

func (p *GDriveProvider) Authenticate(ctx context.Context, creds Credentials) (bool, error) {
	token, err := resolveToken(ctx, creds, p.oauth)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if stderrors.As(err, &rerr) {
			p.log.Warn("refresh token rejected", logger.String("provider", p.Name()))
			return false, nil
		}
		return false, errors.NewNetworkError("Google Drive token refresh", err)
	}
	if token == "" {
		return false, nil
	}

	resp, err := p.http.Get(ctx, p.apiBase+"/about", httpclient.Options{
		Headers: map[string]string{"Authorization": bearer(token)},
		Query:   map[string]string{"fields": "user"},
	})
	if err != nil {
		return false, errors.NewNetworkError("Google Drive authentication", err)
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

func (p *GDriveProvider) Upload(ctx context.Context, b *backup.Backup, filename string) (string, error) {
	if err := security.ValidateFilename(filename); err != nil {
		return "", errors.NewValidationError(err.Error())
	}
	data, err := p.codec.Encode(b)
	if err != nil {
		return "", err
	}

	folderID, err := p.ensureFolder(ctx)
	if err != nil {
		return "", err
	}
	existing, err := p.findFile(ctx, folderID, filename)
	if err != nil {
		return "", err
	}

	fileID := ""
	if existing != nil {
		fileID = existing.ID
	} else {
		created, err := p.createFile(ctx, folderID, filename)
		if err != nil {
			return "", err
		}
		fileID = created.ID
	}

	resp, err := p.http.Patch(ctx, p.uploadBase+"/files/"+url.PathEscape(fileID), httpclient.Options{
		Headers: p.headers(map[string]string{"Content-Type": p.codec.ContentType()}),
		Query:   map[string]string{"uploadType": "media"},
		Body:    data,
	})
	if err != nil {
		return "", errors.NewNetworkError("Google Drive upload", err)
	}
	if !resp.OK() {
		return "", errors.NewStatusError("Google Drive upload", resp.StatusCode, resp.Text)
	}

	p.log.Debug("uploaded backup", logger.String("file", filename), logger.String("id", fileID))
	return fileID, nil
}

func (p *GDriveProvider) Download(ctx context.Context, filename string) (*backup.Backup, error) {
	if err := security.ValidateFilename(filename); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	folderID, err := p.findFolder(ctx)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		return nil, errors.NewNotFoundError(fmt.Sprintf("Backup not found: %s", filename))
	}
	file, err := p.findFile(ctx, folderID, filename)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("Backup not found: %s", filename))
	}

	resp, err := p.http.Get(ctx, p.apiBase+"/files/"+url.PathEscape(file.ID), httpclient.Options{
		Headers: p.headers(nil),
		Query:   map[string]string{"alt": "media"},
	})
	if err != nil {
		return nil, errors.NewNetworkError("Google Drive download", err)
	}
	if !resp.OK() {
		return nil, errors.NewStatusError("Google Drive download", resp.StatusCode, resp.Text)
	}

	return p.codec.Decode([]byte(resp.Text))
}

func (p *GDriveProvider) List(ctx context.Context) ([]string, error) {
	folderID, err := p.findFolder(ctx)
	if err != nil {
		return nil, err
	}
	if folderID == "" {
		return []string{}, nil
	}

	files, err := p.search(ctx, fmt.Sprintf("'%s' in parents and trashed=false", folderID))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (p *GDriveProvider) Delete(ctx context.Context, filename string) bool {
	if err := security.ValidateFilename(filename); err != nil {
		p.log.Warn("refusing to delete invalid filename", logger.String("file", filename))
		return false
	}
	folderID, err := p.findFolder(ctx)
	if err != nil || folderID == "" {
		return false
	}
	file, err := p.findFile(ctx, folderID, filename)
	if err != nil || file == nil {
		return false
	}

	resp, err := p.http.Delete(ctx, p.apiBase+"/files/"+url.PathEscape(file.ID), httpclient.Options{
		Headers: p.headers(nil),
	})
	if err != nil {
		p.log.Warn("delete failed", logger.String("file", filename), logger.Error(err))
		return false
	}
	return resp.OK()
}

// findFolder returns the application folder id, or "" if it does not exist.
func (p *GDriveProvider) findFolder(ctx context.Context) (string, error) {
	files, err := p.search(ctx, fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", p.folder, gdriveFolderMime))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0].ID, nil
}

func (p *GDriveProvider) ensureFolder(ctx context.Context) (string, error) {
	id, err := p.findFolder(ctx)
	if err != nil || id != "" {
		return id, err
	}

	body, _ := json.Marshal(map[string]string{"name": p.folder, "mimeType": gdriveFolderMime})
	resp, err := p.http.Post(ctx, p.apiBase+"/files", httpclient.Options{
		Headers: p.headers(map[string]string{"Content-Type": "application/json"}),
		Body:    body,
	})
	if err != nil {
		return "", errors.NewNetworkError("Google Drive folder creation", err)
	}
	if !resp.OK() {
		return "", errors.NewStatusError("Google Drive folder creation", resp.StatusCode, resp.Text)
	}

	var folder driveFile
	if err := json.Unmarshal([]byte(resp.Text), &folder); err != nil {
		return "", fmt.Errorf("failed to parse folder response: %w", err)
	}
	p.log.Info("created backup folder", logger.String("folder", p.folder))
	return folder.ID, nil
}

// findFile looks up filename inside the folder. The name must already have
// passed ValidateFilename.
func (p *GDriveProvider) findFile(ctx context.Context, folderID, filename string) (*driveFile, error) {
	files, err := p.search(ctx, fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", filename, folderID))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

func (p *GDriveProvider) createFile(ctx context.Context, folderID, filename string) (*driveFile, error) {
	body, _ := json.Marshal(map[string]any{
		"name":     filename,
		"parents":  []string{folderID},
		"mimeType": p.codec.ContentType(),
	})
	resp, err := p.http.Post(ctx, p.apiBase+"/files", httpclient.Options{
		Headers: p.headers(map[string]string{"Content-Type": "application/json"}),
		Body:    body,
	})
	if err != nil {
		return nil, errors.NewNetworkError("Google Drive file creation", err)
	}
	if !resp.OK() {
		return nil, errors.NewStatusError("Google Drive file creation", resp.StatusCode, resp.Text)
	}

	var f driveFile
	if err := json.Unmarshal([]byte(resp.Text), &f); err != nil {
		return nil, fmt.Errorf("failed to parse file response: %w", err)
	}
	return &f, nil
}

func (p *GDriveProvider) search(ctx context.Context, query string) ([]driveFile, error) {
	resp, err := p.http.Get(ctx, p.apiBase+"/files", httpclient.Options{
		Headers: p.headers(nil),
		Query: map[string]string{
			"q":        query,
			"fields":   "files(id,name)",
			"pageSize": "1000",
			"spaces":   "drive",
		},
	})
	if err != nil {
		return nil, errors.NewNetworkError("Google Drive search", err)
	}
	if !resp.OK() {
		return nil, errors.NewStatusError("Google Drive search", resp.StatusCode, resp.Text)
	}

	var list driveFileList
	if err := json.Unmarshal([]byte(resp.Text), &list); err != nil {
		return nil, fmt.Errorf("failed to parse file list: %w", err)
	}
	return list.Files, nil
}

func (p *GDriveProvider) headers(extra map[string]string) map[string]string {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	h := map[string]string{"Authorization": bearer(token)}
	for k, v := range extra {
		h[k] = v
	}
	return h
}
