package cloud

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/security"
)

// AzureProvider stores backups as blobs named <folder>/<name> in one
// container. A SAS token (AccessToken) or the account key (APIKey) is
// accepted as credentials.
type AzureProvider struct {
	cfg       AzureConfig
	codec     backup.Codec
	folder    string
	log       logger.Logger
	transport policy.Transporter

	mu     sync.RWMutex
	client *azblob.Client
}

// NewAzureProvider creates an Azure Blob Storage provider
func NewAzureProvider(cfg AzureConfig, codec backup.Codec, folder string, log logger.Logger) *AzureProvider {
	if cfg.Container == "" {
		cfg.Container = DefaultFolder
	}
	return &AzureProvider{
		cfg:    cfg,
		codec:  codec,
		folder: folderName(folder),
		log:    log,
	}
}

// Name returns the provider name
func (p *AzureProvider) Name() string { return "Azure Blob Storage" }

func (p *AzureProvider) Authenticate(ctx context.Context, creds Credentials) (bool, error) {
	if p.cfg.AccountURL == "" {
		return false, nil
	}

	opts := &azblob.ClientOptions{}
	if p.transport != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: p.transport}
	}

	var client *azblob.Client
	var err error
	switch {
	case creds.APIKey != "":
		if p.cfg.AccountName == "" {
			return false, nil
		}
		cred, kerr := azblob.NewSharedKeyCredential(p.cfg.AccountName, creds.APIKey)
		if kerr != nil {
			p.log.Warn("invalid account key", logger.Error(kerr))
			return false, nil
		}
		client, err = azblob.NewClientWithSharedKeyCredential(p.cfg.AccountURL, cred, opts)
	case creds.AccessToken != "":
		client, err = azblob.NewClientWithNoCredential(sasURL(p.cfg.AccountURL, creds.AccessToken), opts)
	default:
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create Azure client: %w", err)
	}

	_, err = client.ServiceClient().NewContainerClient(p.cfg.Container).GetProperties(ctx, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerNotFound) {
		if status := azureStatus(err); status == http.StatusForbidden || status == http.StatusUnauthorized {
			p.log.Warn("authentication rejected", logger.String("provider", p.Name()), logger.Int("status", status))
			return false, nil
		}
		return false, errors.NewNetworkError("Azure authentication", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return true, nil
}

func (p *AzureProvider) Upload(ctx context.Context, b *backup.Backup, filename string) (string, error) {
	client, err := p.session()
	if err != nil {
		return "", err
	}
	name, err := p.blobName(filename)
	if err != nil {
		return "", err
	}
	data, err := p.codec.Encode(b)
	if err != nil {
		return "", err
	}

	if _, err := client.CreateContainer(ctx, p.cfg.Container, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return "", errors.NewNetworkError("Azure container creation", err)
	}

	contentType := p.codec.ContentType()
	_, err = client.UploadBuffer(ctx, p.cfg.Container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", errors.NewNetworkError("Azure upload", err)
	}

	p.log.Debug("uploaded backup", logger.String("blob", name))
	return name, nil
}

func (p *AzureProvider) Download(ctx context.Context, filename string) (*backup.Backup, error) {
	client, err := p.session()
	if err != nil {
		return nil, err
	}
	name, err := p.blobName(filename)
	if err != nil {
		return nil, err
	}

	resp, err := client.DownloadStream(ctx, p.cfg.Container, name, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("Backup not found: %s", filename))
		}
		return nil, errors.NewNetworkError("Azure download", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError("Azure download", err)
	}
	return p.codec.Decode(data)
}

func (p *AzureProvider) List(ctx context.Context) ([]string, error) {
	client, err := p.session()
	if err != nil {
		return nil, err
	}
	prefix := p.folder + "/"

	names := []string{}
	pager := client.NewListBlobsFlatPager(p.cfg.Container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return []string{}, nil
			}
			return nil, errors.NewNetworkError("Azure list", err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			name := strings.TrimPrefix(*item.Name, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func (p *AzureProvider) Delete(ctx context.Context, filename string) bool {
	client, err := p.session()
	if err != nil {
		return false
	}
	name, err := p.blobName(filename)
	if err != nil {
		return false
	}
	if _, err := client.DeleteBlob(ctx, p.cfg.Container, name, nil); err != nil {
		p.log.Warn("delete failed", logger.String("blob", name), logger.Error(err))
		return false
	}
	return true
}

func (p *AzureProvider) session() (*azblob.Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, errors.NewAuthError(p.Name(), nil)
	}
	return p.client, nil
}

func (p *AzureProvider) blobName(filename string) (string, error) {
	name := security.SanitizeFilename(filename)
	if name == "" {
		return "", errors.NewValidationError(fmt.Sprintf("invalid filename %q", filename))
	}
	return p.folder + "/" + name, nil
}

// sasURL appends a SAS token to the account URL.
// Format: https://{account}.blob.core.windows.net/?{sas_token}
func sasURL(accountURL, token string) string {
	token = strings.TrimPrefix(token, "?")
	if strings.Contains(accountURL, "?") {
		return accountURL
	}
	return strings.TrimSuffix(accountURL, "/") + "/?" + token
}

func azureStatus(err error) int {
	var respErr *azcore.ResponseError
	if stderrors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
