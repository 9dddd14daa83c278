// Package cloud provides cloud storage integration for bookmark backups.
// Every vendor sits behind the Provider contract; Manager tracks the
// authenticated provider and implements upload, download and merge-sync on
// top of it.
package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/httpclient"
	"github.com/harshpatel5940/reelmark/internal/logger"
)

// DefaultFolder is the application folder (or key prefix) backups live in.
const DefaultFolder = "reelmark"

// Provider defines the interface for cloud storage providers
type Provider interface {
	// Authenticate establishes a session. Missing or rejected credentials
	// return false with a nil error; err is only set for transport failures.
	Authenticate(ctx context.Context, creds Credentials) (bool, error)

	// Upload stores the encoded backup under filename inside the application
	// folder and returns the vendor-assigned id.
	Upload(ctx context.Context, b *backup.Backup, filename string) (string, error)

	// Download fetches and decodes the backup stored under filename.
	Download(ctx context.Context, filename string) (*backup.Backup, error)

	// List returns the names in the application folder. A folder that does
	// not exist yet yields an empty list.
	List(ctx context.Context) ([]string, error)

	// Delete removes filename, reporting false on any failure.
	Delete(ctx context.Context, filename string) bool

	// Name returns the provider display name
	Name() string
}

// Kind identifies a provider implementation.
type Kind string

const (
	KindGDrive  Kind = "gdrive"
	KindDropbox Kind = "dropbox"
	KindS3      Kind = "s3"
	KindAzure   Kind = "azure"
)

// Kinds lists every supported provider in display order.
func Kinds() []Kind {
	return []Kind{KindGDrive, KindDropbox, KindS3, KindAzure}
}

// Credentials is the authentication material passed to Authenticate. It is
// never persisted by this package.
type Credentials struct {
	AccessToken  string `json:"accessToken,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// IsEmpty reports whether no field is set.
func (c Credentials) IsEmpty() bool {
	return c == Credentials{}
}

// S3Config holds settings for S3-compatible storage (AWS, MinIO, R2, B2...).
type S3Config struct {
	Bucket   string `mapstructure:"bucket" yaml:"bucket"`
	Region   string `mapstructure:"region" yaml:"region"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// AzureConfig holds settings for Azure Blob Storage.
type AzureConfig struct {
	AccountURL  string `mapstructure:"account_url" yaml:"account_url"`
	AccountName string `mapstructure:"account_name" yaml:"account_name,omitempty"`
	Container   string `mapstructure:"container" yaml:"container"`
}

// Config holds cloud storage configuration
type Config struct {
	Folder  string
	Timeout time.Duration
	Agent   string
	S3      S3Config
	Azure   AzureConfig
}

// NewProviders builds every provider kind. Providers are cheap until
// Authenticate is called, so all of them are registered up front.
func NewProviders(cfg Config, codec backup.Codec, log logger.Logger) map[Kind]Provider {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := httpclient.New(cfg.Timeout, cfg.Agent)

	return map[Kind]Provider{
		KindGDrive:  NewGDriveProvider(client, codec, cfg.Folder, log),
		KindDropbox: NewDropboxProvider(client, codec, cfg.Folder, log),
		KindS3:      NewS3Provider(cfg.S3, codec, cfg.Folder, log),
		KindAzure:   NewAzureProvider(cfg.Azure, codec, cfg.Folder, log),
	}
}

// ParseKind converts a user-supplied provider id.
func ParseKind(id string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == id {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported cloud provider: %s", id)
}
