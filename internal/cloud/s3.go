package cloud

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/harshpatel5940/reelmark/internal/backup"
	"github.com/harshpatel5940/reelmark/internal/errors"
	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/security"
)

// S3Provider implements Provider for S3-compatible storage. Backups are
// objects under <prefix>/<folder>/ in the configured bucket.
type S3Provider struct {
	cfg        S3Config
	codec      backup.Codec
	folder     string
	log        logger.Logger
	httpClient *http.Client

	mu     sync.RWMutex
	client *s3.Client
}

// NewS3Provider creates a new S3 provider. The SDK client is built by
// Authenticate once credentials are known.
func NewS3Provider(cfg S3Config, codec backup.Codec, folder string, log logger.Logger) *S3Provider {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	return &S3Provider{
		cfg:    cfg,
		codec:  codec,
		folder: folderName(folder),
		log:    log,
	}
}

// Name returns the provider name
func (p *S3Provider) Name() string {
	if p.cfg.Endpoint != "" {
		return "S3-compatible"
	}
	return "AWS S3"
}

// Authenticate builds a client from static credentials: ClientID is the
// access key id, ClientSecret the secret key and AccessToken an optional
// session token. The bucket is probed with HeadBucket.
func (p *S3Provider) Authenticate(ctx context.Context, creds Credentials) (bool, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || p.cfg.Bucket == "" {
		return false, nil
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(p.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			creds.ClientID, creds.ClientSecret, creds.AccessToken)),
	}
	if p.httpClient != nil {
		opts = append(opts, config.WithHTTPClient(p.httpClient))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return false, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if p.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.cfg.Endpoint)
			o.UsePathStyle = true // Required for most S3-compatible services
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.cfg.Bucket)})
	if err != nil {
		if status := s3Status(err); status == http.StatusForbidden || status == http.StatusUnauthorized {
			p.log.Warn("authentication rejected", logger.String("provider", p.Name()), logger.Int("status", status))
			return false, nil
		}
		return false, errors.NewNetworkError("S3 authentication", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return true, nil
}

func (p *S3Provider) Upload(ctx context.Context, b *backup.Backup, filename string) (string, error) {
	client, err := p.session()
	if err != nil {
		return "", err
	}
	key, err := p.buildKey(filename)
	if err != nil {
		return "", err
	}
	data, err := p.codec.Encode(b)
	if err != nil {
		return "", err
	}

	out, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(p.codec.ContentType()),
	})
	if err != nil {
		return "", errors.NewNetworkError("S3 upload", err)
	}

	p.log.Debug("uploaded backup", logger.String("key", key))
	if out.ETag != nil && *out.ETag != "" {
		return strings.Trim(*out.ETag, `"`), nil
	}
	return key, nil
}

func (p *S3Provider) Download(ctx context.Context, filename string) (*backup.Backup, error) {
	client, err := p.session()
	if err != nil {
		return nil, err
	}
	key, err := p.buildKey(filename)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if stderrors.As(err, &noSuchKey) || s3Status(err) == http.StatusNotFound {
			return nil, errors.NewNotFoundError(fmt.Sprintf("Backup not found: %s", filename))
		}
		return nil, errors.NewNetworkError("S3 download", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NewNetworkError("S3 download", err)
	}
	return p.codec.Decode(data)
}

func (p *S3Provider) List(ctx context.Context) ([]string, error) {
	client, err := p.session()
	if err != nil {
		return nil, err
	}
	prefix := p.folderPrefix()

	names := []string{}
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.cfg.Bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.NewNetworkError("S3 list", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// Skip directories and anything nested deeper than the folder
			name := strings.TrimPrefix(key, prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

func (p *S3Provider) Delete(ctx context.Context, filename string) bool {
	client, err := p.session()
	if err != nil {
		return false
	}
	key, err := p.buildKey(filename)
	if err != nil {
		return false
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		p.log.Warn("delete failed", logger.String("key", key), logger.Error(err))
		return false
	}
	return true
}

func (p *S3Provider) session() (*s3.Client, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.client == nil {
		return nil, errors.NewAuthError(p.Name(), nil)
	}
	return p.client, nil
}

func (p *S3Provider) folderPrefix() string {
	if p.cfg.Prefix == "" {
		return p.folder + "/"
	}
	return path.Join(strings.Trim(p.cfg.Prefix, "/"), p.folder) + "/"
}

// buildKey constructs the full S3 key; the filename is reduced to a single
// safe path component first.
func (p *S3Provider) buildKey(filename string) (string, error) {
	name := security.SanitizeFilename(filename)
	if name == "" {
		return "", errors.NewValidationError(fmt.Sprintf("invalid filename %q", filename))
	}
	return p.folderPrefix() + name, nil
}

// s3Status extracts the HTTP status from an SDK error, or 0.
func s3Status(err error) int {
	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return http.StatusForbidden
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return http.StatusNotFound
		}
	}
	return 0
}
