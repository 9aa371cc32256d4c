// Package filestore releases project attachments held in external storage.
//
// Attachments are uploaded by clients directly; the service only records
// their URLs and removes the objects when a project is deleted.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrForeignURL is returned when a reference does not belong to the store.
var ErrForeignURL = errors.New("filestore: url outside store")

// Store deletes stored objects by the URL recorded on a project.
type Store interface {
	Delete(ctx context.Context, url string) error
}

// Config selects and configures a backend.
type Config struct {
	Type string // "local" or "s3"

	LocalPath string
	LocalURL  string

	S3Region    string
	S3Bucket    string
	S3Prefix    string
	S3Endpoint  string // non-AWS endpoint (MinIO etc.); enables path-style addressing
	S3AccessKey string
	S3SecretKey string
	S3BaseURL   string // public URL prefix for objects
}

// New builds the backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocal(cfg.LocalPath, cfg.LocalURL), nil
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("filestore: unknown type %q", cfg.Type)
	}
}

// Local stores files under a directory served at a URL prefix.
type Local struct {
	root    string
	urlBase string
}

func NewLocal(root, urlBase string) *Local {
	return &Local{root: root, urlBase: strings.TrimRight(urlBase, "/")}
}

// Delete removes the file behind url. Missing files are not an error.
func (l *Local) Delete(_ context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, l.urlBase+"/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	rel = path.Clean("/" + rel)[1:]
	if rel == "" {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	err := os.Remove(filepath.Join(l.root, filepath.FromSlash(rel)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 deletes objects from a bucket.
type S3 struct {
	client  objectDeleter
	bucket  string
	prefix  string
	baseURL string
}

// NewS3 loads AWS configuration (static credentials when provided, the
// default chain otherwise) and returns an S3 store.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("filestore: s3 bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("filestore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg), nil
}

func newS3(client objectDeleter, cfg Config) *S3 {
	base := cfg.S3BaseURL
	if base == "" && cfg.S3Endpoint != "" {
		base = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}
	return &S3{
		client:  client,
		bucket:  cfg.S3Bucket,
		prefix:  strings.Trim(cfg.S3Prefix, "/"),
		baseURL: strings.TrimRight(base, "/"),
	}
}

// Key maps a public URL back to its object key.
func (s *S3) Key(url string) (string, error) {
	key := url
	if s.baseURL != "" {
		var ok bool
		key, ok = strings.CutPrefix(url, s.baseURL+"/")
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
		}
	}
	key = strings.TrimLeft(key, "/")
	if s.prefix != "" && !strings.HasPrefix(key, s.prefix+"/") {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return key, nil
}

func (s *S3) Delete(ctx context.Context, url string) error {
	key, err := s.Key(url)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("filestore: delete %s: %w", key, err)
	}
	return nil
}
