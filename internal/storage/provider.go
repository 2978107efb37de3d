// Package storage persists uploaded expression files. The default provider
// writes under a local directory; UPLOAD_STORAGE=gcs swaps in a Google Cloud
// Storage bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/wellslab/s4m-api/internal/logger"
	"github.com/wellslab/s4m-api/internal/utils"
)

// Provider saves a named file, creating any parent location it needs. Names
// use forward slashes regardless of provider.
type Provider interface {
	Save(ctx context.Context, name string, file io.Reader) error
}

// NewProvider picks a provider from the UPLOAD_STORAGE environment variable.
func NewProvider(log *logger.Logger) (Provider, error) {
	mode := utils.GetEnv("UPLOAD_STORAGE", "local", log)
	switch mode {
	case "local":
		root := utils.GetEnv("UPLOAD_FILEPATH", "uploads", log)
		return NewLocalProvider(root, log), nil
	case "gcs":
		return NewGCSProvider(log)
	default:
		return nil, fmt.Errorf("unknown UPLOAD_STORAGE mode %q", mode)
	}
}

type localProvider struct {
	root string
	log  *logger.Logger
}

func NewLocalProvider(root string, log *logger.Logger) Provider {
	return &localProvider{root: root, log: log.With("service", "LocalStorage")}
}

func (lp *localProvider) Save(ctx context.Context, name string, file io.Reader) error {
	target := filepath.Join(lp.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("Failed to create upload directory: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("Failed to create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		return fmt.Errorf("Failed to write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("Failed to close upload file: %w", err)
	}
	return nil
}

type gcsProvider struct {
	client *gcs.Client
	bucket string
	prefix string
	log    *logger.Logger
}

func NewGCSProvider(log *logger.Logger) (Provider, error) {
	serviceLog := log.With("service", "GCSStorage")
	bucket := os.Getenv("GCS_BUCKET_NAME")
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	prefix := utils.GetEnv("GCS_OBJECT_PREFIX", "uploads", log)

	ctx := context.Background()
	saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	var client *gcs.Client
	var err error
	if saPath != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(gcs.ScopeReadWrite))
	} else {
		client, err = gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to create storage client: %w", err)
	}
	return &gcsProvider{client: client, bucket: bucket, prefix: prefix, log: serviceLog}, nil
}

func (gp *gcsProvider) Save(ctx context.Context, name string, file io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := gp.client.Bucket(gp.bucket).Object(path.Join(gp.prefix, name)).NewWriter(ctx)
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("Failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Failed to close GCS writer: %w", err)
	}
	return nil
}
