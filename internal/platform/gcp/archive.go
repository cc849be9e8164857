// Package gcp publishes export archives to Cloud Storage.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type ArchiveStoreConfig struct {
	Bucket      string
	CDNDomain   string
	Credentials string
	// PublicBaseURL overrides the host used in returned object URLs.
	PublicBaseURL string
	Storage       ObjectStorageConfig
	// UploadTimeout bounds a single upload.
	UploadTimeout time.Duration
}

type ObjectAttrs struct {
	Key         string
	Size        int64
	ContentType string
	Updated     time.Time
	URL         string
}

type ArchiveStore interface {
	Upload(ctx context.Context, key string, r io.Reader) (*ObjectAttrs, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
	Close() error
}

type archiveStore struct {
	log    *logger.Logger
	client *storage.Client
	cfg    ArchiveStoreConfig
}

func NewArchiveStore(ctx context.Context, log *logger.Logger, cfg ArchiveStoreConfig) (ArchiveStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing archive bucket name")
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 10 * time.Minute
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.PublicBaseURL != "" {
		if u, err := url.Parse(cfg.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid public base url %q", cfg.PublicBaseURL)
		}
	}

	client, err := newStorageClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "ArchiveStore")
	serviceLog.Info("Archive storage initialized", "mode", cfg.Storage.Mode, "bucket", cfg.Bucket, "emulator_host", cfg.Storage.EmulatorHost)
	return &archiveStore{log: serviceLog, client: client, cfg: cfg}, nil
}

func newStorageClient(ctx context.Context, cfg ArchiveStoreConfig) (*storage.Client, error) {
	if cfg.Storage.IsEmulatorMode() {
		// The storage client only honours the emulator through the environment.
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.Storage.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	opts := ClientOptions(cfg.Credentials)
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	return storage.NewClient(ctx, opts...)
}

func (s *archiveStore) Upload(ctx context.Context, key string, r io.Reader) (*ObjectAttrs, error) {
	key = cleanKey(key)
	if key == "" {
		return nil, fmt.Errorf("empty object key")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.cfg.Bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeForKey(key)
	if path.Ext(key) == ".zip" {
		w.ContentDisposition = fmt.Sprintf("attachment; filename=%q", path.Base(key))
	}
	n, err := io.Copy(w, r)
	if err != nil {
		// Cancelling before Close discards the partial object.
		cancel()
		_ = w.Close()
		return nil, fmt.Errorf("failed to write %q to GCS: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer for %q: %w", key, err)
	}

	out := &ObjectAttrs{Key: key, Size: n, ContentType: w.ContentType, URL: s.PublicURL(key)}
	if attrs := w.Attrs(); attrs != nil {
		out.Size = attrs.Size
		out.Updated = attrs.Updated
	}
	s.log.Info("Archive uploaded", "key", key, "bytes", out.Size)
	return out, nil
}

func (s *archiveStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := s.client.Bucket(s.cfg.Bucket).Objects(ctx, &storage.Query{Prefix: cleanKey(prefix)})
	out := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (s *archiveStore) PublicURL(key string) string {
	return publicURL(s.cfg, cleanKey(key))
}

func (s *archiveStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func publicURL(cfg ArchiveStoreConfig, key string) string {
	if cfg.CDNDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.Trim(cfg.CDNDomain, "/"), key)
	}
	if cfg.Storage.IsEmulatorMode() {
		base := cfg.PublicBaseURL
		if base == "" {
			base = cfg.Storage.EmulatorHost
		}
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", base, url.PathEscape(cfg.Bucket), url.PathEscape(key))
	}
	if cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", cfg.PublicBaseURL, cfg.Bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", cfg.Bucket, key)
}

func cleanKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".zip":
		return "application/zip"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".html":
		return "text/html; charset=utf-8"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}
