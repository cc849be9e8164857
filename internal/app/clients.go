package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
	"github.com/yungbote/neurobridge-export/internal/platform/gcp"
	"github.com/yungbote/neurobridge-export/internal/platform/redis"
	"github.com/yungbote/neurobridge-export/internal/platform/videoprovider"
)

type Clients struct {
	VideoProvider *videoprovider.Client
	// StatusCache is nil when REDIS_ADDR is unset.
	StatusCache *redis.StatusCache
	// Archive is nil when EXPORT_GCS_BUCKET is unset.
	Archive gcp.ArchiveStore
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	var out Clients

	if strings.TrimSpace(cfg.Video.ProviderBaseURL) == "" {
		log.Warn("VIDEO_PROVIDER_BASE_URL not set; live status and authenticated downloads will fail over to stored URLs")
	}
	out.VideoProvider = videoprovider.NewClient(log, videoprovider.Config{
		BaseURL:  cfg.Video.ProviderBaseURL,
		APIKey:   cfg.Video.ProviderAPIKey,
		MaxBytes: cfg.Video.MaxBytes,
	})

	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		cache, err := redis.NewStatusCache(ctx, log, redis.StatusCacheConfig{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			// The cache is an optimisation; exports still work without it.
			log.Warn("Video status cache disabled", "error", err)
		} else {
			out.StatusCache = cache
		}
	}

	if bucket := strings.TrimSpace(cfg.Archive.Bucket); bucket != "" {
		storageCfg, err := cfg.ObjectStorage()
		if err != nil {
			out.Close()
			return Clients{}, err
		}
		store, err := gcp.NewArchiveStore(ctx, log, gcp.ArchiveStoreConfig{
			Bucket:        bucket,
			CDNDomain:     cfg.Archive.CDNDomain,
			Credentials:   cfg.Archive.Credentials,
			PublicBaseURL: cfg.Archive.PublicBaseURL,
			Storage:       storageCfg,
			UploadTimeout: cfg.Archive.UploadTimeout,
		})
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init archive store: %w", err)
		}
		out.Archive = store
	}

	return out, nil
}

func (c Clients) Close() {
	if c.StatusCache != nil {
		_ = c.StatusCache.Close()
	}
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
}
