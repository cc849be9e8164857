// Package redis caches live video status lookups across export runs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/modules/export/video"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

const (
	DefaultKeyPrefix = "export:video_status:"
	DefaultTTL       = 10 * time.Minute
)

type StatusCacheConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

type cachedStatus struct {
	VideoID         string  `json:"video_id"`
	Status          string  `json:"status"`
	DownloadURL     string  `json:"download_url"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	Progress        int     `json:"progress"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// StatusCache implements video.StatusCache. Cache failures are logged and
// treated as misses so a flaky redis never fails an export.
type StatusCache struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ video.StatusCache = (*StatusCache)(nil)

func NewStatusCache(ctx context.Context, log *logger.Logger, cfg StatusCacheConfig) (*StatusCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStatusCacheWithClient(log, rdb, cfg), nil
}

func NewStatusCacheWithClient(log *logger.Logger, rdb goredis.UniversalClient, cfg StatusCacheConfig) *StatusCache {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatusCache{
		log:    log.With("service", "RedisStatusCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *StatusCache) key(videoID string) string {
	return c.prefix + videoID
}

func (c *StatusCache) Get(ctx context.Context, videoID string) (video.ProviderStatus, bool) {
	if c == nil || c.rdb == nil || videoID == "" {
		return video.ProviderStatus{}, false
	}
	raw, err := c.rdb.Get(ctx, c.key(videoID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return video.ProviderStatus{}, false
	}
	if err != nil {
		c.log.Warn("Video status cache read failed", "video_id", videoID, "error", err)
		return video.ProviderStatus{}, false
	}
	st, ok := decodeStatus(raw)
	if !ok {
		c.log.Warn("Dropping unreadable cached video status", "video_id", videoID)
		_ = c.rdb.Del(ctx, c.key(videoID)).Err()
	}
	return st, ok
}

// Set stores only completed statuses that carry a download URL.
func (c *StatusCache) Set(ctx context.Context, st video.ProviderStatus) {
	if c == nil || c.rdb == nil || st.VideoID == "" {
		return
	}
	if st.Status != model.VideoCompleted || st.DownloadURL == "" {
		return
	}
	raw, err := encodeStatus(st)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(st.VideoID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Video status cache write failed", "video_id", st.VideoID, "error", err)
	}
}

func (c *StatusCache) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis not configured")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *StatusCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func encodeStatus(st video.ProviderStatus) ([]byte, error) {
	return json.Marshal(cachedStatus{
		VideoID:         st.VideoID,
		Status:          string(st.Status),
		DownloadURL:     st.DownloadURL,
		ThumbnailURL:    st.ThumbnailURL,
		Progress:        st.Progress,
		DurationSeconds: st.DurationSeconds,
	})
}

func decodeStatus(raw []byte) (video.ProviderStatus, bool) {
	var cs cachedStatus
	if err := json.Unmarshal(raw, &cs); err != nil || cs.VideoID == "" || cs.DownloadURL == "" {
		return video.ProviderStatus{}, false
	}
	if model.VideoStatus(cs.Status) != model.VideoCompleted {
		return video.ProviderStatus{}, false
	}
	return video.ProviderStatus{
		VideoID:         cs.VideoID,
		Status:          model.VideoCompleted,
		DownloadURL:     cs.DownloadURL,
		ThumbnailURL:    cs.ThumbnailURL,
		Progress:        cs.Progress,
		DurationSeconds: cs.DurationSeconds,
	}, true
}
