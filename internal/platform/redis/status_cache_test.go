package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/modules/export/video"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

func TestStatusCodec(t *testing.T) {
	st := video.ProviderStatus{VideoID: "v1", Status: model.VideoCompleted, DownloadURL: "https://cdn/v1.mp4", Progress: 100}
	raw, err := encodeStatus(st)
	if err != nil {
		t.Fatalf("encodeStatus: %v", err)
	}
	got, ok := decodeStatus(raw)
	if !ok || got != st {
		t.Fatalf("decodeStatus: ok=%v got=%+v", ok, got)
	}

	for _, bad := range []string{
		`not json`,
		`{"video_id":"v1","status":"completed"}`,
		`{"video_id":"v1","status":"generating","download_url":"https://cdn/v1.mp4"}`,
	} {
		if _, ok := decodeStatus([]byte(bad)); ok {
			t.Fatalf("decodeStatus(%s): expected miss", bad)
		}
	}
}

func TestStatusCacheNilSafe(t *testing.T) {
	var c *StatusCache
	if _, ok := c.Get(context.Background(), "v1"); ok {
		t.Fatalf("nil cache should miss")
	}
	c.Set(context.Background(), video.ProviderStatus{VideoID: "v1"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStatusCacheRedis(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration tests")
	}
	ctx := context.Background()
	c, err := NewStatusCache(ctx, logger.Nop(), StatusCacheConfig{
		Addr:      addr,
		KeyPrefix: fmt.Sprintf("export-test:%d:", time.Now().UnixNano()),
		TTL:       time.Minute,
	})
	if err != nil {
		t.Fatalf("NewStatusCache: %v", err)
	}
	defer c.Close()

	if _, ok := c.Get(ctx, "v1"); ok {
		t.Fatalf("expected miss before set")
	}
	c.Set(ctx, video.ProviderStatus{VideoID: "v2", Status: model.VideoGenerating, DownloadURL: "https://cdn/v2.mp4"})
	if _, ok := c.Get(ctx, "v2"); ok {
		t.Fatalf("non-completed status must not be cached")
	}
	c.Set(ctx, video.ProviderStatus{VideoID: "v1", Status: model.VideoCompleted, DownloadURL: "https://cdn/v1.mp4"})
	got, ok := c.Get(ctx, "v1")
	if !ok || got.DownloadURL != "https://cdn/v1.mp4" {
		t.Fatalf("expected hit, got ok=%v %+v", ok, got)
	}
}
