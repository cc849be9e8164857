// Package videoprovider talks to the upstream video generation service and
// to the CDN that serves its renders.
package videoprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/modules/export/video"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
	"github.com/yungbote/neurobridge-export/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

const (
	DefaultStatusPath   = "/v1/videos/{video_id}"
	DefaultDownloadPath = "/v1/videos/{video_id}/content"
	DefaultMaxBytes     = 512 << 20
)

type Config struct {
	BaseURL      string
	APIKey       string
	StatusPath   string
	DownloadPath string
	// MaxBytes caps a single download; larger bodies fail the tier.
	MaxBytes int64
	// RequestTimeout is a backstop; callers normally bound each call with ctx.
	RequestTimeout time.Duration
}

type Client struct {
	log      *logger.Logger
	api      *resty.Client
	cdn      *resty.Client
	cfg      Config
	maxBytes int64
}

func NewClient(log *logger.Logger, cfg Config) *Client {
	if cfg.StatusPath == "" {
		cfg.StatusPath = DefaultStatusPath
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = DefaultDownloadPath
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}

	api := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.APIKey != "" {
		api.SetHeader("X-Api-Key", cfg.APIKey)
	}
	cdn := resty.New().SetTimeout(cfg.RequestTimeout).SetRetryCount(0)

	return &Client{
		log:      log.With("service", "VideoProviderClient"),
		api:      api,
		cdn:      cdn,
		cfg:      cfg,
		maxBytes: cfg.MaxBytes,
	}
}

// GetStatus never returns an error: transport problems map onto the status
// vocabulary so the resolver can decide whether to retry or degrade.
func (c *Client) GetStatus(ctx context.Context, videoID string) video.ProviderStatus {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("video_id", videoID).
		Get(c.cfg.StatusPath)
	if err != nil {
		st := video.ProviderStatus{VideoID: videoID, Status: classify(err), ErrorMessage: err.Error()}
		c.log.Warn("Video status query failed", "video_id", videoID, "status", st.Status, "error", err)
		return st
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return video.ProviderStatus{VideoID: videoID, Status: model.VideoNotFound}
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return video.ProviderStatus{VideoID: videoID, Status: model.VideoTimeout, ErrorCode: fmt.Sprintf("http_%d", code)}
	case code < 200 || code > 299:
		c.log.Warn("Video status query rejected", "video_id", videoID, "http_status", code)
		return video.ProviderStatus{VideoID: videoID, Status: model.VideoAPIError, ErrorCode: fmt.Sprintf("http_%d", code), ErrorMessage: truncate(resp.String(), 200)}
	}

	var body map[string]any
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		c.log.Warn("Video status payload is not JSON", "video_id", videoID, "error", err)
		return video.ProviderStatus{VideoID: videoID, Status: model.VideoUnknown, Malformed: true}
	}
	return video.Normalize(videoID, body)
}

func (c *Client) DownloadAuthenticated(ctx context.Context, videoID string) ([]byte, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "download video", "missing video id", nil)
	}
	req := c.api.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "*/*").
		SetPathParam("video_id", videoID)
	resp, err := req.Get(c.cfg.DownloadPath)
	return c.readBody("download video", resp, err)
}

// FetchURL performs an unauthenticated GET, as presigned CDN URLs reject
// extra credentials.
func (c *Client) FetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "fetch video", "missing url", nil)
	}
	resp, err := c.cdn.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	return c.readBody("fetch video", resp, err)
}

func (c *Client) readBody(op string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		if httpx.IsTimeout(err) || httpx.IsConnectionError(err) {
			return nil, exporterrors.Wrap(exporterrors.ErrUpstreamUnavailable, op, "", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	body := resp.RawBody()
	if body == nil {
		return nil, fmt.Errorf("%s: empty response", op)
	}
	defer body.Close()

	if code := resp.StatusCode(); code < 200 || code > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, &httpx.StatusError{Op: op, Status: code, Body: string(snippet)}
	}
	if resp.RawResponse != nil && resp.RawResponse.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%s: content length %d exceeds limit %d", op, resp.RawResponse.ContentLength, c.maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(body, c.maxBytes+1))
	if err != nil {
		if httpx.IsTimeout(err) || httpx.IsConnectionError(err) {
			return nil, exporterrors.Wrap(exporterrors.ErrUpstreamUnavailable, op, "read body", err)
		}
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%s: body exceeds limit %d", op, c.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty body", op)
	}
	return data, nil
}

func classify(err error) model.VideoStatus {
	switch {
	case httpx.IsTimeout(err):
		return model.VideoTimeout
	case httpx.IsConnectionError(err):
		return model.VideoConnectionError
	default:
		return model.VideoAPIError
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
