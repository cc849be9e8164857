package video

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

// StatusQuerier asks the provider for the live status of a video. Transport
// failures are reported through the status vocabulary (timeout,
// connection_error, api_error, not_found), never as a Go error.
type StatusQuerier interface {
	GetStatus(ctx context.Context, videoID string) ProviderStatus
}

type AuthenticatedDownloader interface {
	DownloadAuthenticated(ctx context.Context, videoID string) ([]byte, error)
}

type URLFetcher interface {
	FetchURL(ctx context.Context, rawURL string) ([]byte, error)
}

// InfoWriter persists a lesson's refreshed video record (write-through).
type InfoWriter interface {
	UpdateLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey, info model.VideoInfo) error
}

// StatusCache short-circuits repeated live status queries for finished videos.
type StatusCache interface {
	Get(ctx context.Context, videoID string) (ProviderStatus, bool)
	Set(ctx context.Context, st ProviderStatus)
}

type Outcome string

const (
	OutcomeBundled     Outcome = "bundled"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeNoVideo     Outcome = "no_video"
)

type Source string

const (
	SourceAuthenticated Source = "authenticated_download"
	SourceURL           Source = "url_fetch"
)

type Result struct {
	Key       model.LessonKey
	Outcome   Outcome
	Data      []byte
	Extension string
	Source    Source
	URL       string
	Reason    string
}

type ResolverConfig struct {
	// CDNURLTemplate builds a fallback URL for completed videos the provider
	// reports without one. "{video_id}" is replaced by the video id.
	CDNURLTemplate  string
	StatusTimeout   time.Duration
	DownloadTimeout time.Duration
	// AttemptsPerTier counts the first try, so 2 means one retry.
	AttemptsPerTier int
	RetryBackoff    time.Duration
}

func (c ResolverConfig) withDefaults() ResolverConfig {
	if c.StatusTimeout <= 0 {
		c.StatusTimeout = 15 * time.Second
	}
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 120 * time.Second
	}
	if c.AttemptsPerTier <= 0 {
		c.AttemptsPerTier = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

type Resolver struct {
	log      *logger.Logger
	cfg      ResolverConfig
	status   StatusQuerier
	download AuthenticatedDownloader
	fetch    URLFetcher
	writer   InfoWriter
	cache    StatusCache
}

func NewResolver(log *logger.Logger, cfg ResolverConfig, status StatusQuerier, download AuthenticatedDownloader, fetch URLFetcher, writer InfoWriter, cache StatusCache) *Resolver {
	return &Resolver{
		log:      log.With("service", "VideoResolver"),
		cfg:      cfg.withDefaults(),
		status:   status,
		download: download,
		fetch:    fetch,
		writer:   writer,
		cache:    cache,
	}
}

// SynthesizeURL fills the CDN template for id; empty when no template is set.
func (r *Resolver) SynthesizeURL(videoID string) string {
	tmpl := strings.TrimSpace(r.cfg.CDNURLTemplate)
	if tmpl == "" || videoID == "" {
		return ""
	}
	return strings.ReplaceAll(tmpl, "{video_id}", videoID)
}

// Resolve walks the fallback chain for one lesson. It never returns an error:
// every failure becomes an unavailable Result with a reason.
func (r *Resolver) Resolve(ctx context.Context, courseID uuid.UUID, key model.LessonKey, info *model.VideoInfo) Result {
	res := Result{Key: key, Outcome: OutcomeNoVideo}
	if info == nil || (strings.TrimSpace(info.VideoID) == "" && strings.TrimSpace(info.DownloadURL) == "" && info.Status == "") {
		res.Reason = "lesson has no video reference"
		return res
	}
	videoID := strings.TrimSpace(info.VideoID)
	log := r.log.With("lesson", key.String(), "video_id", videoID)

	candidate := ""
	storedTerminal := model.IsTerminalFailure(string(info.Status))
	if u := strings.TrimSpace(info.DownloadURL); u != "" && !storedTerminal {
		candidate = u
	}

	if candidate == "" {
		if videoID == "" {
			return r.unavailable(log, res, "stored status "+string(info.Status)+" with no video id to re-query")
		}
		st := r.liveStatus(ctx, videoID)
		if st.Malformed {
			log.Warn("Video provider returned malformed status payload", "status", st.Status)
		}
		switch {
		case st.Status == model.VideoFailed:
			return r.unavailable(log, res, "provider reports failed ("+st.ErrorCode+") "+st.ErrorMessage)
		case st.DownloadURL != "":
			candidate = st.DownloadURL
			r.persist(ctx, log, courseID, key, info, st.Status, candidate)
		case st.Status == model.VideoCompleted:
			candidate = r.SynthesizeURL(videoID)
			if candidate != "" {
				log.Info("Completed video has no URL, using synthesized CDN URL")
				r.persist(ctx, log, courseID, key, info, st.Status, candidate)
			}
		default:
			log.Info("Live status has no usable URL", "status", st.Status, "progress", st.Progress)
		}
	}

	var reasons []string
	if videoID != "" && r.download != nil {
		data, err := r.tryDownload(ctx, func(ctx context.Context) ([]byte, error) {
			return r.download.DownloadAuthenticated(ctx, videoID)
		})
		if err == nil && len(data) > 0 {
			return r.bundled(log, res, data, candidate, SourceAuthenticated)
		}
		reasons = append(reasons, "authenticated download: "+errString(err, "empty body"))
		log.Debug("Authenticated download failed, trying URL", "error", err)
	}
	if candidate != "" && r.fetch != nil {
		data, err := r.tryDownload(ctx, func(ctx context.Context) ([]byte, error) {
			return r.fetch.FetchURL(ctx, candidate)
		})
		if err == nil && len(data) > 0 {
			return r.bundled(log, res, data, candidate, SourceURL)
		}
		reasons = append(reasons, "url fetch: "+errString(err, "empty body"))
	} else if candidate == "" {
		reasons = append(reasons, "no candidate url")
	}
	return r.unavailable(log, res, strings.Join(reasons, "; "))
}

func (r *Resolver) liveStatus(ctx context.Context, videoID string) ProviderStatus {
	if r.cache != nil {
		if st, ok := r.cache.Get(ctx, videoID); ok {
			return st
		}
	}
	if r.status == nil {
		return ProviderStatus{VideoID: videoID, Status: model.VideoUnknown}
	}
	var st ProviderStatus
	for attempt := 0; attempt < r.cfg.AttemptsPerTier; attempt++ {
		if ctx.Err() != nil {
			return ProviderStatus{VideoID: videoID, Status: model.VideoTimeout}
		}
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.StatusTimeout)
		st = r.status.GetStatus(callCtx, videoID)
		cancel()
		if st.Status != model.VideoTimeout && st.Status != model.VideoConnectionError {
			break
		}
		if attempt < r.cfg.AttemptsPerTier-1 {
			sleep(ctx, httpx.JitterSleep(r.cfg.RetryBackoff))
		}
	}
	if r.cache != nil && st.Status == model.VideoCompleted && st.DownloadURL != "" {
		r.cache.Set(ctx, st)
	}
	return st
}

func (r *Resolver) tryDownload(ctx context.Context, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var data []byte
	err := httpx.Retry(ctx, r.cfg.AttemptsPerTier, r.cfg.RetryBackoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.DownloadTimeout)
		defer cancel()
		b, err := fn(callCtx)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	return data, err
}

func (r *Resolver) persist(ctx context.Context, log *logger.Logger, courseID uuid.UUID, key model.LessonKey, prev *model.VideoInfo, status model.VideoStatus, url string) {
	if r.writer == nil {
		return
	}
	updated := *prev
	updated.Status = status
	updated.DownloadURL = url
	if err := r.writer.UpdateLessonVideoInfo(ctx, courseID, key, updated); err != nil {
		log.Warn("Failed to persist refreshed video info", "error", err)
	}
}

func (r *Resolver) bundled(log *logger.Logger, res Result, data []byte, url string, src Source) Result {
	res.Outcome = OutcomeBundled
	res.Data = data
	res.URL = url
	res.Source = src
	res.Extension = ExtensionFromURL(url)
	res.Reason = "acquired via " + string(src)
	log.Info("Video acquired", "source", src, "bytes", len(data), "extension", res.Extension)
	return res
}

func (r *Resolver) unavailable(log *logger.Logger, res Result, reason string) Result {
	res.Outcome = OutcomeUnavailable
	res.Reason = strings.TrimSpace(reason)
	log.Warn("Video unavailable, packaging lesson without it", "reason", res.Reason)
	return res
}

func errString(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	return err.Error()
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
