package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-export/internal/observability"
	"github.com/yungbote/neurobridge-export/internal/platform/gcp"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

// ArchiveStore holds published packages.
type ArchiveStore interface {
	Upload(ctx context.Context, key string, r io.Reader) (*gcp.ObjectAttrs, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
}

type Exporter interface {
	Export(ctx context.Context, courseID uuid.UUID, opts Options, w io.Writer) (*RunSummary, error)
	ResolveOptions(opts Options) Options
}

type ServiceDeps struct {
	Log      *logger.Logger
	Exporter Exporter
	// Archive is optional; Publish fails with ErrInvalidArgument without it.
	Archive   ArchiveStore
	Metrics   *observability.Metrics
	KeyPrefix string
}

// Service wraps the packager with run metrics and archive publishing.
type Service struct {
	log       *logger.Logger
	exporter  Exporter
	archive   ArchiveStore
	metrics   *observability.Metrics
	keyPrefix string
}

type PublishResult struct {
	Key     string      `json:"key"`
	URL     string      `json:"url"`
	Size    int64       `json:"size"`
	Summary *RunSummary `json:"summary"`
}

type PublishedArchive struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func NewService(deps ServiceDeps) *Service {
	prefix := strings.Trim(strings.TrimSpace(deps.KeyPrefix), "/")
	if prefix == "" {
		prefix = "scorm"
	}
	return &Service{
		log:       deps.Log.With("service", "ExportService"),
		exporter:  deps.Exporter,
		archive:   deps.Archive,
		metrics:   deps.Metrics,
		keyPrefix: prefix,
	}
}

func (s *Service) CanPublish() bool {
	return s != nil && s.archive != nil
}

func (s *Service) Export(ctx context.Context, courseID uuid.UUID, opts Options, w io.Writer) (*RunSummary, error) {
	started := time.Now()
	summary, err := s.exporter.Export(ctx, courseID, opts, w)
	s.observe(opts, summary, err, time.Since(started))
	if err != nil {
		s.log.Warn("Export failed", "course_id", courseID.String(), "error", err)
		return nil, err
	}
	return summary, nil
}

// Publish streams the package straight into the archive bucket. The object
// key embeds the run id so republishing never overwrites an earlier package.
func (s *Service) Publish(ctx context.Context, courseID uuid.UUID, opts Options) (*PublishResult, error) {
	if s.archive == nil {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "publish", "archive storage not configured", nil)
	}
	opts = s.exporter.ResolveOptions(opts)
	if opts.RunID == uuid.Nil {
		opts.RunID = uuid.New()
	}
	key := s.ArchiveKey(courseID, opts)

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	var summary *RunSummary
	g.Go(func() error {
		var err error
		summary, err = s.Export(gctx, courseID, opts, pw)
		_ = pw.CloseWithError(err)
		return err
	})

	var attrs *gcp.ObjectAttrs
	g.Go(func() error {
		var err error
		attrs, err = s.archive.Upload(gctx, key, pr)
		// Unblock the writer side if the upload gave up early.
		_ = pr.CloseWithError(err)
		return err
	})

	// Either side failing closes the pipe with its error, so the sentinel of
	// an export failure survives whichever goroutine reports first.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("publish %s: %w", key, err)
	}

	s.log.Info("Export published", "course_id", courseID.String(), "key", key, "bytes", attrs.Size)
	return &PublishResult{Key: attrs.Key, URL: attrs.URL, Size: attrs.Size, Summary: summary}, nil
}

// ListPublished returns the course's published packages, newest key last.
func (s *Service) ListPublished(ctx context.Context, courseID uuid.UUID) ([]PublishedArchive, error) {
	if s.archive == nil {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "list published", "archive storage not configured", nil)
	}
	keys, err := s.archive.ListKeys(ctx, path.Join(s.keyPrefix, courseID.String())+"/")
	if err != nil {
		return nil, exporterrors.Wrap(exporterrors.ErrUpstreamUnavailable, "list published", courseID.String(), err)
	}
	sort.Strings(keys)
	out := make([]PublishedArchive, 0, len(keys))
	for _, k := range keys {
		if path.Ext(k) != ".zip" {
			continue
		}
		out = append(out, PublishedArchive{Key: k, URL: s.archive.PublicURL(k)})
	}
	return out, nil
}

func (s *Service) ArchiveKey(courseID uuid.UUID, opts Options) string {
	name := fmt.Sprintf("%s-%s-%s.zip", opts.Profile, opts.Mode, opts.RunID)
	if opts.Profile == "" || opts.Mode == "" {
		name = fmt.Sprintf("%s.zip", opts.RunID)
	}
	return path.Join(s.keyPrefix, courseID.String(), name)
}

func (s *Service) observe(opts Options, summary *RunSummary, err error, dur time.Duration) {
	o := observability.ExportObservation{
		Profile:  string(opts.Profile),
		Mode:     string(opts.Mode),
		Outcome:  outcomeFor(err),
		Duration: dur,
	}
	if summary != nil {
		o.Profile = string(summary.Profile)
		o.Mode = string(summary.Mode)
		o.Generated = len(summary.Generated)
		o.VideoBundled = len(summary.VideoBundled)
		o.VideoSkipped = len(summary.VideoSkipped)
		o.TestDegraded = len(summary.TestDegraded)
		o.ContentFallback = len(summary.ContentFallback)
		o.Failed = len(summary.Failed)
	}
	s.metrics.ObserveExport(o)
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, exporterrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, exporterrors.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
