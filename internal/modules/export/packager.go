// Package export assembles a course snapshot into a SCORM package.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
	"github.com/yungbote/neurobridge-export/internal/modules/export/video"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

// ContentStore is the read side of course storage plus the video write-through.
// Lesson lookups return (nil, nil) when the row does not exist.
type ContentStore interface {
	GetCourse(ctx context.Context, courseID uuid.UUID) (*model.Course, error)
	GetLessonContent(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.LessonContent, error)
	GetLessonTest(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.Test, error)
	GetLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.VideoInfo, error)
	UpdateLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey, info model.VideoInfo) error
}

type VideoResolver interface {
	Resolve(ctx context.Context, courseID uuid.UUID, key model.LessonKey, info *model.VideoInfo) video.Result
}

type Options struct {
	Profile          scorm.Profile
	Mode             scorm.Mode
	VideoConcurrency int
	// SkipVideos packages pages only; every video is reported skipped.
	SkipVideos bool
	Host       scorm.HostOptions
	// RunID names the run; zero picks a fresh one.
	RunID uuid.UUID
}

type PackagerDeps struct {
	Log      *logger.Logger
	Store    ContentStore
	Resolver VideoResolver
	Defaults Options
}

type Packager struct {
	log      *logger.Logger
	store    ContentStore
	resolver VideoResolver
	defaults Options
}

func NewPackager(deps PackagerDeps) *Packager {
	if deps.Defaults.Profile == "" {
		deps.Defaults.Profile = scorm.Profile2004
	}
	if deps.Defaults.Mode == "" {
		deps.Defaults.Mode = scorm.ModeMulti
	}
	if deps.Defaults.VideoConcurrency <= 0 {
		deps.Defaults.VideoConcurrency = 4
	}
	return &Packager{
		log:      deps.Log.With("service", "ScormPackager"),
		store:    deps.Store,
		resolver: deps.Resolver,
		defaults: deps.Defaults,
	}
}

// lessonJob carries everything gathered for one lesson. The video result
// arrives on ready while earlier lessons are still being written.
type lessonJob struct {
	module    model.Module
	lesson    model.Lesson
	key       model.LessonKey
	content   *model.LessonContent
	test      *scorm.GradableTest
	videoInfo *model.VideoInfo
	video     video.Result
	ready     chan video.Result
}

// Export writes the package for courseID to w. Only a failure to read the
// course itself, an invalid option, or cancellation returns an error; lesson
// level problems are recorded in the summary.
func (p *Packager) Export(ctx context.Context, courseID uuid.UUID, opts Options, w io.Writer) (*RunSummary, error) {
	opts = p.ResolveOptions(opts)
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	log := p.log.With("run_id", runID.String(), "course_id", courseID.String(), "profile", opts.Profile, "mode", opts.Mode)

	ctx, span := otel.Tracer("neurobridge-export/export").Start(ctx, "scorm.export")
	defer span.End()
	span.SetAttributes(
		attribute.String("course.id", courseID.String()),
		attribute.String("scorm.profile", string(opts.Profile)),
		attribute.String("scorm.mode", string(opts.Mode)),
	)

	if courseID == uuid.Nil {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "export", "missing course id", nil)
	}

	course, err := p.store.GetCourse(ctx, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "course read failed")
		return nil, fmt.Errorf("export course %s: %w", courseID, err)
	}
	if course == nil {
		return nil, exporterrors.Wrap(exporterrors.ErrNotFound, "export", "course "+courseID.String(), nil)
	}

	summary := newRunSummary(runID, courseID, opts)
	started := time.Now()

	jobs, err := p.gather(ctx, log, course, opts, summary)
	if err != nil {
		return nil, err
	}
	videos := p.startVideos(ctx, course.ID, opts, jobs)
	err = p.assemble(ctx, log, course, opts, jobs, videos, summary, w)
	videos.stop()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "assemble failed")
		return nil, err
	}

	summary.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("lessons.generated", len(summary.Generated)),
		attribute.Int("lessons.video_bundled", len(summary.VideoBundled)),
		attribute.Int("lessons.failed", len(summary.Failed)),
	)
	log.Info("SCORM export finished",
		"generated", len(summary.Generated),
		"video_bundled", len(summary.VideoBundled),
		"video_skipped", len(summary.VideoSkipped),
		"test_degraded", len(summary.TestDegraded),
		"content_fallback", len(summary.ContentFallback),
		"failed", len(summary.Failed),
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

// ResolveOptions fills every unset option from the packager defaults. Export
// applies it itself; callers that name things after the options use it first.
func (p *Packager) ResolveOptions(o Options) Options {
	if o.Profile == "" {
		o.Profile = p.defaults.Profile
	}
	if o.Mode == "" {
		o.Mode = p.defaults.Mode
	}
	if o.VideoConcurrency <= 0 {
		o.VideoConcurrency = p.defaults.VideoConcurrency
	}
	if o.Host.APIObjectName == "" && o.Host.MaxHops == 0 {
		o.Host = p.defaults.Host
	}
	o.SkipVideos = o.SkipVideos || p.defaults.SkipVideos
	return o
}

// gather reads content, test and video reference for every lesson. Store
// errors on a lesson degrade that lesson instead of failing the run.
func (p *Packager) gather(ctx context.Context, log *logger.Logger, course *model.Course, opts Options, s *RunSummary) ([]*lessonJob, error) {
	var jobs []*lessonJob
	for _, mod := range course.Modules {
		for _, lesson := range mod.Lessons {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			key := model.LessonKey{ModuleNumber: mod.Number, LessonIndex: lesson.Index}
			llog := log.With("lesson", key.String())
			job := &lessonJob{module: mod, lesson: lesson, key: key}

			content, err := p.store.GetLessonContent(ctx, course.ID, key)
			if err != nil {
				llog.Warn("Lesson content unreadable, using outline fallback", "error", err)
				content = nil
			}
			job.content = content
			if !scorm.HasDetailedContent(content) {
				s.ContentFallback = append(s.ContentFallback, key.String())
			}

			test, err := p.store.GetLessonTest(ctx, course.ID, key)
			if err != nil {
				llog.Warn("Lesson test unreadable, packaging content only", "error", err)
				s.TestDegraded = append(s.TestDegraded, key.String())
			} else {
				if test == nil && content != nil {
					test = content.Test
				}
				gt, issues := scorm.NormalizeTest(test)
				for _, is := range issues {
					llog.Warn("Dropped or repaired malformed test question", "question", is.Question, "reason", is.Reason)
				}
				if test != nil && gt == nil {
					s.TestDegraded = append(s.TestDegraded, key.String())
				}
				job.test = gt
			}

			if !opts.SkipVideos {
				info, err := p.store.GetLessonVideoInfo(ctx, course.ID, key)
				if err != nil {
					llog.Warn("Lesson video reference unreadable", "error", err)
				}
				if info == nil && content != nil {
					info = content.Video
				}
				job.videoInfo = info
			}
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// videoWindow resolves videos ahead of the archive writer. A lesson takes a
// slot before its fallback chain starts and gives it back only once the
// writer is done with it, so at most VideoConcurrency results (and their
// bytes) are held at any time. Slots are taken in lesson order, which keeps
// the writer from waiting on a lesson that cannot start.
type videoWindow struct {
	slots  chan struct{}
	cancel context.CancelFunc
	g      *errgroup.Group
}

func (p *Packager) startVideos(ctx context.Context, courseID uuid.UUID, opts Options, jobs []*lessonJob) *videoWindow {
	for _, j := range jobs {
		j.ready = make(chan video.Result, 1)
	}
	if opts.SkipVideos || p.resolver == nil {
		for _, j := range jobs {
			j.ready <- video.Result{Key: j.key, Outcome: video.OutcomeNoVideo, Reason: "videos disabled"}
		}
		return &videoWindow{}
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	vw := &videoWindow{slots: make(chan struct{}, opts.VideoConcurrency), cancel: cancel, g: g}
	g.Go(func() error {
		for _, j := range jobs {
			select {
			case vw.slots <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			j := j
			g.Go(func() error {
				sctx, span := otel.Tracer("neurobridge-export/export").Start(gctx, "scorm.resolve_video")
				span.SetAttributes(attribute.String("lesson", j.key.String()))
				res := p.resolver.Resolve(sctx, courseID, j.key, j.videoInfo)
				span.SetAttributes(attribute.String("video.outcome", string(res.Outcome)))
				span.End()
				j.ready <- res
				return nil
			})
		}
		return nil
	})
	return vw
}

// next blocks until the lesson's video is resolved.
func (vw *videoWindow) next(ctx context.Context, j *lessonJob) (video.Result, error) {
	select {
	case res := <-j.ready:
		return res, nil
	case <-ctx.Done():
		return video.Result{}, ctx.Err()
	}
}

// release hands the lesson's slot to the next lesson waiting to resolve.
func (vw *videoWindow) release() {
	if vw.slots != nil {
		<-vw.slots
	}
}

// stop abandons lessons not yet started and waits for the ones in flight.
func (vw *videoWindow) stop() {
	if vw.cancel == nil {
		return
	}
	vw.cancel()
	_ = vw.g.Wait()
}

// assemble is the single writer of the archive. Pages are rendered fully
// before their entries are created; the manifest and landing page list only
// the lessons that made it into the archive.
func (p *Packager) assemble(ctx context.Context, log *logger.Logger, course *model.Course, opts Options, jobs []*lessonJob, vw *videoWindow, s *RunSummary, w io.Writer) error {
	zw := zip.NewWriter(w)
	modified := time.Now().UTC()

	included := map[model.LessonKey]bool{}
	videos := map[model.LessonKey]string{}

	if err := writeEntry(zw, scorm.RuntimeScriptPath, scorm.RuntimeShim(opts.Profile, opts.Host), modified, zip.Deflate); err != nil {
		return err
	}

	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		llog := log.With("lesson", j.key.String())
		res, err := vw.next(ctx, j)
		if err != nil {
			return err
		}
		j.video = res
		err = p.writeLesson(zw, llog, course, j, modified, included, videos, s)
		j.video.Data = nil
		vw.release()
		if err != nil {
			return err
		}
	}

	packaged := filterCourse(course, included)
	manifest, err := scorm.BuildManifest(packaged, videos, opts.Profile, opts.Mode)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	raw, err := manifest.Marshal()
	if err != nil {
		return err
	}
	if err := writeEntry(zw, scorm.ManifestPath, raw, modified, zip.Deflate); err != nil {
		return err
	}
	index, err := scorm.RenderIndex(packaged, videos)
	if err != nil {
		return err
	}
	if err := writeEntry(zw, scorm.IndexPath, index, modified, zip.Deflate); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// writeLesson adds one lesson's page and bundled video. Only archive write
// errors are returned; a page that fails to render is recorded and left out.
func (p *Packager) writeLesson(zw *zip.Writer, llog *logger.Logger, course *model.Course, j *lessonJob, modified time.Time, included map[model.LessonKey]bool, videos map[model.LessonKey]string, s *RunSummary) error {
	videoPath := ""
	if j.video.Outcome == video.OutcomeBundled {
		videoPath = scorm.VideoPath(j.key, j.video.Extension)
	}
	page, err := scorm.RenderLessonPage(scorm.PageInput{
		CourseTitle: course.Title,
		Module:      j.module,
		Lesson:      j.lesson,
		Content:     j.content,
		Test:        j.test,
		VideoPath:   videoPath,
	})
	if err != nil {
		llog.Error("Lesson page render failed, leaving lesson out", "error", err)
		s.Failed = append(s.Failed, j.key.String())
		return nil
	}
	if err := writeEntry(zw, scorm.PagePath(j.key), page, modified, zip.Deflate); err != nil {
		return err
	}
	included[j.key] = true
	s.Generated = append(s.Generated, j.key.String())

	switch j.video.Outcome {
	case video.OutcomeBundled:
		// Video containers are already compressed.
		if err := writeEntry(zw, videoPath, j.video.Data, modified, zip.Store); err != nil {
			return err
		}
		videos[j.key] = videoPath
		s.VideoBundled = append(s.VideoBundled, j.key.String())
	case video.OutcomeUnavailable:
		s.VideoSkipped = append(s.VideoSkipped, j.key.String())
		s.addReason(j.key, j.video.Reason)
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time, method uint16) error {
	f, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// filterCourse keeps modules as they are (empty ones included) but drops
// lessons whose page never reached the archive.
func filterCourse(c *model.Course, included map[model.LessonKey]bool) model.Course {
	out := model.Course{ID: c.ID, Title: c.Title, Audience: c.Audience}
	for _, m := range c.Modules {
		fm := model.Module{Number: m.Number, Title: m.Title, Goal: m.Goal}
		for _, l := range m.Lessons {
			if included[model.LessonKey{ModuleNumber: m.Number, LessonIndex: l.Index}] {
				fm.Lessons = append(fm.Lessons, l)
			}
		}
		out.Modules = append(out.Modules, fm)
	}
	return out
}
