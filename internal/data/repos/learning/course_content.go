package learning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/neurobridge-export/internal/domain/learning/course"
	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
	"github.com/yungbote/neurobridge-export/internal/pkg/jsonrepair"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

// CourseContentRepo is the gorm-backed content store the exporter reads from.
// Lessons are addressed by (course id, module number, lesson index).
type CourseContentRepo interface {
	GetCourse(ctx context.Context, courseID uuid.UUID) (*model.Course, error)
	GetLessonContent(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.LessonContent, error)
	GetLessonTest(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.Test, error)
	GetLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.VideoInfo, error)
	UpdateLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey, info model.VideoInfo) error

	CreateCourse(ctx context.Context, tx *gorm.DB, c *course.Course) (*course.Course, error)
	CreateLessonArtifacts(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, content *course.LessonContent, test *course.LessonTest, video *course.LessonVideo) error
}

type courseContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseContentRepo(db *gorm.DB, baseLog *logger.Logger) CourseContentRepo {
	repoLog := baseLog.With("repo", "CourseContentRepo")
	return &courseContentRepo{db: db, log: repoLog}
}

// CreateCourse inserts a course with its nested modules and lessons.
func (r *courseContentRepo) CreateCourse(ctx context.Context, tx *gorm.DB, c *course.Course) (*course.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if c == nil {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "create course", "nil course", nil)
	}
	if err := transaction.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CreateLessonArtifacts attaches the optional content, test and video rows to
// an existing lesson. Nil rows are skipped.
func (r *courseContentRepo) CreateLessonArtifacts(ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, content *course.LessonContent, test *course.LessonTest, video *course.LessonVideo) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if lessonID == uuid.Nil {
		return exporterrors.Wrap(exporterrors.ErrInvalidArgument, "create lesson artifacts", "missing lesson id", nil)
	}
	db := transaction.WithContext(ctx)
	if content != nil {
		content.LessonID = lessonID
		if err := db.Create(content).Error; err != nil {
			return fmt.Errorf("create lesson content: %w", err)
		}
	}
	if test != nil {
		test.LessonID = lessonID
		if err := db.Create(test).Error; err != nil {
			return fmt.Errorf("create lesson test: %w", err)
		}
	}
	if video != nil {
		video.LessonID = lessonID
		if err := db.Create(video).Error; err != nil {
			return fmt.Errorf("create lesson video: %w", err)
		}
	}
	return nil
}

func (r *courseContentRepo) GetCourse(ctx context.Context, courseID uuid.UUID) (*model.Course, error) {
	var row course.Course
	err := r.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "number"}})
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "index"}})
		}).
		Where("id = ?", courseID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, exporterrors.Wrap(exporterrors.ErrNotFound, "get course", courseID.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get course %s: %w", courseID, err)
	}

	out := &model.Course{ID: row.ID, Title: row.Title, Audience: row.Audience}
	for _, m := range row.Modules {
		if m == nil {
			continue
		}
		mod := model.Module{Number: m.Number, Title: m.Title, Goal: m.Goal}
		for _, l := range m.Lessons {
			if l == nil {
				continue
			}
			outline, _, err := decodeLoose(l.Outline, "outline")
			if err != nil {
				r.log.Warn("Lesson outline unreadable, ignoring", "lesson_id", l.ID, "error", err)
			}
			mod.Lessons = append(mod.Lessons, model.Lesson{
				Index:            l.Index,
				Title:            l.Title,
				Goal:             l.Goal,
				Format:           l.Format,
				EstimatedMinutes: l.EstimatedMinutes,
				Outline:          stringList(outline),
			})
		}
		out.Modules = append(out.Modules, mod)
	}
	return out, nil
}

func (r *courseContentRepo) lessonID(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (uuid.UUID, error) {
	var l course.Lesson
	err := r.db.WithContext(ctx).
		Model(&course.Lesson{}).
		Select("lesson.id").
		Joins("JOIN course_module ON course_module.id = lesson.module_id").
		Where(`course_module.course_id = ? AND course_module.number = ? AND lesson."index" = ?`, courseID, key.ModuleNumber, key.LessonIndex).
		Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, exporterrors.Wrap(exporterrors.ErrNotFound, "lookup lesson", key.String(), nil)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup lesson %s: %w", key, err)
	}
	return l.ID, nil
}

func (r *courseContentRepo) GetLessonContent(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.LessonContent, error) {
	id, err := r.lessonID(ctx, courseID, key)
	if err != nil {
		return nil, err
	}
	var row course.LessonContent
	err = r.db.WithContext(ctx).Where("lesson_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson content %s: %w", key, err)
	}

	slidesRaw, stage, err := decodeLoose(row.Slides, "slides")
	if err != nil {
		return nil, exporterrors.Wrap(exporterrors.ErrMalformedUpstreamData, "decode slides", key.String(), err)
	}
	if stage != jsonrepair.StageStrict {
		r.log.Info("Repaired lesson slides JSON", "lesson", key.String(), "stage", stage)
	}
	var docs []slideDoc
	if slidesRaw != nil {
		if err := remap(slidesRaw, &docs); err != nil {
			return nil, exporterrors.Wrap(exporterrors.ErrMalformedUpstreamData, "map slides", key.String(), err)
		}
	}
	out := &model.LessonContent{}
	for i, d := range docs {
		out.Slides = append(out.Slides, d.toModel(i))
	}

	objectives, _, err := decodeLoose(row.Objectives, "objectives")
	if err != nil {
		r.log.Warn("Lesson objectives unreadable, ignoring", "lesson", key.String(), "error", err)
	}
	takeaways, _, err := decodeLoose(row.KeyTakeaways, "key_takeaways")
	if err != nil {
		r.log.Warn("Lesson takeaways unreadable, ignoring", "lesson", key.String(), "error", err)
	}
	out.Objectives = stringList(objectives)
	out.KeyTakeaways = stringList(takeaways)
	return out, nil
}

func (r *courseContentRepo) GetLessonTest(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.Test, error) {
	id, err := r.lessonID(ctx, courseID, key)
	if err != nil {
		return nil, err
	}
	var row course.LessonTest
	err = r.db.WithContext(ctx).Where("lesson_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson test %s: %w", key, err)
	}

	raw, stage, err := decodeLoose(row.Questions, "questions")
	if err != nil {
		return nil, exporterrors.Wrap(exporterrors.ErrMalformedUpstreamData, "decode test", key.String(), err)
	}
	if stage != jsonrepair.StageStrict {
		r.log.Info("Repaired lesson test JSON", "lesson", key.String(), "stage", stage)
	}
	var docs []questionDoc
	if raw != nil {
		if err := remap(raw, &docs); err != nil {
			return nil, exporterrors.Wrap(exporterrors.ErrMalformedUpstreamData, "map test", key.String(), err)
		}
	}
	out := &model.Test{PassingScorePercent: row.PassingScorePercent}
	for _, d := range docs {
		out.Questions = append(out.Questions, d.toModel())
	}
	return out, nil
}

func (r *courseContentRepo) GetLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey) (*model.VideoInfo, error) {
	id, err := r.lessonID(ctx, courseID, key)
	if err != nil {
		return nil, err
	}
	var row course.LessonVideo
	err = r.db.WithContext(ctx).Where("lesson_id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson video %s: %w", key, err)
	}
	info := &model.VideoInfo{
		VideoID:     row.VideoID,
		Status:      model.VideoStatus(row.Status),
		DownloadURL: row.DownloadURL,
	}
	if row.GeneratedAt != nil {
		info.GeneratedAt = *row.GeneratedAt
	}
	return info, nil
}

// UpdateLessonVideoInfo upserts the lesson's video row (write-through from the
// resolver).
func (r *courseContentRepo) UpdateLessonVideoInfo(ctx context.Context, courseID uuid.UUID, key model.LessonKey, info model.VideoInfo) error {
	id, err := r.lessonID(ctx, courseID, key)
	if err != nil {
		return err
	}
	row := course.LessonVideo{
		LessonID:    id,
		VideoID:     info.VideoID,
		Status:      string(info.Status),
		DownloadURL: info.DownloadURL,
		UpdatedAt:   time.Now().UTC(),
	}
	if !info.GeneratedAt.IsZero() {
		t := info.GeneratedAt.UTC()
		row.GeneratedAt = &t
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"video_id", "status", "download_url", "generated_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("update lesson video %s: %w", key, err)
	}
	return nil
}
