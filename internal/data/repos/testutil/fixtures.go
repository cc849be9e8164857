package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-export/internal/domain/learning/course"
)

func JSON(tb testing.TB, v any) datatypes.JSON {
	tb.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return datatypes.JSON(b)
}

// SeedCourse creates a course whose modules have the given numbers and lesson
// counts, e.g. SeedCourse(t, ctx, tx, map[int]int{1: 2, 3: 0}).
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, lessonsPerModule map[int]int) *course.Course {
	tb.Helper()
	c := &course.Course{ID: uuid.New(), Title: title, Audience: "engineers"}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	for number, count := range lessonsPerModule {
		m := &course.CourseModule{ID: uuid.New(), CourseID: c.ID, Number: number, Title: "module", Goal: "goal"}
		if err := tx.WithContext(ctx).Create(m).Error; err != nil {
			tb.Fatalf("seed module: %v", err)
		}
		for i := 0; i < count; i++ {
			SeedLesson(tb, ctx, tx, m.ID, i)
		}
	}
	return c
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, index int) *course.Lesson {
	tb.Helper()
	l := &course.Lesson{
		ID:               uuid.New(),
		ModuleID:         moduleID,
		Index:            index,
		Title:            "lesson",
		Goal:             "learn things",
		Format:           "reading",
		EstimatedMinutes: 10,
		Outline:          JSON(tb, []string{"first", "second"}),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedLessonContent(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, slides datatypes.JSON) *course.LessonContent {
	tb.Helper()
	lc := &course.LessonContent{
		ID:           uuid.New(),
		LessonID:     lessonID,
		Slides:       slides,
		Objectives:   JSON(tb, []string{"objective"}),
		KeyTakeaways: JSON(tb, []string{"takeaway"}),
	}
	if err := tx.WithContext(ctx).Create(lc).Error; err != nil {
		tb.Fatalf("seed lesson content: %v", err)
	}
	return lc
}

func SeedLessonTest(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, questions datatypes.JSON, passing int) *course.LessonTest {
	tb.Helper()
	lt := &course.LessonTest{ID: uuid.New(), LessonID: lessonID, Questions: questions, PassingScorePercent: passing}
	if err := tx.WithContext(ctx).Create(lt).Error; err != nil {
		tb.Fatalf("seed lesson test: %v", err)
	}
	return lt
}

func SeedLessonVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, videoID, status, url string) *course.LessonVideo {
	tb.Helper()
	now := time.Now().UTC()
	lv := &course.LessonVideo{ID: uuid.New(), LessonID: lessonID, VideoID: videoID, Status: status, DownloadURL: url, GeneratedAt: &now}
	if err := tx.WithContext(ctx).Create(lv).Error; err != nil {
		tb.Fatalf("seed lesson video: %v", err)
	}
	return lv
}
