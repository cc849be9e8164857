package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-export/internal/domain/learning/course"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&course.Course{},
		&course.CourseModule{},
		&course.Lesson{},
		&course.LessonContent{},
		&course.LessonTest{},
		&course.LessonVideo{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
