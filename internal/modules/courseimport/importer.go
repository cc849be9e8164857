package courseimport

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-export/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type Importer struct {
	db   *gorm.DB
	log  *logger.Logger
	repo learning.CourseContentRepo
}

func NewImporter(db *gorm.DB, log *logger.Logger, repo learning.CourseContentRepo) *Importer {
	return &Importer{db: db, log: log.With("service", "CourseImporter"), repo: repo}
}

// Import writes the whole document in one transaction and returns the
// course id.
func (i *Importer) Import(ctx context.Context, doc *Document) (uuid.UUID, error) {
	if doc == nil {
		return uuid.Nil, fmt.Errorf("nil course document")
	}
	if err := doc.Validate(); err != nil {
		return uuid.Nil, err
	}
	c, rows, err := doc.build()
	if err != nil {
		return uuid.Nil, err
	}

	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := i.repo.CreateCourse(ctx, tx, c); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		for _, r := range rows {
			if err := i.repo.CreateLessonArtifacts(ctx, tx, r.lesson.ID, r.content, r.test, r.video); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	i.log.Info("Course imported", "course_id", c.ID.String(), "modules", len(c.Modules), "lessons", len(rows))
	return c.ID, nil
}
