package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-export/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type Repos struct {
	CourseContent learning.CourseContentRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		CourseContent: learning.NewCourseContentRepo(db, log),
	}
}
