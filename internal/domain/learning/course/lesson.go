package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lesson.Index is the position within its module. Content, test and video
// rows hang off the lesson id, but callers address lessons by
// (course, module number, index).
type Lesson struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ModuleID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_module_index" json:"module_id"`
	Module           *CourseModule  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ModuleID;references:ID" json:"module,omitempty"`
	Index            int            `gorm:"column:index;not null;uniqueIndex:idx_lesson_module_index" json:"index"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Goal             string         `gorm:"column:goal;type:text" json:"goal"`
	Format           string         `gorm:"column:format;not null;default:'reading'" json:"format"`
	EstimatedMinutes int            `gorm:"column:estimated_minutes" json:"estimated_minutes"`
	Outline          datatypes.JSON `gorm:"column:outline" json:"outline"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Lesson) TableName() string { return "lesson" }

func (l *Lesson) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// LessonContent holds generator output as JSON documents; the repo decodes
// them leniently.
type LessonContent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"lesson_id"`
	Lesson       *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Slides       datatypes.JSON `gorm:"column:slides" json:"slides"`
	Objectives   datatypes.JSON `gorm:"column:objectives" json:"objectives"`
	KeyTakeaways datatypes.JSON `gorm:"column:key_takeaways" json:"key_takeaways"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonContent) TableName() string { return "lesson_content" }

func (c *LessonContent) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type LessonTest struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"lesson_id"`
	Lesson              *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	Questions           datatypes.JSON `gorm:"column:questions" json:"questions"`
	PassingScorePercent int            `gorm:"column:passing_score_percent;not null;default:70" json:"passing_score_percent"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonTest) TableName() string { return "lesson_test" }

func (t *LessonTest) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type LessonVideo struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"lesson_id"`
	Lesson      *Lesson    `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"lesson,omitempty"`
	VideoID     string     `gorm:"column:video_id;index" json:"video_id"`
	Status      string     `gorm:"column:status;not null;default:'pending'" json:"status"`
	DownloadURL string     `gorm:"column:download_url;type:text" json:"download_url"`
	GeneratedAt *time.Time `gorm:"column:generated_at" json:"generated_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonVideo) TableName() string { return "lesson_video" }

func (v *LessonVideo) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
