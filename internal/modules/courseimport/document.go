// Package courseimport loads course documents into the content store so a
// local database can be exported without the generation pipeline.
package courseimport

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-export/internal/domain/learning/course"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
)

// Document is the on-disk course format. JSON documents parse as YAML too.
// Slides, questions and the other generator payloads are stored as given.
type Document struct {
	ID          string           `yaml:"id"`
	Title       string           `yaml:"title"`
	Audience    string           `yaml:"audience"`
	Description string           `yaml:"description"`
	Modules     []ModuleDocument `yaml:"modules"`
}

type ModuleDocument struct {
	Number  int              `yaml:"number"`
	Title   string           `yaml:"title"`
	Goal    string           `yaml:"goal"`
	Lessons []LessonDocument `yaml:"lessons"`
}

type LessonDocument struct {
	Title            string           `yaml:"title"`
	Goal             string           `yaml:"goal"`
	Format           string           `yaml:"format"`
	EstimatedMinutes int              `yaml:"estimated_minutes"`
	Outline          []string         `yaml:"outline"`
	Content          *ContentDocument `yaml:"content"`
	Test             *TestDocument    `yaml:"test"`
	Video            *VideoDocument   `yaml:"video"`
}

type ContentDocument struct {
	Slides       any `yaml:"slides"`
	Objectives   any `yaml:"objectives"`
	KeyTakeaways any `yaml:"key_takeaways"`
}

type TestDocument struct {
	Questions           any `yaml:"questions"`
	PassingScorePercent int `yaml:"passing_score_percent"`
}

type VideoDocument struct {
	VideoID     string     `yaml:"video_id"`
	Status      string     `yaml:"status"`
	DownloadURL string     `yaml:"download_url"`
	GeneratedAt *time.Time `yaml:"generated_at"`
}

func LoadFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course document: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "parse course document", "", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return exporterrors.Wrap(exporterrors.ErrInvalidArgument, "validate course document", "missing title", nil)
	}
	if d.ID != "" {
		if _, err := uuid.Parse(d.ID); err != nil {
			return exporterrors.Wrap(exporterrors.ErrInvalidArgument, "validate course document", "invalid id", err)
		}
	}
	seen := map[int]bool{}
	for _, m := range d.Modules {
		if m.Number <= 0 {
			return exporterrors.Wrap(exporterrors.ErrInvalidArgument, "validate course document", fmt.Sprintf("module number %d must be positive", m.Number), nil)
		}
		if seen[m.Number] {
			return exporterrors.Wrap(exporterrors.ErrInvalidArgument, "validate course document", fmt.Sprintf("duplicate module number %d", m.Number), nil)
		}
		seen[m.Number] = true
	}
	return nil
}

// lessonRows is one lesson's optional artifact rows, matched to the built
// course by position.
type lessonRows struct {
	lesson  *course.Lesson
	content *course.LessonContent
	test    *course.LessonTest
	video   *course.LessonVideo
}

// build converts the document into gorm rows. Lesson indexes follow list
// order within each module.
func (d *Document) build() (*course.Course, []lessonRows, error) {
	c := &course.Course{Title: d.Title, Audience: d.Audience, Description: d.Description}
	if d.ID != "" {
		c.ID = uuid.MustParse(d.ID)
	}
	var rows []lessonRows
	for _, md := range d.Modules {
		m := &course.CourseModule{Number: md.Number, Title: md.Title, Goal: md.Goal}
		for i, ld := range md.Lessons {
			outline, err := toJSON(ld.Outline)
			if err != nil {
				return nil, nil, err
			}
			format := ld.Format
			if format == "" {
				format = "reading"
			}
			l := &course.Lesson{
				ID:               uuid.New(),
				Index:            i,
				Title:            ld.Title,
				Goal:             ld.Goal,
				Format:           format,
				EstimatedMinutes: ld.EstimatedMinutes,
				Outline:          outline,
			}
			m.Lessons = append(m.Lessons, l)

			r := lessonRows{lesson: l}
			if ld.Content != nil {
				if r.content, err = ld.Content.row(); err != nil {
					return nil, nil, err
				}
			}
			if ld.Test != nil {
				if r.test, err = ld.Test.row(); err != nil {
					return nil, nil, err
				}
			}
			if ld.Video != nil {
				r.video = ld.Video.row()
			}
			rows = append(rows, r)
		}
		c.Modules = append(c.Modules, m)
	}
	return c, rows, nil
}

func (c *ContentDocument) row() (*course.LessonContent, error) {
	slides, err := toJSON(c.Slides)
	if err != nil {
		return nil, err
	}
	objectives, err := toJSON(c.Objectives)
	if err != nil {
		return nil, err
	}
	takeaways, err := toJSON(c.KeyTakeaways)
	if err != nil {
		return nil, err
	}
	return &course.LessonContent{Slides: slides, Objectives: objectives, KeyTakeaways: takeaways}, nil
}

func (t *TestDocument) row() (*course.LessonTest, error) {
	questions, err := toJSON(t.Questions)
	if err != nil {
		return nil, err
	}
	passing := t.PassingScorePercent
	if passing <= 0 {
		passing = 70
	}
	return &course.LessonTest{Questions: questions, PassingScorePercent: passing}, nil
}

func (v *VideoDocument) row() *course.LessonVideo {
	status := v.Status
	if status == "" {
		status = "pending"
	}
	row := &course.LessonVideo{VideoID: v.VideoID, Status: status, DownloadURL: v.DownloadURL}
	if v.GeneratedAt != nil {
		t := v.GeneratedAt.UTC()
		row.GeneratedAt = &t
	}
	return row
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, exporterrors.Wrap(exporterrors.ErrInvalidArgument, "encode course document", "", err)
	}
	return datatypes.JSON(b), nil
}
