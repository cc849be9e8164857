package scorm

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

type landingLesson struct {
	Title    string
	Href     string
	HasVideo bool
}

type landingModule struct {
	ID      string
	Title   string
	Goal    string
	Lessons []landingLesson
}

type landingView struct {
	CourseTitle string
	Audience    string
	Modules     []landingModule
	CSS         template.CSS
}

// RenderIndex renders index.html: the course tree with relative links to each
// lesson page. It also serves as the aggregate-mode launch page, redirecting
// to the lesson named by a "?page=" parameter.
func RenderIndex(course model.Course, videos map[model.LessonKey]string) ([]byte, error) {
	v := landingView{
		CourseTitle: courseTitle(course),
		Audience:    strings.TrimSpace(course.Audience),
		CSS:         template.CSS(pageCSS),
	}
	for _, mod := range course.Modules {
		lm := landingModule{
			ID:    ModuleItemID(mod.Number),
			Title: ModuleTitle(mod),
			Goal:  strings.TrimSpace(mod.Goal),
		}
		for _, l := range mod.Lessons {
			key := model.LessonKey{ModuleNumber: mod.Number, LessonIndex: l.Index}
			lm.Lessons = append(lm.Lessons, landingLesson{
				Title:    LessonTitle(l),
				Href:     PagePath(key),
				HasVideo: videos[key] != "",
			})
		}
		v.Modules = append(v.Modules, lm)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index.html.tmpl", v); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return buf.Bytes(), nil
}
