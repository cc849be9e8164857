// Package model holds the read-only course snapshot consumed by the exporter.
// Snapshots carry no persistence concerns; the content store maps its rows
// into these types once per export run.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID       uuid.UUID
	Title    string
	Audience string
	Modules  []Module
}

type Module struct {
	Number  int
	Title   string
	Goal    string
	Lessons []Lesson
}

// Lesson.Index is positional within the module's lesson list. It is carried
// explicitly so filtering a module never renumbers the remaining lessons.
type Lesson struct {
	Index            int
	Title            string
	Goal             string
	Format           string
	EstimatedMinutes int
	Outline          []string
}

// LessonKey addresses a lesson slot as the content store does.
type LessonKey struct {
	ModuleNumber int
	LessonIndex  int
}

func (k LessonKey) String() string {
	return fmt.Sprintf("%d/%d", k.ModuleNumber, k.LessonIndex)
}

// Slug is the file stem shared by the lesson page and its video.
func (k LessonKey) Slug() string {
	return fmt.Sprintf("lesson_%d_%d", k.ModuleNumber, k.LessonIndex)
}

type SlideKind string

const (
	SlideTitle   SlideKind = "title"
	SlideContent SlideKind = "content"
	SlideCode    SlideKind = "code"
	SlideDiagram SlideKind = "diagram"
	SlideQuiz    SlideKind = "quiz"
	SlideSummary SlideKind = "summary"
)

// NormalizeSlideKind maps unknown or empty kinds to content.
func NormalizeSlideKind(raw string) SlideKind {
	switch k := SlideKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case SlideTitle, SlideContent, SlideCode, SlideDiagram, SlideQuiz, SlideSummary:
		return k
	default:
		return SlideContent
	}
}

type Slide struct {
	Number       int
	Title        string
	Body         string
	Kind         SlideKind
	Code         string
	CodeLanguage string
	Notes        string
}

type LessonContent struct {
	Slides       []Slide
	Objectives   []string
	KeyTakeaways []string
	Test         *Test
	Video        *VideoInfo
}

type Option struct {
	Text    string
	Correct bool
}

type Question struct {
	Prompt      string
	Options     []Option
	Explanation string
}

type Test struct {
	Questions           []Question
	PassingScorePercent int
}

type VideoInfo struct {
	VideoID     string
	Status      VideoStatus
	DownloadURL string
	GeneratedAt time.Time
}
