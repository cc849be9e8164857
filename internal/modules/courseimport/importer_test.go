package courseimport

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/neurobridge-export/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-export/internal/data/repos/testutil"
	"github.com/yungbote/neurobridge-export/internal/domain/learning/course"
	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
)

const sampleDocument = `
id: 2b7c1f4e-9a0d-4c1e-8f3b-6d5a4e3c2b1a
title: Intro to Go
audience: backend engineers
modules:
  - number: 1
    title: Basics
    goal: write a program
    lessons:
      - title: Hello
        goal: print something
        estimated_minutes: 5
        outline: [setup, run]
        content:
          slides:
            - number: 1
              title: Welcome
              body: Let's start
              kind: title
            - number: 2
              title: main
              code: "package main"
              kind: code
          objectives: [run a program]
          key_takeaways: [go run works]
        test:
          passing_score_percent: 80
          questions:
            - prompt: Which command runs a program?
              options: [go run, go fmt]
              correct_index: 0
        video:
          video_id: vid-1
          status: completed
          download_url: https://cdn.example.com/vid-1.mp4
      - title: Types
  - number: 3
    title: Later
`

func TestImportRoundTripsThroughRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := learning.NewCourseContentRepo(db, testutil.Logger(t))
	imp := NewImporter(db, testutil.Logger(t), repo)

	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id, err := imp.Import(ctx, doc)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if id.String() != "2b7c1f4e-9a0d-4c1e-8f3b-6d5a4e3c2b1a" {
		t.Fatalf("document id not kept: %s", id)
	}

	c, err := repo.GetCourse(ctx, id)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if c.Title != "Intro to Go" || len(c.Modules) != 2 || c.Modules[1].Number != 3 {
		t.Fatalf("unexpected course %+v", c)
	}
	lessons := c.Modules[0].Lessons
	if len(lessons) != 2 || lessons[1].Index != 1 || lessons[1].Format != "reading" {
		t.Fatalf("unexpected lessons %+v", lessons)
	}
	if len(lessons[0].Outline) != 2 {
		t.Fatalf("outline = %v", lessons[0].Outline)
	}

	key := model.LessonKey{ModuleNumber: 1, LessonIndex: 0}
	content, err := repo.GetLessonContent(ctx, id, key)
	if err != nil || content == nil {
		t.Fatalf("GetLessonContent: %v %v", content, err)
	}
	if len(content.Slides) != 2 || content.Slides[1].Code != "package main" || len(content.Objectives) != 1 {
		t.Fatalf("unexpected content %+v", content)
	}
	test, err := repo.GetLessonTest(ctx, id, key)
	if err != nil || test == nil {
		t.Fatalf("GetLessonTest: %v %v", test, err)
	}
	if test.PassingScorePercent != 80 || len(test.Questions) != 1 || len(test.Questions[0].Options) != 2 {
		t.Fatalf("unexpected test %+v", test)
	}
	info, err := repo.GetLessonVideoInfo(ctx, id, key)
	if err != nil || info == nil || info.VideoID != "vid-1" || info.Status != model.VideoCompleted {
		t.Fatalf("unexpected video %+v %v", info, err)
	}

	bare := model.LessonKey{ModuleNumber: 1, LessonIndex: 1}
	if got, err := repo.GetLessonContent(ctx, id, bare); err != nil || got != nil {
		t.Fatalf("lesson without content should read as missing: %+v %v", got, err)
	}
}

func TestImportRollsBackOnConflict(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := learning.NewCourseContentRepo(db, testutil.Logger(t))
	imp := NewImporter(db, testutil.Logger(t), repo)

	doc, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := imp.Import(ctx, doc); err != nil {
		t.Fatalf("first import: %v", err)
	}
	if _, err := imp.Import(ctx, doc); err == nil {
		t.Fatalf("importing the same course id twice should fail")
	}
	var lessons int64
	if err := db.Model(&course.Lesson{}).Count(&lessons).Error; err != nil {
		t.Fatalf("count lessons: %v", err)
	}
	if lessons != 2 {
		t.Fatalf("failed import leaked rows: lessons=%d", lessons)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"missing title":    "modules: []",
		"bad id":           "id: nope\ntitle: x",
		"duplicate module": "title: x\nmodules:\n  - number: 1\n  - number: 1",
		"zero module":      "title: x\nmodules:\n  - number: 0",
		"not yaml":         "title: [unterminated",
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); !errors.Is(err, exporterrors.ErrInvalidArgument) {
			t.Fatalf("%s: expected invalid argument, got %v", name, err)
		}
	}
}

func TestParseAcceptsJSON(t *testing.T) {
	doc, err := Parse([]byte(`{"title":"JSON course","modules":[{"number":2,"lessons":[{"title":"only"}]}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Title != "JSON course" || len(doc.Modules) != 1 || doc.Modules[0].Lessons[0].Title != "only" {
		t.Fatalf("unexpected document %+v", doc)
	}
}
