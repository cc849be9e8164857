package scorm

import (
	"strings"
	"testing"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

func TestRenderLessonPageFallbackSlide(t *testing.T) {
	page, err := RenderLessonPage(PageInput{
		CourseTitle: "Course",
		Module:      model.Module{Number: 1, Title: "Intro"},
		Lesson: model.Lesson{
			Index:   1,
			Title:   "Setup",
			Goal:    "Install the toolchain",
			Outline: []string{"Download", " ", "Verify"},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(page)
	if n := strings.Count(html, `<article class="slide`); n != 1 {
		t.Fatalf("expected one synthesized slide, got %d", n)
	}
	for _, want := range []string{"Install the toolchain", "<li>Download</li>", "<li>Verify</li>", `data-lesson="1/1"`} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if strings.Contains(html, "<video") || strings.Contains(html, `id="lesson-test"`) {
		t.Fatalf("fallback page should have neither video nor test")
	}
	if !strings.Contains(html, `id="nav-next" disabled`) {
		t.Fatalf("single slide page should disable next")
	}
}

func TestRenderLessonPageSlidesVideoAndTest(t *testing.T) {
	gt, _ := NormalizeTest(&model.Test{
		PassingScorePercent: 70,
		Questions: []model.Question{{
			Prompt:      "Pick <b>",
			Options:     []model.Option{{Text: "a"}, {Text: "b", Correct: true}},
			Explanation: "because",
		}},
	})
	page, err := RenderLessonPage(PageInput{
		CourseTitle: "Course",
		Module:      model.Module{Number: 2, Title: "Core"},
		Lesson:      model.Lesson{Index: 0, Title: "Basics", Format: "video", EstimatedMinutes: 75},
		Content: &model.LessonContent{
			Slides: []model.Slide{
				{Number: 1, Title: "One", Body: "Para one.\n\n- first\n- second", Kind: model.SlideTitle},
				{Number: 2, Title: "Two", Kind: model.SlideCode, Code: "fmt.Println(\"<hi>\")", CodeLanguage: "Go", Notes: "say hi"},
			},
			Objectives:   []string{"learn"},
			KeyTakeaways: []string{"remember"},
		},
		Test:      gt,
		VideoPath: "videos/lesson_2_0.webm",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(page)
	if n := strings.Count(html, `<article class="slide`); n != 2 {
		t.Fatalf("expected two slides, got %d", n)
	}
	if !strings.Contains(html, `data-index="1" hidden`) {
		t.Fatalf("second slide should start hidden")
	}
	for _, want := range []string{
		`<source src="../videos/lesson_2_0.webm" type="video/webm">`,
		`class="language-go"`,
		"&lt;hi&gt;",
		"Pick &lt;b&gt;",
		"Speaker notes",
		"Learning objectives",
		"Key takeaways",
		"Duration: 1 h 15 min",
		`"answers":[1]`,
		`"passingScore":70`,
		"ScormRuntime",
		`src="../scorm_api.js"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestTextBlocks(t *testing.T) {
	got := textBlocks("Intro line\ncontinues\n- a\n- b\nafter\n\n* c")
	if len(got) != 4 {
		t.Fatalf("unexpected blocks %+v", got)
	}
	if got[0].Text != "Intro line continues" || len(got[1].Items) != 2 || got[2].Text != "after" || got[3].Items[0] != "c" {
		t.Fatalf("unexpected blocks %+v", got)
	}
}

func TestRenderIndexLinksEveryLesson(t *testing.T) {
	course := sampleCourse()
	page, err := RenderIndex(course, map[model.LessonKey]string{{ModuleNumber: 5, LessonIndex: 0}: "videos/lesson_5_0.mp4"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(page)
	for _, href := range []string{"lessons/lesson_1_0.html", "lessons/lesson_1_1.html", "lessons/lesson_5_0.html"} {
		if !strings.Contains(html, `href="`+href+`"`) {
			t.Fatalf("index missing link %s", href)
		}
	}
	if !strings.Contains(html, "No lessons in this module.") {
		t.Fatalf("empty module not rendered")
	}
	if !strings.Contains(html, "Rust &amp; &#34;Go&#34; &lt;Basics&gt;") {
		t.Fatalf("course title not escaped")
	}
	if !strings.Contains(html, "page=") {
		t.Fatalf("index should carry the page redirect")
	}
}

func TestRuntimeShim(t *testing.T) {
	js := string(RuntimeShim(Profile12, HostOptions{}))
	if !strings.Contains(js, `{"maxHops":7,"apiNames":["API","API_1484_11"]}`) {
		t.Fatalf("config not injected:\n%s", js[:200])
	}
	js = string(RuntimeShim(Profile2004, HostOptions{APIObjectName: "HostBridge", MaxHops: 3}))
	if !strings.Contains(js, `{"maxHops":3,"apiNames":["HostBridge"]}`) {
		t.Fatalf("host override not injected")
	}
	for _, verb := range []string{"initialize", "getValue", "setValue", "commit", "getLastError", "getErrorString", "getDiagnostic", "terminate"} {
		if !strings.Contains(js, verb+":") {
			t.Fatalf("shim missing %s", verb)
		}
	}
}
