package scorm

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/modules/export/video"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets/lesson.js
var lessonScript string

//go:embed assets/page.css
var pageCSS string

var templates = template.Must(template.New("scorm").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.tmpl"))

// PageInput is everything one lesson page needs. Content and Test may be nil;
// VideoPath is the archive path of a bundled video or empty.
type PageInput struct {
	CourseTitle string
	Module      model.Module
	Lesson      model.Lesson
	Content     *model.LessonContent
	Test        *GradableTest
	VideoPath   string
}

type block struct {
	Text  string
	Items []string
}

type slideView struct {
	Kind         model.SlideKind
	Title        string
	Blocks       []block
	Code         string
	CodeLanguage string
	Notes        string
	Objectives   []string
	Takeaways    []string
}

type videoView struct {
	Path     string
	MimeType string
}

type pageConfig struct {
	Slides       int    `json:"slides"`
	Answers      []int  `json:"answers"`
	PassingScore int    `json:"passingScore"`
	Lesson       string `json:"lesson"`
}

type pageView struct {
	CourseTitle string
	ModuleTitle string
	LessonTitle string
	Key         string
	Format      string
	Duration    string
	ShimPath    string
	Slides      []slideView
	Video       *videoView
	Test        *GradableTest
	Config      pageConfig
	CSS         template.CSS
	Script      template.JS
}

// HasDetailedContent reports whether a page for c renders its own slides
// instead of the synthesized fallback slide.
func HasDetailedContent(c *model.LessonContent) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Slides {
		if strings.TrimSpace(s.Title) != "" || strings.TrimSpace(s.Body) != "" || strings.TrimSpace(s.Code) != "" {
			return true
		}
	}
	return false
}

// RenderLessonPage renders one self-contained lesson document. A lesson
// without detailed content gets a single slide synthesized from its goal and
// outline.
func RenderLessonPage(in PageInput) ([]byte, error) {
	key := model.LessonKey{ModuleNumber: in.Module.Number, LessonIndex: in.Lesson.Index}
	v := pageView{
		CourseTitle: fallback(in.CourseTitle, "Untitled course"),
		ModuleTitle: ModuleTitle(in.Module),
		LessonTitle: LessonTitle(in.Lesson),
		Key:         key.String(),
		Format:      strings.TrimSpace(in.Lesson.Format),
		Duration:    formatMinutes(in.Lesson.EstimatedMinutes),
		ShimPath:    RuntimeScriptPath,
		Test:        in.Test,
		CSS:         template.CSS(pageCSS),
		Script:      template.JS(lessonScript),
	}

	if HasDetailedContent(in.Content) {
		v.Slides = contentSlides(in.Content)
	} else {
		v.Slides = []slideView{fallbackSlide(in.Lesson)}
	}
	if in.Content != nil && len(v.Slides) > 0 {
		v.Slides[0].Objectives = nonEmpty(in.Content.Objectives)
		v.Slides[len(v.Slides)-1].Takeaways = nonEmpty(in.Content.KeyTakeaways)
	}

	if in.VideoPath != "" {
		v.Video = &videoView{Path: in.VideoPath, MimeType: video.MimeType(extOf(in.VideoPath))}
	}

	v.Config = pageConfig{Slides: len(v.Slides), Answers: []int{}, Lesson: key.String()}
	if in.Test != nil {
		v.Config.PassingScore = in.Test.PassingScorePercent
		for _, q := range in.Test.Questions {
			v.Config.Answers = append(v.Config.Answers, q.Correct)
		}
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "lesson.html.tmpl", v); err != nil {
		return nil, fmt.Errorf("render lesson %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func contentSlides(c *model.LessonContent) []slideView {
	out := make([]slideView, 0, len(c.Slides))
	for i, s := range c.Slides {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = fmt.Sprintf("Slide %d", i+1)
		}
		out = append(out, slideView{
			Kind:         model.NormalizeSlideKind(string(s.Kind)),
			Title:        title,
			Blocks:       textBlocks(s.Body),
			Code:         strings.TrimRight(s.Code, "\n "),
			CodeLanguage: strings.ToLower(strings.TrimSpace(s.CodeLanguage)),
			Notes:        strings.TrimSpace(s.Notes),
		})
	}
	return out
}

func fallbackSlide(l model.Lesson) slideView {
	s := slideView{Kind: model.SlideContent, Title: LessonTitle(l)}
	if g := strings.TrimSpace(l.Goal); g != "" {
		s.Blocks = append(s.Blocks, block{Text: g})
	}
	if items := nonEmpty(l.Outline); len(items) > 0 {
		s.Blocks = append(s.Blocks, block{Items: items})
	}
	if len(s.Blocks) == 0 {
		s.Blocks = []block{{Text: "Content for this lesson is not available yet."}}
	}
	return s
}

// textBlocks splits body text into paragraphs on blank lines; runs of lines
// starting with "- " or "* " become a list.
func textBlocks(body string) []block {
	var out []block
	for _, para := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		var items []string
		var text []string
		flush := func() {
			if len(text) > 0 {
				out = append(out, block{Text: strings.Join(text, " ")})
				text = nil
			}
			if len(items) > 0 {
				out = append(out, block{Items: items})
				items = nil
			}
		}
		for _, ln := range lines {
			ln = strings.TrimSpace(ln)
			if item, ok := bullet(ln); ok {
				if len(text) > 0 {
					flush()
				}
				items = append(items, item)
				continue
			}
			if len(items) > 0 {
				flush()
			}
			text = append(text, ln)
		}
		flush()
	}
	return out
}

func bullet(line string) (string, bool) {
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(strings.TrimPrefix(line, p)), true
		}
	}
	return "", false
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func formatMinutes(m int) string {
	switch {
	case m <= 0:
		return ""
	case m < 60:
		return fmt.Sprintf("%d min", m)
	case m%60 == 0:
		return fmt.Sprintf("%d h", m/60)
	default:
		return fmt.Sprintf("%d h %d min", m/60, m%60)
	}
}

func fallback(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func extOf(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i:]
	}
	return ""
}
