package scorm

import (
	"testing"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

func questions(n int) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{
			Prompt: "Q",
			Options: []model.Option{
				{Text: "right", Correct: true},
				{Text: "wrong"},
			},
		}
	}
	return out
}

func TestScoreAttemptUsesAnsweredDenominator(t *testing.T) {
	gt, issues := NormalizeTest(&model.Test{Questions: questions(5), PassingScorePercent: 70})
	if len(issues) != 0 {
		t.Fatalf("unexpected issues %+v", issues)
	}
	got := ScoreAttempt(gt, []int{0, 0, 1, Unanswered, Unanswered})
	if got.Answered != 3 || got.Correct != 2 || got.Score != 67 {
		t.Fatalf("unexpected attempt %+v", got)
	}
	if got.Passed {
		t.Fatalf("67 must not pass a 70 threshold")
	}
}

func TestScoreAttemptPassIsInclusive(t *testing.T) {
	gt, _ := NormalizeTest(&model.Test{Questions: questions(10), PassingScorePercent: 70})
	answers := []int{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}
	got := ScoreAttempt(gt, answers)
	if got.Score != 70 || !got.Passed {
		t.Fatalf("expected 70 and pass, got %+v", got)
	}
}

func TestScoreAttemptNothingAnswered(t *testing.T) {
	gt, _ := NormalizeTest(&model.Test{Questions: questions(2), PassingScorePercent: 0})
	got := ScoreAttempt(gt, nil)
	if got.Graded || got.Score != 0 || got.Passed {
		t.Fatalf("unanswered attempt should not be graded: %+v", got)
	}
	got = ScoreAttempt(gt, []int{7, Unanswered})
	if got.Graded {
		t.Fatalf("out of range selection counted as answered: %+v", got)
	}
}

func TestNormalizeTestMalformedPolicy(t *testing.T) {
	test := &model.Test{
		PassingScorePercent: 150,
		Questions: []model.Question{
			{Prompt: "two flagged", Options: []model.Option{{Text: "a"}, {Text: "b", Correct: true}, {Text: "c", Correct: true}}},
			{Prompt: "none flagged", Options: []model.Option{{Text: "a"}, {Text: "b"}}},
			{Prompt: "  ", Options: []model.Option{{Text: "a", Correct: true}, {Text: "b"}}},
			{Prompt: "one option", Options: []model.Option{{Text: "a", Correct: true}}},
		},
	}
	gt, issues := NormalizeTest(test)
	if gt == nil || len(gt.Questions) != 1 {
		t.Fatalf("expected one gradable question, got %+v", gt)
	}
	if gt.Questions[0].Correct != 1 {
		t.Fatalf("first flagged option should win, got %d", gt.Questions[0].Correct)
	}
	if gt.PassingScorePercent != 100 {
		t.Fatalf("passing score not clamped: %d", gt.PassingScorePercent)
	}
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %+v", issues)
	}
}

func TestNormalizeTestNothingGradable(t *testing.T) {
	gt, issues := NormalizeTest(&model.Test{Questions: []model.Question{{Prompt: "x", Options: []model.Option{{Text: "a"}, {Text: "b"}}}}})
	if gt != nil {
		t.Fatalf("expected nil test, got %+v", gt)
	}
	if len(issues) != 1 {
		t.Fatalf("expected one issue, got %+v", issues)
	}
	if gt, _ := NormalizeTest(nil); gt != nil {
		t.Fatalf("nil test should stay nil")
	}
}
