package scorm

import (
	"math"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

// GradableQuestion is a question with exactly one correct option, the only
// shape the lesson page grades.
type GradableQuestion struct {
	Prompt      string
	Options     []string
	Correct     int
	Explanation string
}

type GradableTest struct {
	Questions           []GradableQuestion
	PassingScorePercent int
}

// TestIssue records a repair or drop made while normalizing upstream test data.
type TestIssue struct {
	Question int
	Reason   string
}

// NormalizeTest applies the malformed-test policy: when several options are
// flagged correct the first flagged one wins; a question with none flagged, or
// with fewer than two options, is dropped. It returns nil when no gradable
// question remains, in which case the page renders content-only.
func NormalizeTest(t *model.Test) (*GradableTest, []TestIssue) {
	if t == nil {
		return nil, nil
	}
	var issues []TestIssue
	out := &GradableTest{PassingScorePercent: clampPercent(t.PassingScorePercent)}
	for qi, q := range t.Questions {
		prompt := strings.TrimSpace(q.Prompt)
		if prompt == "" {
			issues = append(issues, TestIssue{Question: qi, Reason: "empty prompt"})
			continue
		}
		gq := GradableQuestion{Prompt: prompt, Correct: -1, Explanation: strings.TrimSpace(q.Explanation)}
		flagged := 0
		for _, opt := range q.Options {
			text := strings.TrimSpace(opt.Text)
			if text == "" {
				continue
			}
			if opt.Correct {
				flagged++
				if gq.Correct < 0 {
					gq.Correct = len(gq.Options)
				}
			}
			gq.Options = append(gq.Options, text)
		}
		switch {
		case len(gq.Options) < 2:
			issues = append(issues, TestIssue{Question: qi, Reason: "fewer than two options"})
			continue
		case gq.Correct < 0:
			issues = append(issues, TestIssue{Question: qi, Reason: "no option flagged correct"})
			continue
		case flagged > 1:
			issues = append(issues, TestIssue{Question: qi, Reason: "multiple options flagged correct, using the first"})
		}
		out.Questions = append(out.Questions, gq)
	}
	if len(out.Questions) == 0 {
		return nil, issues
	}
	return out, issues
}

// Attempt is the graded result of one check action.
type Attempt struct {
	Answered int
	Correct  int
	Score    int
	Passed   bool
	// Graded is false when nothing was answered; the page then asks the
	// learner to answer and reports nothing to the host.
	Graded bool
}

// Unanswered marks a question without a selection in ScoreAttempt answers.
const Unanswered = -1

// ScoreAttempt grades answers (selected option index per question, or
// Unanswered) the same way the page script does: the denominator is the
// answered count, not the question count.
func ScoreAttempt(t *GradableTest, answers []int) Attempt {
	var a Attempt
	if t == nil {
		return a
	}
	for i, q := range t.Questions {
		if i >= len(answers) || answers[i] == Unanswered || answers[i] < 0 || answers[i] >= len(q.Options) {
			continue
		}
		a.Answered++
		if answers[i] == q.Correct {
			a.Correct++
		}
	}
	if a.Answered == 0 {
		return a
	}
	a.Graded = true
	a.Score = int(math.Round(100 * float64(a.Correct) / float64(a.Answered)))
	a.Passed = a.Score >= t.PassingScorePercent
	return a
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
