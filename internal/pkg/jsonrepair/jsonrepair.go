// Package jsonrepair decodes JSON written by a generative model. Repair is a
// chain of small pure stages so each one can be exercised on its own:
// extract -> balance brackets -> fix common mistakes -> strict decode.
package jsonrepair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type Stage string

const (
	StageStrict    Stage = "strict"
	StageExtract   Stage = "extract"
	StageBalance   Stage = "balance"
	StageFixups    Stage = "fixups"
	StageExhausted Stage = "exhausted"
)

// ParseError is returned when every stage failed to produce decodable JSON.
type ParseError struct {
	Stage Stage
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	in := e.Input
	if len(in) > 80 {
		in = in[:80] + "..."
	}
	return fmt.Sprintf("jsonrepair: %s: %v (input %q)", e.Stage, e.Err, in)
}

func (e *ParseError) Unwrap() error { return e.Err }

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Extract strips markdown fences and any prose before the first bracket.
func Extract(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	if i := strings.IndexAny(s, "{["); i > 0 {
		s = s[i:]
	}
	return s
}

// BalanceBrackets closes an unterminated string and any open objects/arrays,
// and drops stray closers that have no opener.
func BalanceBrackets(s string) string {
	var (
		out     strings.Builder
		stack   []byte
		inStr   bool
		escaped bool
	)
	out.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				continue
			}
			stack = stack[:len(stack)-1]
		}
		out.WriteByte(c)
	}
	if inStr {
		if escaped {
			out.WriteByte('\\')
		}
		out.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		out.WriteByte(stack[i])
	}
	return out.String()
}

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	pyTrue        = regexp.MustCompile(`([:\[,]\s*)True\b`)
	pyFalse       = regexp.MustCompile(`([:\[,]\s*)False\b`)
	pyNone        = regexp.MustCompile(`([:\[,]\s*)None\b`)
	smartQuotes   = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
)

// FixCommonMistakes rewrites the mistakes models make most often: smart
// quotes, trailing commas and Python literals.
func FixCommonMistakes(s string) string {
	s = smartQuotes.Replace(s)
	s = trailingComma.ReplaceAllString(s, "$1")
	s = pyTrue.ReplaceAllString(s, "${1}true")
	s = pyFalse.ReplaceAllString(s, "${1}false")
	s = pyNone.ReplaceAllString(s, "${1}null")
	return s
}

// Strict is a plain json.Unmarshal, kept as a stage for symmetry.
func Strict(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

// Decode tries a strict decode first and then each repair stage cumulatively.
// It returns the stage that succeeded.
func Decode(raw string, v any) (Stage, error) {
	if strings.TrimSpace(raw) == "" {
		return StageExhausted, &ParseError{Stage: StageExhausted, Input: raw, Err: fmt.Errorf("empty input")}
	}
	if err := Strict(raw, v); err == nil {
		return StageStrict, nil
	}
	s := Extract(raw)
	if err := Strict(s, v); err == nil {
		return StageExtract, nil
	}
	s = BalanceBrackets(s)
	if err := Strict(s, v); err == nil {
		return StageBalance, nil
	}
	s = FixCommonMistakes(s)
	err := Strict(s, v)
	if err == nil {
		return StageFixups, nil
	}
	return StageExhausted, &ParseError{Stage: StageExhausted, Input: raw, Err: err}
}
