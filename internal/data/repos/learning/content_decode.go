package learning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/pkg/jsonrepair"
)

// Generator output is stored verbatim, so every JSON column is decoded in two
// steps: a lenient parse into generic values, then a field-tolerant mapping.

func decodeLoose(col datatypes.JSON, envelope string) (any, jsonrepair.Stage, error) {
	raw := strings.TrimSpace(string(col))
	if raw == "" || raw == "null" {
		return nil, jsonrepair.StageStrict, nil
	}
	// Some drivers hand back a JSON string holding the document.
	var quoted string
	if err := json.Unmarshal([]byte(raw), &quoted); err == nil {
		raw = quoted
	}
	var v any
	stage, err := jsonrepair.Decode(raw, &v)
	if err != nil {
		return nil, stage, err
	}
	if m, ok := v.(map[string]any); ok && envelope != "" {
		if inner, ok := m[envelope]; ok {
			v = inner
		}
	}
	return v, stage, nil
}

func remap(v any, out any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// flexInt accepts 3, 3.0 and "3".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	*f = flexInt(int(n))
	return nil
}

// flexText accepts a string, a list of strings (joined as bullet lines) or
// anything else (rendered as JSON text).
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var list []any
	if err := json.Unmarshal(b, &list); err == nil {
		lines := make([]string, 0, len(list))
		for _, item := range list {
			lines = append(lines, "- "+stringify(item))
		}
		*f = flexText(strings.Join(lines, "\n"))
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexText(b)
	return nil
}

type slideDoc struct {
	Number       flexInt  `json:"number"`
	Title        string   `json:"title"`
	Body         flexText `json:"body"`
	Content      flexText `json:"content"`
	Bullets      []string `json:"bullets"`
	Kind         string   `json:"kind"`
	Type         string   `json:"type"`
	Code         string   `json:"code"`
	CodeExample  string   `json:"code_example"`
	CodeLanguage string   `json:"code_language"`
	Language     string   `json:"language"`
	Notes        string   `json:"notes"`
	SpeakerNotes string   `json:"speaker_notes"`
}

func (d slideDoc) toModel(pos int) model.Slide {
	body := firstNonEmpty(string(d.Body), string(d.Content))
	if len(d.Bullets) > 0 {
		lines := make([]string, 0, len(d.Bullets))
		for _, b := range d.Bullets {
			if b = strings.TrimSpace(b); b != "" {
				lines = append(lines, "- "+b)
			}
		}
		if body != "" && len(lines) > 0 {
			body += "\n\n"
		}
		body += strings.Join(lines, "\n")
	}
	n := int(d.Number)
	if n <= 0 {
		n = pos + 1
	}
	return model.Slide{
		Number:       n,
		Title:        strings.TrimSpace(d.Title),
		Body:         strings.TrimSpace(body),
		Kind:         model.NormalizeSlideKind(firstNonEmpty(d.Kind, d.Type)),
		Code:         firstNonEmpty(d.Code, d.CodeExample),
		CodeLanguage: firstNonEmpty(d.CodeLanguage, d.Language),
		Notes:        strings.TrimSpace(firstNonEmpty(d.Notes, d.SpeakerNotes)),
	}
}

// optionDoc accepts "text" or {"text"|"label"|"option", "correct"|"is_correct"}.
type optionDoc struct {
	Text    string
	Correct bool
}

func (o *optionDoc) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		o.Text = s
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	o.Text = firstNonEmpty(stringify(m["text"]), stringify(m["label"]), stringify(m["option"]))
	o.Correct = truthy(m["correct"]) || truthy(m["is_correct"])
	return nil
}

type questionDoc struct {
	Prompt        string      `json:"prompt"`
	Question      string      `json:"question"`
	Options       []optionDoc `json:"options"`
	Choices       []optionDoc `json:"choices"`
	CorrectIndex  *flexInt    `json:"correct_index"`
	CorrectAnswer any         `json:"correct_answer"`
	Explanation   string      `json:"explanation"`
}

// toModel keeps every flag the data carries; resolving zero or several
// correct options is left to the test normalizer.
func (d questionDoc) toModel() model.Question {
	opts := d.Options
	if len(opts) == 0 {
		opts = d.Choices
	}
	q := model.Question{
		Prompt:      strings.TrimSpace(firstNonEmpty(d.Prompt, d.Question)),
		Explanation: strings.TrimSpace(d.Explanation),
	}
	flagged := false
	for _, o := range opts {
		q.Options = append(q.Options, model.Option{Text: strings.TrimSpace(o.Text), Correct: o.Correct})
		flagged = flagged || o.Correct
	}
	if flagged {
		return q
	}
	if d.CorrectIndex != nil {
		if i := int(*d.CorrectIndex); i >= 0 && i < len(q.Options) {
			q.Options[i].Correct = true
			return q
		}
	}
	if i := answerIndex(d.CorrectAnswer, q.Options); i >= 0 {
		q.Options[i].Correct = true
	}
	return q
}

// answerIndex matches a correct_answer value against option text, a letter
// ("B") or a numeric index.
func answerIndex(v any, opts []model.Option) int {
	switch a := v.(type) {
	case float64:
		if i := int(a); i >= 0 && i < len(opts) && float64(i) == a {
			return i
		}
	case string:
		a = strings.TrimSpace(a)
		for i, o := range opts {
			if strings.EqualFold(o.Text, a) {
				return i
			}
		}
		if len(a) == 1 {
			if i := int(strings.ToUpper(a)[0] - 'A'); i >= 0 && i < len(opts) {
				return i
			}
		}
	}
	return -1
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s := stringify(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			item = firstNonEmpty(stringify(m["title"]), stringify(m["text"]), stringify(m["topic"]))
		}
		if s := strings.TrimSpace(stringify(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
