package export

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
)

// RunSummary lists lesson keys ("module/index") by what happened to them in
// one export run. A key can appear in several lists.
type RunSummary struct {
	RunID           uuid.UUID         `json:"run_id"`
	CourseID        uuid.UUID         `json:"course_id"`
	Profile         scorm.Profile     `json:"profile"`
	Mode            scorm.Mode        `json:"mode"`
	Generated       []string          `json:"generated"`
	VideoBundled    []string          `json:"video_bundled"`
	VideoSkipped    []string          `json:"video_skipped"`
	TestDegraded    []string          `json:"test_degraded"`
	ContentFallback []string          `json:"content_fallback"`
	Failed          []string          `json:"failed"`
	Reasons         map[string]string `json:"reasons,omitempty"`
	Duration        time.Duration     `json:"duration_ns"`
}

func newRunSummary(runID, courseID uuid.UUID, opts Options) *RunSummary {
	return &RunSummary{
		RunID:           runID,
		CourseID:        courseID,
		Profile:         opts.Profile,
		Mode:            opts.Mode,
		Generated:       []string{},
		VideoBundled:    []string{},
		VideoSkipped:    []string{},
		TestDegraded:    []string{},
		ContentFallback: []string{},
		Failed:          []string{},
	}
}

func (s *RunSummary) addReason(key model.LessonKey, reason string) {
	if reason == "" {
		return
	}
	if s.Reasons == nil {
		s.Reasons = map[string]string{}
	}
	s.Reasons[key.String()] = reason
}

// HeaderValue is the compact JSON form sent in the X-Export-Summary header.
// Reasons are left out since they can carry provider error text.
func (s *RunSummary) HeaderValue() string {
	c := *s
	c.Reasons = nil
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}
