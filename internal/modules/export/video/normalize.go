package video

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

const unknownErrorCode = "unknown_error"

// ProviderStatus is the canonical view of one provider status response.
type ProviderStatus struct {
	VideoID         string
	Status          model.VideoStatus
	DownloadURL     string
	ThumbnailURL    string
	Progress        int
	DurationSeconds float64
	ErrorCode       string
	ErrorMessage    string
	// Malformed is set when the payload carried no recognizable status field.
	Malformed bool
}

var (
	generatingSynonyms = map[string]bool{
		"processing": true, "in_progress": true, "queued": true, "pending": true,
		"working": true, "generating": true, "rendering": true, "waiting": true,
	}
	completedSynonyms = map[string]bool{
		"completed": true, "complete": true, "done": true, "success": true,
		"succeeded": true, "ready": true, "finished": true,
	}
	failedSynonyms = map[string]bool{
		"failed": true, "failure": true, "error": true, "errored": true,
		"cancelled": true, "canceled": true,
	}
	statusKeys    = []string{"status", "state"}
	urlKeys       = []string{"video_url", "download_url", "url", "video_url_caption"}
	thumbnailKeys = []string{"thumbnail_url", "thumbnail", "gif_url"}
)

// Normalize folds a raw provider payload into a ProviderStatus. Fields are
// looked up in a "data" envelope first and then at the top level. A completed
// status without a URL stays completed; the resolver decides what to do next.
func Normalize(videoID string, raw map[string]any) ProviderStatus {
	out := ProviderStatus{VideoID: videoID, Status: model.VideoUnknown}
	if raw == nil {
		out.Malformed = true
		return out
	}
	scopes := []map[string]any{raw}
	if data, ok := raw["data"].(map[string]any); ok {
		scopes = []map[string]any{data, raw}
	}
	if id := firstString(scopes, "video_id", "id"); id != "" && out.VideoID == "" {
		out.VideoID = id
	}

	rawStatus := strings.ToLower(strings.TrimSpace(firstString(scopes, statusKeys...)))
	switch {
	case rawStatus == "":
		out.Malformed = true
	case generatingSynonyms[rawStatus]:
		out.Status = model.VideoGenerating
	case completedSynonyms[rawStatus]:
		out.Status = model.VideoCompleted
	case failedSynonyms[rawStatus]:
		out.Status = model.VideoFailed
	case rawStatus == "not_found":
		out.Status = model.VideoNotFound
	case rawStatus == "timeout":
		out.Status = model.VideoTimeout
	case rawStatus == string(model.VideoAPIError):
		out.Status = model.VideoAPIError
	case rawStatus == string(model.VideoConnectionError):
		out.Status = model.VideoConnectionError
	}

	if code, msg, ok := extractError(scopes); ok {
		out.Status = model.VideoFailed
		out.Malformed = false
		out.ErrorCode = code
		out.ErrorMessage = msg
	}
	if out.Status == model.VideoFailed && out.ErrorCode == "" {
		out.ErrorCode = unknownErrorCode
		if rawStatus == "cancelled" || rawStatus == "canceled" {
			out.ErrorCode = "cancelled"
		}
	}

	out.DownloadURL = strings.TrimSpace(firstString(scopes, urlKeys...))
	out.ThumbnailURL = strings.TrimSpace(firstString(scopes, thumbnailKeys...))
	if d, ok := firstNumber(scopes, "duration"); ok && d > 0 {
		out.DurationSeconds = d
	}
	if p, ok := firstNumber(scopes, "progress"); ok {
		out.Progress = NormalizeProgress(p)
	} else if out.Status == model.VideoCompleted {
		out.Progress = 100
	}
	return out
}

// NormalizeProgress accepts a 0-1 fraction or a 0-100 percentage. Values at or
// below 1 are read as fractions, so a bare 1 means done rather than 1%.
func NormalizeProgress(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v <= 1 {
		v *= 100
	}
	p := int(math.Round(v))
	if p > 100 {
		return 100
	}
	return p
}

func extractError(scopes []map[string]any) (code, msg string, ok bool) {
	for _, s := range scopes {
		v, present := s["error"]
		if !present || v == nil {
			continue
		}
		switch e := v.(type) {
		case map[string]any:
			if len(e) == 0 {
				continue
			}
			code = firstString([]map[string]any{e}, "code", "error_code", "type")
			msg = firstString([]map[string]any{e}, "message", "msg", "detail")
			return code, msg, true
		case string:
			if strings.TrimSpace(e) == "" {
				continue
			}
			return "", strings.TrimSpace(e), true
		}
	}
	return "", "", false
}

func firstString(scopes []map[string]any, keys ...string) string {
	for _, s := range scopes {
		for _, k := range keys {
			switch v := s[k].(type) {
			case string:
				if strings.TrimSpace(v) != "" {
					return v
				}
			case json.Number:
				return v.String()
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func firstNumber(scopes []map[string]any, keys ...string) (float64, bool) {
	for _, s := range scopes {
		for _, k := range keys {
			switch v := s[k].(type) {
			case float64:
				return v, true
			case int:
				return float64(v), true
			case int64:
				return float64(v), true
			case json.Number:
				if f, err := v.Float64(); err == nil {
					return f, true
				}
			case string:
				if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					return f, true
				}
			}
		}
	}
	return 0, false
}
