package model

import "strings"

type VideoStatus string

const (
	VideoPending         VideoStatus = "pending"
	VideoGenerating      VideoStatus = "generating"
	VideoCompleted       VideoStatus = "completed"
	VideoFailed          VideoStatus = "failed"
	VideoNotFound        VideoStatus = "not_found"
	VideoTimeout         VideoStatus = "timeout"
	VideoConnectionError VideoStatus = "connection_error"
	VideoAPIError        VideoStatus = "api_error"
	VideoUnknown         VideoStatus = "unknown"
)

// IsTerminalFailure reports whether a stored status rules out using the
// stored URL. The raw vocabulary is checked as well because persisted records
// may predate normalization.
func IsTerminalFailure(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "failed", "error", "cancelled", "canceled", "timeout":
		return true
	default:
		return false
	}
}
