package video

import (
	"net/url"
	"path"
	"strings"
)

const DefaultExtension = ".mp4"

var knownExtensions = map[string]bool{
	".mp4": true, ".m4v": true, ".webm": true, ".mov": true,
	".ogv": true, ".ogg": true, ".mkv": true,
}

// ExtensionFromURL infers the container extension from the URL path, ignoring
// query strings. Unknown or missing extensions fall back to DefaultExtension.
func ExtensionFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultExtension
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if knownExtensions[ext] {
		return ext
	}
	return DefaultExtension
}

// MimeType returns the media type used for the page's <source> element.
func MimeType(ext string) string {
	switch strings.ToLower(ext) {
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".ogv", ".ogg":
		return "video/ogg"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}
