package scorm

import (
	"fmt"
	"strings"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
)

type Profile string

const (
	Profile12   Profile = "scorm12"
	Profile2004 Profile = "scorm2004"
)

func ParseProfile(raw string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "2004", "scorm2004", "scorm_2004":
		return Profile2004, nil
	case "1.2", "12", "scorm12", "scorm_1_2", "scorm1.2":
		return Profile12, nil
	default:
		return "", fmt.Errorf("unknown scorm profile %q", raw)
	}
}

// Mode selects one trackable unit per lesson or a single aggregate unit.
type Mode string

const (
	ModeMulti  Mode = "multi"
	ModeSingle Mode = "single"
)

func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "multi", "multi_sco", "per_lesson":
		return ModeMulti, nil
	case "single", "single_sco", "aggregate":
		return ModeSingle, nil
	default:
		return "", fmt.Errorf("unknown packaging mode %q", raw)
	}
}

const (
	OrganizationID      = "ORG_COURSE"
	RuntimeResourceID   = "RES_RUNTIME"
	AggregateResourceID = "RES_COURSE"

	ManifestPath      = "imsmanifest.xml"
	RuntimeScriptPath = "scorm_api.js"
	IndexPath         = "index.html"
	lessonsDir        = "lessons"
	videosDir         = "videos"
)

// Identifiers derive only from module number and lesson index so repeated
// exports of the same course produce the same cross-references.

func ModuleItemID(moduleNumber int) string { return fmt.Sprintf("MOD_%d", moduleNumber) }

func LessonItemID(k model.LessonKey) string {
	return fmt.Sprintf("ITEM_%d_%d", k.ModuleNumber, k.LessonIndex)
}

func LessonResourceID(k model.LessonKey) string {
	return fmt.Sprintf("RES_%d_%d", k.ModuleNumber, k.LessonIndex)
}

func PagePath(k model.LessonKey) string { return lessonsDir + "/" + k.Slug() + ".html" }

func VideoPath(k model.LessonKey, ext string) string {
	if ext == "" || ext[0] != '.' {
		ext = "." + strings.TrimPrefix(ext, ".")
	}
	return videosDir + "/" + k.Slug() + ext
}
