package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-export/internal/app"
	"github.com/yungbote/neurobridge-export/internal/modules/export"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
)

func main() {
	var (
		courseArg  string
		out        string
		profileArg string
		modeArg    string
		skipVideos bool
		publish    bool
	)
	flag.StringVar(&courseArg, "course", "", "course id to export")
	flag.StringVar(&out, "out", "", "output zip path (default course-<id>.zip)")
	flag.StringVar(&profileArg, "profile", "", "scorm12 or scorm2004 (default from SCORM_PROFILE)")
	flag.StringVar(&modeArg, "mode", "", "multi or single (default from SCORM_MODE)")
	flag.BoolVar(&skipVideos, "skip-videos", false, "package pages only")
	flag.BoolVar(&publish, "publish", false, "upload to the archive bucket instead of writing a file")
	flag.Parse()

	courseID, err := uuid.Parse(strings.TrimSpace(courseArg))
	if err != nil || courseID == uuid.Nil {
		fmt.Printf("invalid -course %q\n", courseArg)
		os.Exit(2)
	}
	opts := export.Options{SkipVideos: skipVideos}
	if profileArg != "" {
		if opts.Profile, err = scorm.ParseProfile(profileArg); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
	if modeArg != "" {
		if opts.Mode, err = scorm.ParseMode(modeArg); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	if publish {
		res, err := application.Services.Export.Publish(ctx, courseID, opts)
		if err != nil {
			fmt.Printf("publish failed: %v\n", err)
			application.Close()
			os.Exit(1)
		}
		fmt.Printf("published %s (%d bytes)\n%s\n", res.Key, res.Size, res.URL)
		printSummary(res.Summary)
		return
	}

	if out == "" {
		out = fmt.Sprintf("course-%s.zip", courseID)
	}
	summary, err := writeArchive(ctx, application, courseID, opts, out)
	if err != nil {
		fmt.Printf("export failed: %v\n", err)
		application.Close()
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", out)
	printSummary(summary)
}

// writeArchive writes to a sibling temp file and renames it into place so a
// failed run never leaves a truncated zip at out.
func writeArchive(ctx context.Context, application *app.App, courseID uuid.UUID, opts export.Options, out string) (*export.RunSummary, error) {
	f, err := os.CreateTemp(filepath.Dir(out), ".export-*.zip")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	summary, err := application.Services.Export.Export(ctx, courseID, opts, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, out); err != nil {
		return nil, err
	}
	return summary, nil
}

func printSummary(s *export.RunSummary) {
	if s == nil {
		return
	}
	fmt.Printf("run=%s profile=%s mode=%s\n", s.RunID, s.Profile, s.Mode)
	fmt.Printf("generated=%d video_bundled=%d video_skipped=%d test_degraded=%d content_fallback=%d failed=%d\n",
		len(s.Generated), len(s.VideoBundled), len(s.VideoSkipped), len(s.TestDegraded), len(s.ContentFallback), len(s.Failed))
	for key, reason := range s.Reasons {
		fmt.Printf("  %s: %s\n", key, reason)
	}
}
