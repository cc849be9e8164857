package video

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	"github.com/yungbote/neurobridge-export/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type fakeProvider struct {
	mu          sync.Mutex
	statuses    []ProviderStatus
	statusCalls int
	authData    []byte
	authErr     error
	authCalls   int
	urlData     map[string][]byte
	fetched     []string
}

func (f *fakeProvider) GetStatus(_ context.Context, id string) ProviderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if len(f.statuses) == 0 {
		return ProviderStatus{VideoID: id, Status: model.VideoUnknown}
	}
	st := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return st
}

func (f *fakeProvider) DownloadAuthenticated(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	return f.authData, f.authErr
}

func (f *fakeProvider) FetchURL(_ context.Context, u string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, u)
	if b, ok := f.urlData[u]; ok {
		return b, nil
	}
	return nil, &httpx.StatusError{Op: "fetch", Status: 404}
}

type recordingWriter struct {
	updates []model.VideoInfo
}

func (w *recordingWriter) UpdateLessonVideoInfo(_ context.Context, _ uuid.UUID, _ model.LessonKey, info model.VideoInfo) error {
	w.updates = append(w.updates, info)
	return nil
}

func newTestResolver(p *fakeProvider, w InfoWriter) *Resolver {
	return NewResolver(logger.Nop(), ResolverConfig{
		CDNURLTemplate:  "https://cdn.example.com/video/{video_id}.webm",
		StatusTimeout:   time.Second,
		DownloadTimeout: time.Second,
		RetryBackoff:    time.Millisecond,
	}, p, p, p, w, nil)
}

var key = model.LessonKey{ModuleNumber: 1, LessonIndex: 0}

func TestResolveNoVideo(t *testing.T) {
	r := newTestResolver(&fakeProvider{}, nil)
	if got := r.Resolve(context.Background(), uuid.New(), key, nil); got.Outcome != OutcomeNoVideo {
		t.Fatalf("outcome = %s", got.Outcome)
	}
}

func TestResolveCompletedWithoutURLRequeriesAndDownloads(t *testing.T) {
	p := &fakeProvider{
		statuses: []ProviderStatus{{VideoID: "abc123", Status: model.VideoCompleted}},
		authData: []byte("video-bytes"),
	}
	w := &recordingWriter{}
	r := newTestResolver(p, w)

	got := r.Resolve(context.Background(), uuid.New(), key, &model.VideoInfo{VideoID: "abc123", Status: model.VideoCompleted})
	if p.statusCalls != 1 {
		t.Fatalf("expected one live status query, got %d", p.statusCalls)
	}
	if got.Outcome != OutcomeBundled || got.Source != SourceAuthenticated || string(got.Data) != "video-bytes" {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Extension != ".webm" {
		t.Fatalf("extension should follow synthesized url, got %q", got.Extension)
	}
	if len(w.updates) != 1 || w.updates[0].DownloadURL != "https://cdn.example.com/video/abc123.webm" {
		t.Fatalf("synthesized url not persisted: %+v", w.updates)
	}
}

func TestResolveStoredURLSkipsLiveQuery(t *testing.T) {
	p := &fakeProvider{
		authErr: &httpx.StatusError{Op: "download", Status: 403},
		urlData: map[string][]byte{"https://cdn.example.com/a.mov?sig=1": []byte("mov")},
	}
	r := newTestResolver(p, nil)
	got := r.Resolve(context.Background(), uuid.New(), key, &model.VideoInfo{
		VideoID: "a", Status: model.VideoCompleted, DownloadURL: "https://cdn.example.com/a.mov?sig=1",
	})
	if p.statusCalls != 0 {
		t.Fatalf("stored url should not trigger a live query")
	}
	if got.Outcome != OutcomeBundled || got.Source != SourceURL || got.Extension != ".mov" {
		t.Fatalf("unexpected result %+v", got)
	}
	if p.authCalls != 1 {
		t.Fatalf("403 must not be retried, got %d auth calls", p.authCalls)
	}
}

func TestResolveStoredFailureWithoutIDIsUnavailable(t *testing.T) {
	p := &fakeProvider{}
	r := newTestResolver(p, nil)
	got := r.Resolve(context.Background(), uuid.New(), key, &model.VideoInfo{Status: model.VideoFailed, DownloadURL: "https://x/old.mp4"})
	if got.Outcome != OutcomeUnavailable {
		t.Fatalf("outcome = %s", got.Outcome)
	}
	if p.statusCalls != 0 || len(p.fetched) != 0 {
		t.Fatalf("terminal stored status without id must not call the provider")
	}
}

func TestResolveLiveFailureIsUnavailable(t *testing.T) {
	p := &fakeProvider{
		statuses: []ProviderStatus{{VideoID: "v", Status: model.VideoFailed, ErrorCode: "render_error"}},
		authData: []byte("should-not-be-used"),
	}
	r := newTestResolver(p, nil)
	got := r.Resolve(context.Background(), uuid.New(), key, &model.VideoInfo{VideoID: "v", Status: model.VideoFailed})
	if got.Outcome != OutcomeUnavailable || p.authCalls != 0 {
		t.Fatalf("unexpected result %+v (auth calls %d)", got, p.authCalls)
	}
}

func TestResolveRetriesStatusOnceOnTimeout(t *testing.T) {
	p := &fakeProvider{
		statuses: []ProviderStatus{
			{VideoID: "v", Status: model.VideoTimeout},
			{VideoID: "v", Status: model.VideoCompleted, DownloadURL: "https://cdn.example.com/v.mp4"},
		},
		authErr: errors.New("unauthorized"),
		urlData: map[string][]byte{"https://cdn.example.com/v.mp4": []byte("mp4")},
	}
	w := &recordingWriter{}
	r := newTestResolver(p, w)
	got := r.Resolve(context.Background(), uuid.New(), key, &model.VideoInfo{VideoID: "v", Status: model.VideoGenerating})
	if p.statusCalls != 2 {
		t.Fatalf("expected one retry, got %d calls", p.statusCalls)
	}
	if got.Outcome != OutcomeBundled || got.Source != SourceURL {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(w.updates) != 1 || w.updates[0].Status != model.VideoCompleted {
		t.Fatalf("live url not persisted: %+v", w.updates)
	}
}

func TestResolveAllTiersFail(t *testing.T) {
	p := &fakeProvider{
		statuses: []ProviderStatus{{VideoID: "v", Status: model.VideoConnectionError}},
		authErr:  &httpx.StatusError{Op: "download", Status: 503},
	}
	r := newTestResolver(p, nil)
	got := r.Resolve(context.Background(), uuid.New(), key, &model.VideoInfo{VideoID: "v"})
	if got.Outcome != OutcomeUnavailable {
		t.Fatalf("outcome = %s", got.Outcome)
	}
	if p.statusCalls != 2 || p.authCalls != 2 {
		t.Fatalf("each tier should be tried twice: status=%d auth=%d", p.statusCalls, p.authCalls)
	}
	if got.Reason == "" {
		t.Fatalf("unavailable result must carry a reason")
	}
}

func TestExtensionFromURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ".mp4"},
		{"https://x/y/video.WEBM?token=abc", ".webm"},
		{"https://x/y/video", ".mp4"},
		{"https://x/y/video.exe", ".mp4"},
		{"https://x/y/clip.m4v#t=10", ".m4v"},
	}
	for _, tc := range cases {
		if got := ExtensionFromURL(tc.in); got != tc.want {
			t.Fatalf("ExtensionFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
