package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-export/internal/modules/export"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type fakeExportService struct {
	gotOpts    export.Options
	err        error
	canPublish bool
}

func (f *fakeExportService) Export(_ context.Context, courseID uuid.UUID, opts export.Options, w io.Writer) (*export.RunSummary, error) {
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	_, _ = io.WriteString(w, "PK-archive")
	return &export.RunSummary{CourseID: courseID, Profile: scorm.Profile12, Mode: scorm.ModeMulti, Generated: []string{"1/0"}, Reasons: map[string]string{"1/0": "secret upstream text"}}, nil
}

func (f *fakeExportService) Publish(_ context.Context, courseID uuid.UUID, opts export.Options) (*export.PublishResult, error) {
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &export.PublishResult{
		Key:     "scorm/" + courseID.String() + "/run.zip",
		URL:     "https://storage.example.com/run.zip",
		Size:    10,
		Summary: &export.RunSummary{CourseID: courseID, Profile: scorm.Profile2004, Mode: scorm.ModeSingle},
	}, nil
}

func (f *fakeExportService) ListPublished(_ context.Context, courseID uuid.UUID) ([]export.PublishedArchive, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := "scorm/" + courseID.String() + "/run.zip"
	return []export.PublishedArchive{{Key: key, URL: "https://storage.example.com/" + key}}, nil
}

func (f *fakeExportService) CanPublish() bool { return f.canPublish }

func newExportRouter(t *testing.T, svc ExportService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewExportHandler(logger.Nop(), svc, t.TempDir())
	r := gin.New()
	r.POST("/api/courses/:id/exports/scorm", h.ExportScorm)
	r.POST("/api/courses/:id/exports/scorm/publish", h.PublishScorm)
	r.GET("/api/courses/:id/exports/scorm", h.ListPublished)
	return r
}

func do(r *gin.Engine, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestExportScormStreamsArchive(t *testing.T) {
	svc := &fakeExportService{}
	r := newExportRouter(t, svc)
	id := uuid.New()

	rec := do(r, "/api/courses/"+id.String()+"/exports/scorm?profile=1.2&mode=single&skip_videos=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "PK-archive" {
		t.Fatalf("body: got=%q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type: got=%q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "course-"+id.String()+"-scorm12.zip") {
		t.Fatalf("content disposition: got=%q", cd)
	}
	var header export.RunSummary
	if err := json.Unmarshal([]byte(rec.Header().Get(HeaderExportSummary)), &header); err != nil {
		t.Fatalf("summary header: %v", err)
	}
	if header.CourseID != id || len(header.Generated) != 1 || header.Reasons != nil {
		t.Fatalf("unexpected summary header %+v", header)
	}
	if svc.gotOpts.Profile != scorm.Profile12 || svc.gotOpts.Mode != scorm.ModeSingle || !svc.gotOpts.SkipVideos {
		t.Fatalf("options not parsed: %+v", svc.gotOpts)
	}
}

func TestExportScormErrors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{name: "bad id", target: "/api/courses/nope/exports/scorm", want: http.StatusBadRequest},
		{name: "bad profile", target: "/api/courses/" + uuid.NewString() + "/exports/scorm?profile=3", want: http.StatusBadRequest},
		{name: "bad mode", target: "/api/courses/" + uuid.NewString() + "/exports/scorm?mode=many", want: http.StatusBadRequest},
		{name: "missing course", target: "/api/courses/" + uuid.NewString() + "/exports/scorm", err: exporterrors.Wrap(exporterrors.ErrNotFound, "export", "course", nil), want: http.StatusNotFound},
		{name: "store down", target: "/api/courses/" + uuid.NewString() + "/exports/scorm", err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := newExportRouter(t, &fakeExportService{err: tc.err})
		rec := do(r, tc.target)
		if rec.Code != tc.want {
			t.Fatalf("%s: status got=%d want=%d body=%s", tc.name, rec.Code, tc.want, rec.Body.String())
		}
		if rec.Header().Get(HeaderExportSummary) != "" {
			t.Fatalf("%s: failed export must not carry a summary", tc.name)
		}
		if tc.want == http.StatusInternalServerError && strings.Contains(rec.Body.String(), "connection refused") {
			t.Fatalf("%s: internal error leaked: %s", tc.name, rec.Body.String())
		}
	}
}

func TestPublishScorm(t *testing.T) {
	id := uuid.New()

	r := newExportRouter(t, &fakeExportService{})
	if rec := do(r, "/api/courses/"+id.String()+"/exports/scorm/publish"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("publish without storage: got=%d", rec.Code)
	}

	r = newExportRouter(t, &fakeExportService{canPublish: true})
	rec := do(r, "/api/courses/"+id.String()+"/exports/scorm/publish")
	if rec.Code != http.StatusCreated {
		t.Fatalf("publish: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var res export.PublishResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.URL != "https://storage.example.com/run.zip" || res.Summary == nil || res.Summary.CourseID != id {
		t.Fatalf("unexpected publish result %+v", res)
	}
}

func TestListPublished(t *testing.T) {
	id := uuid.New()
	get := func(r *gin.Engine, target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	r := newExportRouter(t, &fakeExportService{})
	if rec := get(r, "/api/courses/"+id.String()+"/exports/scorm"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("list without storage: got=%d", rec.Code)
	}

	r = newExportRouter(t, &fakeExportService{canPublish: true})
	if rec := get(r, "/api/courses/nope/exports/scorm"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got=%d", rec.Code)
	}
	rec := get(r, "/api/courses/"+id.String()+"/exports/scorm")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Archives []export.PublishedArchive `json:"archives"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v body=%s", err, rec.Body.String())
	}
	if len(body.Archives) != 1 || !strings.HasSuffix(body.Archives[0].Key, "/run.zip") {
		t.Fatalf("unexpected archives %+v", body.Archives)
	}

	r = newExportRouter(t, &fakeExportService{canPublish: true, err: exporterrors.Wrap(exporterrors.ErrUpstreamUnavailable, "list published", "", errors.New("gcs down"))})
	if rec := get(r, "/api/courses/"+id.String()+"/exports/scorm"); rec.Code != http.StatusBadGateway {
		t.Fatalf("upstream failure: got=%d", rec.Code)
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler(map[string]Pinger{
		"db":    pingFunc(func(context.Context) error { return nil }),
		"redis": pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	})
	r := gin.New()
	r.GET("/healthcheck", h.HealthCheck)
	r.GET("/readyz", h.Ready)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "redis") {
		t.Fatalf("readyz: %d %s", rec.Code, rec.Body.String())
	}
}
