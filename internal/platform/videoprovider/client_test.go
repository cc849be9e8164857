package videoprovider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-export/internal/modules/export/model"
	exporterrors "github.com/yungbote/neurobridge-export/internal/pkg/errors"
	"github.com/yungbote/neurobridge-export/internal/pkg/httpx"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/videos/done", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"completed","video_url":"https://cdn.example.com/done.mp4","progress":1}}`))
	})
	mux.HandleFunc("/v1/videos/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	mux.HandleFunc("/v1/videos/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/v1/videos/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/v1/videos/done/content", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("video-bytes"))
	})
	mux.HandleFunc("/cdn/big.mp4", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/cdn/small.mp4", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("small"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *Client {
	return NewClient(logger.Nop(), Config{BaseURL: srv.URL, APIKey: "secret", MaxBytes: 32})
}

func TestGetStatus(t *testing.T) {
	srv := newServer(t)
	c := newClient(srv)
	ctx := context.Background()

	st := c.GetStatus(ctx, "done")
	if st.Status != model.VideoCompleted || st.DownloadURL != "https://cdn.example.com/done.mp4" || st.Progress != 100 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st := c.GetStatus(ctx, "missing"); st.Status != model.VideoNotFound {
		t.Fatalf("missing video = %s", st.Status)
	}
	if st := c.GetStatus(ctx, "garbage"); st.Status != model.VideoUnknown || !st.Malformed {
		t.Fatalf("garbage payload = %+v", st)
	}
	if st := c.GetStatus(ctx, "broken"); st.Status != model.VideoAPIError || st.ErrorCode != "http_502" {
		t.Fatalf("broken = %+v", st)
	}

	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if st := c.GetStatus(tctx, "slow"); st.Status != model.VideoTimeout {
		t.Fatalf("slow = %+v", st)
	}
}

func TestGetStatusConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(logger.Nop(), Config{BaseURL: url})
	if st := c.GetStatus(context.Background(), "x"); st.Status != model.VideoConnectionError {
		t.Fatalf("closed server = %+v", st)
	}
}

func TestDownloads(t *testing.T) {
	srv := newServer(t)
	c := newClient(srv)
	ctx := context.Background()

	b, err := c.DownloadAuthenticated(ctx, "done")
	if err != nil || string(b) != "video-bytes" {
		t.Fatalf("authenticated download: %q %v", b, err)
	}

	b, err = c.FetchURL(ctx, srv.URL+"/cdn/small.mp4")
	if err != nil || string(b) != "small" {
		t.Fatalf("fetch: %q %v", b, err)
	}

	if _, err := c.FetchURL(ctx, srv.URL+"/cdn/big.mp4"); err == nil {
		t.Fatalf("expected size limit error")
	}

	_, err = c.FetchURL(ctx, srv.URL+"/cdn/none.mp4")
	var se *httpx.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
	if httpx.IsRetryableError(err) {
		t.Fatalf("404 must not be retryable")
	}

	if _, err := c.DownloadAuthenticated(ctx, ""); !errors.Is(err, exporterrors.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
