package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-export/internal/http/response"
	"github.com/yungbote/neurobridge-export/internal/modules/export"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

const HeaderExportSummary = "X-Export-Summary"

type ExportService interface {
	Export(ctx context.Context, courseID uuid.UUID, opts export.Options, w io.Writer) (*export.RunSummary, error)
	Publish(ctx context.Context, courseID uuid.UUID, opts export.Options) (*export.PublishResult, error)
	ListPublished(ctx context.Context, courseID uuid.UUID) ([]export.PublishedArchive, error)
	CanPublish() bool
}

type ExportHandler struct {
	log    *logger.Logger
	svc    ExportService
	tmpDir string
}

// NewExportHandler spools archives under tmpDir (os.TempDir when empty)
// so the run summary can be sent as a header before the body.
func NewExportHandler(log *logger.Logger, svc ExportService, tmpDir string) *ExportHandler {
	return &ExportHandler{log: log.With("handler", "ExportHandler"), svc: svc, tmpDir: tmpDir}
}

// POST /api/courses/:id/exports/scorm
func (h *ExportHandler) ExportScorm(c *gin.Context) {
	courseID, opts, ok := h.parseRequest(c)
	if !ok {
		return
	}

	tmp, err := os.CreateTemp(h.tmpDir, "scorm-export-*.zip")
	if err != nil {
		h.log.Error("Failed to create export spool file", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "spool_failed", err)
		return
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	summary, err := h.svc.Export(c.Request.Context(), courseID, opts, tmp)
	if err != nil {
		_ = c.Error(err)
		response.RespondMappedError(c, err)
		return
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err == nil {
		_, err = tmp.Seek(0, io.SeekStart)
	}
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "spool_failed", err)
		return
	}

	filename := fmt.Sprintf("course-%s-%s.zip", courseID, summary.Profile)
	c.Header(HeaderExportSummary, summary.HeaderValue())
	c.DataFromReader(http.StatusOK, size, "application/zip", tmp, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
	})
}

// POST /api/courses/:id/exports/scorm/publish
func (h *ExportHandler) PublishScorm(c *gin.Context) {
	if !h.svc.CanPublish() {
		response.RespondError(c, http.StatusServiceUnavailable, "publish_disabled", fmt.Errorf("archive storage not configured"))
		return
	}
	courseID, opts, ok := h.parseRequest(c)
	if !ok {
		return
	}
	res, err := h.svc.Publish(c.Request.Context(), courseID, opts)
	if err != nil {
		_ = c.Error(err)
		response.RespondMappedError(c, err)
		return
	}
	c.Header(HeaderExportSummary, res.Summary.HeaderValue())
	c.JSON(http.StatusCreated, res)
}

// GET /api/courses/:id/exports/scorm
func (h *ExportHandler) ListPublished(c *gin.Context) {
	if !h.svc.CanPublish() {
		response.RespondError(c, http.StatusServiceUnavailable, "publish_disabled", fmt.Errorf("archive storage not configured"))
		return
	}
	courseID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil || courseID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", fmt.Errorf("invalid course id %q", c.Param("id")))
		return
	}
	archives, err := h.svc.ListPublished(c.Request.Context(), courseID)
	if err != nil {
		_ = c.Error(err)
		response.RespondMappedError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"archives": archives})
}

func (h *ExportHandler) parseRequest(c *gin.Context) (uuid.UUID, export.Options, bool) {
	var opts export.Options
	courseID, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil || courseID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_course_id", fmt.Errorf("invalid course id %q", c.Param("id")))
		return courseID, opts, false
	}
	if raw := c.Query("profile"); raw != "" {
		if opts.Profile, err = scorm.ParseProfile(raw); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_profile", err)
			return courseID, opts, false
		}
	}
	if raw := c.Query("mode"); raw != "" {
		if opts.Mode, err = scorm.ParseMode(raw); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_mode", err)
			return courseID, opts, false
		}
	}
	if raw := c.Query("skip_videos"); raw != "" {
		if opts.SkipVideos, err = strconv.ParseBool(raw); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_skip_videos", err)
			return courseID, opts, false
		}
	}
	if raw := c.Query("api_object"); raw != "" {
		opts.Host.APIObjectName = raw
	}
	return courseID, opts, true
}
