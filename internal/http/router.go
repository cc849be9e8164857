package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-export/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-export/internal/http/middleware"
	"github.com/yungbote/neurobridge-export/internal/observability"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	ExportHandler *httpH.ExportHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Exports
		if cfg.ExportHandler != nil {
			api.GET("/courses/:id/exports/scorm", cfg.ExportHandler.ListPublished)
			api.POST("/courses/:id/exports/scorm", cfg.ExportHandler.ExportScorm)
			api.POST("/courses/:id/exports/scorm/publish", cfg.ExportHandler.PublishScorm)
		}
	}

	return r
}
