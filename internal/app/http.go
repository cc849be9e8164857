package app

import (
	httpapi "github.com/yungbote/neurobridge-export/internal/http"
	httpH "github.com/yungbote/neurobridge-export/internal/http/handlers"
)

func wireHTTP(a *App) *httpapi.Server {
	deps := map[string]httpH.Pinger{"database": a.dbService}
	if a.Clients.StatusCache != nil {
		deps["redis"] = a.Clients.StatusCache
	}

	serviceName := ""
	if a.Cfg.Otel.Enabled {
		serviceName = a.Cfg.Otel.ServiceName
	}

	return httpapi.NewServer(httpapi.RouterConfig{
		Log:           a.Log,
		ServiceName:   serviceName,
		CORSOrigins:   a.Cfg.CORSOrigins,
		Metrics:       a.Services.Metrics,
		ExportHandler: httpH.NewExportHandler(a.Log, a.Services.Export, a.Cfg.SpoolDir),
		HealthHandler: httpH.NewHealthHandler(deps),
	})
}
