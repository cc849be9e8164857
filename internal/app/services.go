package app

import (
	"github.com/yungbote/neurobridge-export/internal/modules/export"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
	"github.com/yungbote/neurobridge-export/internal/modules/export/video"
	"github.com/yungbote/neurobridge-export/internal/observability"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
)

type Services struct {
	Metrics  *observability.Metrics
	Resolver *video.Resolver
	Packager *export.Packager
	Export   *export.Service
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos) (Services, error) {
	log.Info("Wiring services...")

	profile, err := scorm.ParseProfile(cfg.Export.Profile)
	if err != nil {
		return Services{}, err
	}
	mode, err := scorm.ParseMode(cfg.Export.Mode)
	if err != nil {
		return Services{}, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	var cache video.StatusCache
	if clients.StatusCache != nil {
		cache = clients.StatusCache
	}
	resolver := video.NewResolver(log, video.ResolverConfig{
		CDNURLTemplate:  cfg.Video.CDNURLTemplate,
		StatusTimeout:   cfg.Video.StatusTimeout,
		DownloadTimeout: cfg.Video.DownloadTimeout,
		AttemptsPerTier: cfg.Video.AttemptsPerTier,
	}, clients.VideoProvider, clients.VideoProvider, clients.VideoProvider, repos.CourseContent, cache)

	packager := export.NewPackager(export.PackagerDeps{
		Log:      log,
		Store:    repos.CourseContent,
		Resolver: resolver,
		Defaults: export.Options{
			Profile:          profile,
			Mode:             mode,
			VideoConcurrency: cfg.Video.Concurrency,
			Host:             scorm.HostOptions{APIObjectName: cfg.Export.APIObjectName},
		},
	})

	deps := export.ServiceDeps{
		Log:       log,
		Exporter:  packager,
		Metrics:   metrics,
		KeyPrefix: cfg.Archive.KeyPrefix,
	}
	if clients.Archive != nil {
		deps.Archive = clients.Archive
	}

	return Services{
		Metrics:  metrics,
		Resolver: resolver,
		Packager: packager,
		Export:   export.NewService(deps),
	}, nil
}
