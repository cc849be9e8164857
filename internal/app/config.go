package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-export/internal/data/db"
	"github.com/yungbote/neurobridge-export/internal/modules/export/scorm"
	"github.com/yungbote/neurobridge-export/internal/observability"
	"github.com/yungbote/neurobridge-export/internal/pkg/envutil"
	"github.com/yungbote/neurobridge-export/internal/pkg/logger"
	"github.com/yungbote/neurobridge-export/internal/platform/gcp"
)

const configFileEnv = "EXPORT_CONFIG_FILE"

type Config struct {
	Port            string        `yaml:"port"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// SpoolDir holds archives while a download response is prepared; empty uses the OS temp dir.
	SpoolDir string `yaml:"spool_dir"`

	Database DatabaseConfig `yaml:"database"`
	Video    VideoConfig    `yaml:"video"`
	Export   ExportConfig   `yaml:"export"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Redis    RedisConfig    `yaml:"redis"`
	Otel     OtelConfig     `yaml:"otel"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

type DatabaseConfig struct {
	Driver           string `yaml:"driver"`
	SQLitePath       string `yaml:"sqlite_path"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresName     string `yaml:"postgres_name"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`
	AutoMigrate      bool   `yaml:"auto_migrate"`
}

type VideoConfig struct {
	ProviderBaseURL string        `yaml:"provider_base_url"`
	ProviderAPIKey  string        `yaml:"provider_api_key"`
	CDNURLTemplate  string        `yaml:"cdn_url_template"`
	StatusTimeout   time.Duration `yaml:"status_timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	MaxBytes        int64         `yaml:"max_bytes"`
	Concurrency     int           `yaml:"concurrency"`
	AttemptsPerTier int           `yaml:"attempts_per_tier"`
}

type ExportConfig struct {
	Profile       string `yaml:"profile"`
	Mode          string `yaml:"mode"`
	APIObjectName string `yaml:"api_object_name"`
}

type ArchiveConfig struct {
	Bucket        string        `yaml:"bucket"`
	KeyPrefix     string        `yaml:"key_prefix"`
	CDNDomain     string        `yaml:"cdn_domain"`
	Credentials   string        `yaml:"credentials"`
	PublicBaseURL string        `yaml:"public_base_url"`
	StorageMode   string        `yaml:"storage_mode"`
	EmulatorHost  string        `yaml:"emulator_host"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

func DefaultConfig() Config {
	return Config{
		Port:            "8080",
		Environment:     "development",
		ShutdownTimeout: 30 * time.Second,
		Database: DatabaseConfig{
			Driver:          db.DriverPostgres,
			PostgresHost:    "localhost",
			PostgresPort:    "5432",
			PostgresUser:    "postgres",
			PostgresName:    "neurobridge",
			PostgresSSLMode: "disable",
		},
		Video: VideoConfig{
			StatusTimeout:   15 * time.Second,
			DownloadTimeout: 120 * time.Second,
			Concurrency:     4,
			AttemptsPerTier: 2,
		},
		Export: ExportConfig{
			Profile: string(scorm.Profile2004),
			Mode:    string(scorm.ModeMulti),
		},
		Archive: ArchiveConfig{
			KeyPrefix:     "scorm",
			UploadTimeout: 10 * time.Minute,
		},
		Redis: RedisConfig{TTL: 10 * time.Minute},
		Otel: OtelConfig{
			ServiceName: "neurobridge-export",
			SampleRatio: 0.1,
		},
		MetricsEnabled: true,
	}
}

// LoadConfig layers defaults, the optional YAML file named by
// EXPORT_CONFIG_FILE, then environment variables.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := DefaultConfig()
	if path := envutil.String(configFileEnv, "", log); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
		log.Info("Loaded config file", "path", path)
	}
	applyEnv(&cfg, log)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, log *logger.Logger) {
	cfg.Port = envutil.String("PORT", cfg.Port, log)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment, log)
	cfg.ShutdownTimeout = envutil.Seconds("SHUTDOWN_TIMEOUT_SECONDS", cfg.ShutdownTimeout, log)
	if raw := envutil.String("CORS_ALLOWED_ORIGINS", "", log); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}
	cfg.SpoolDir = envutil.String("EXPORT_SPOOL_DIR", cfg.SpoolDir, log)

	d := &cfg.Database
	d.Driver = envutil.String("DB_DRIVER", d.Driver, log)
	d.SQLitePath = envutil.String("SQLITE_PATH", d.SQLitePath, log)
	d.PostgresHost = envutil.String("POSTGRES_HOST", d.PostgresHost, log)
	d.PostgresPort = envutil.String("POSTGRES_PORT", d.PostgresPort, log)
	d.PostgresUser = envutil.String("POSTGRES_USER", d.PostgresUser, log)
	d.PostgresPassword = envutil.String("POSTGRES_PASSWORD", d.PostgresPassword, log)
	d.PostgresName = envutil.String("POSTGRES_NAME", d.PostgresName, log)
	d.PostgresSSLMode = envutil.String("POSTGRES_SSLMODE", d.PostgresSSLMode, log)
	d.AutoMigrate = envutil.Bool("DB_AUTO_MIGRATE", d.AutoMigrate)

	v := &cfg.Video
	v.ProviderBaseURL = envutil.String("VIDEO_PROVIDER_BASE_URL", v.ProviderBaseURL, log)
	v.ProviderAPIKey = envutil.String("VIDEO_PROVIDER_API_KEY", v.ProviderAPIKey, log)
	v.CDNURLTemplate = envutil.String("VIDEO_CDN_URL_TEMPLATE", v.CDNURLTemplate, log)
	v.StatusTimeout = envutil.Seconds("VIDEO_STATUS_TIMEOUT_SECONDS", v.StatusTimeout, log)
	v.DownloadTimeout = envutil.Seconds("VIDEO_DOWNLOAD_TIMEOUT_SECONDS", v.DownloadTimeout, log)
	v.MaxBytes = envutil.Int64("VIDEO_MAX_BYTES", v.MaxBytes, log)
	v.Concurrency = envutil.Int("VIDEO_CONCURRENCY", v.Concurrency, log)
	v.AttemptsPerTier = envutil.Int("VIDEO_ATTEMPTS_PER_TIER", v.AttemptsPerTier, log)

	e := &cfg.Export
	e.Profile = envutil.String("SCORM_PROFILE", e.Profile, log)
	e.Mode = envutil.String("SCORM_MODE", e.Mode, log)
	e.APIObjectName = envutil.String("SCORM_API_OBJECT", e.APIObjectName, log)

	a := &cfg.Archive
	a.Bucket = envutil.String("EXPORT_GCS_BUCKET", a.Bucket, log)
	a.KeyPrefix = envutil.String("EXPORT_GCS_PREFIX", a.KeyPrefix, log)
	a.CDNDomain = envutil.String("EXPORT_CDN_DOMAIN", a.CDNDomain, log)
	a.Credentials = envutil.String("GCS_CREDENTIALS", a.Credentials, log)
	a.PublicBaseURL = envutil.String("EXPORT_GCS_PUBLIC_BASE_URL", a.PublicBaseURL, log)
	a.StorageMode = envutil.String("OBJECT_STORAGE_MODE", a.StorageMode, log)
	a.EmulatorHost = envutil.String("STORAGE_EMULATOR_HOST", a.EmulatorHost, log)
	a.UploadTimeout = envutil.Seconds("EXPORT_UPLOAD_TIMEOUT_SECONDS", a.UploadTimeout, log)

	r := &cfg.Redis
	r.Addr = envutil.String("REDIS_ADDR", r.Addr, log)
	r.Password = envutil.String("REDIS_PASSWORD", r.Password, log)
	r.DB = envutil.Int("REDIS_DB", r.DB, log)
	r.TTL = envutil.Seconds("VIDEO_STATUS_CACHE_TTL_SECONDS", r.TTL, log)

	o := &cfg.Otel
	o.Enabled = envutil.Bool("OTEL_ENABLED", o.Enabled)
	o.ServiceName = envutil.String("OTEL_SERVICE_NAME", o.ServiceName, log)
	o.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", o.Endpoint, log)
	o.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", o.Headers, log)
	o.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", o.Insecure)
	if ratio := envutil.Int("OTEL_SAMPLER_PERCENT", -1, log); ratio >= 0 {
		o.SampleRatio = float64(ratio) / 100
	}

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
}

func (c Config) Validate() error {
	if _, err := scorm.ParseProfile(c.Export.Profile); err != nil {
		return fmt.Errorf("export profile: %w", err)
	}
	if _, err := scorm.ParseMode(c.Export.Mode); err != nil {
		return fmt.Errorf("export mode: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Video.Concurrency <= 0 {
		return fmt.Errorf("video concurrency must be positive, got %d", c.Video.Concurrency)
	}
	if c.Archive.Bucket != "" {
		if _, err := c.ObjectStorage(); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) DBConfig() db.Config {
	return db.Config{
		Driver:           c.Database.Driver,
		SQLitePath:       c.Database.SQLitePath,
		PostgresHost:     c.Database.PostgresHost,
		PostgresPort:     c.Database.PostgresPort,
		PostgresUser:     c.Database.PostgresUser,
		PostgresPassword: c.Database.PostgresPassword,
		PostgresName:     c.Database.PostgresName,
		PostgresSSLMode:  c.Database.PostgresSSLMode,
	}
}

func (c Config) ObjectStorage() (gcp.ObjectStorageConfig, error) {
	return gcp.ParseObjectStorageMode(c.Archive.StorageMode, c.Archive.EmulatorHost)
}

func (c Config) OtelSettings() observability.OtelConfig {
	return observability.OtelConfig{
		Enabled:     c.Otel.Enabled,
		ServiceName: c.Otel.ServiceName,
		Environment: c.Environment,
		Endpoint:    c.Otel.Endpoint,
		Headers:     observability.ParseOTLPHeaders(c.Otel.Headers),
		Insecure:    c.Otel.Insecure,
		SampleRatio: c.Otel.SampleRatio,
	}
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
