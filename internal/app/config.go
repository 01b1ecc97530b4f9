package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/tenpadel-backend/internal/clients/gcp"
	"github.com/yungbote/tenpadel-backend/internal/clients/redis"
	"github.com/yungbote/tenpadel-backend/internal/data/db"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/fetch"
	"github.com/yungbote/tenpadel-backend/internal/ingestion/pipeline"
	"github.com/yungbote/tenpadel-backend/internal/platform/envutil"
)

type Config struct {
	LogMode     string
	ServiceName string
	HTTPAddr    string
	AdminToken  string
	CORSOrigins []string

	DB db.Config

	Fetch       fetch.Config
	SnapshotDir string

	MirrorPath   string
	MirrorBucket gcp.MirrorBucketConfig

	Defaults   pipeline.Params
	MaxResults int
	MaxPages   int
	WindowDays int
	Timezone   string
	Location   *time.Location

	Schedule   string
	RunTimeout time.Duration

	Redis       redis.Config
	RunLockTTL  time.Duration
	RunLockFile string
}

// fileConfig is the optional YAML defaults file.
type fileConfig struct {
	Source struct {
		BaseURL    string `yaml:"base_url"`
		SearchPath string `yaml:"search_path"`
		UserAgent  string `yaml:"user_agent"`
		MinDelayMS int    `yaml:"min_delay_ms"`
		MaxDelayMS int    `yaml:"max_delay_ms"`
	} `yaml:"source"`
	Defaults pipeline.Params `yaml:"defaults"`
	Ingest   struct {
		WindowDays int    `yaml:"window_days"`
		MaxResults int    `yaml:"max_results"`
		MaxPages   int    `yaml:"max_pages"`
		Schedule   string `yaml:"schedule"`
		Timezone   string `yaml:"timezone"`
	} `yaml:"ingest"`
	Mirror struct {
		Path string `yaml:"path"`
	} `yaml:"mirror"`
}

// LoadEnv reads an optional .env file into the process environment without
// overriding variables that are already set.
func LoadEnv() error {
	path := envutil.String("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		LogMode:     "development",
		ServiceName: "tenpadel-ingest",
		HTTPAddr:    ":8080",
		DB:          db.Config{Driver: db.DriverSQLite, SQLitePath: "data/tournaments.db", PostgresPort: "5432"},
		Fetch: fetch.Config{
			BaseURL:    "https://tenup.fft.fr",
			SearchPath: "/recherche/tournois",
			MinDelay:   300 * time.Millisecond,
			MaxDelay:   900 * time.Millisecond,
			Timeout:    30 * time.Second,
		},
		SnapshotDir: "data/snapshots",
		MirrorPath:  "data/tournaments.json",
		MaxResults:  500,
		MaxPages:    50,
		WindowDays:  60,
		Timezone:    "Europe/Paris",
		Schedule:    "@every 6h",
		RunTimeout:  30 * time.Minute,
		RunLockTTL:  redis.DefaultLockTTL,
	}
}

// LoadConfig layers built-in defaults, the YAML file named by
// INGEST_CONFIG_FILE and environment variables, in that order.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := envutil.String("INGEST_CONFIG_FILE", ""); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	if cfg.RunLockFile == "" {
		cfg.RunLockFile = cfg.MirrorPath + ".lock"
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid INGEST_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	setString(&cfg.Fetch.BaseURL, fc.Source.BaseURL)
	setString(&cfg.Fetch.SearchPath, fc.Source.SearchPath)
	setString(&cfg.Fetch.UserAgent, fc.Source.UserAgent)
	if fc.Source.MinDelayMS > 0 {
		cfg.Fetch.MinDelay = time.Duration(fc.Source.MinDelayMS) * time.Millisecond
	}
	if fc.Source.MaxDelayMS > 0 {
		cfg.Fetch.MaxDelay = time.Duration(fc.Source.MaxDelayMS) * time.Millisecond
	}
	cfg.Defaults = fc.Defaults
	setInt(&cfg.WindowDays, fc.Ingest.WindowDays)
	setInt(&cfg.MaxResults, fc.Ingest.MaxResults)
	setInt(&cfg.MaxPages, fc.Ingest.MaxPages)
	setString(&cfg.Schedule, fc.Ingest.Schedule)
	setString(&cfg.Timezone, fc.Ingest.Timezone)
	setString(&cfg.MirrorPath, fc.Mirror.Path)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.AdminToken = envutil.String("ADMIN_TOKEN", cfg.AdminToken)
	cfg.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.DB = db.Config{
		Driver:           envutil.String("DB_DRIVER", cfg.DB.Driver),
		SQLitePath:       envutil.String("SQLITE_PATH", cfg.DB.SQLitePath),
		PostgresHost:     envutil.String("POSTGRES_HOST", cfg.DB.PostgresHost),
		PostgresPort:     envutil.String("POSTGRES_PORT", cfg.DB.PostgresPort),
		PostgresUser:     envutil.String("POSTGRES_USER", cfg.DB.PostgresUser),
		PostgresPassword: envutil.String("POSTGRES_PASSWORD", cfg.DB.PostgresPassword),
		PostgresName:     envutil.String("POSTGRES_NAME", cfg.DB.PostgresName),
		PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", cfg.DB.PostgresSSLMode),
	}

	cfg.Fetch.BaseURL = envutil.String("SOURCE_BASE_URL", cfg.Fetch.BaseURL)
	cfg.Fetch.SearchPath = envutil.String("SOURCE_SEARCH_PATH", cfg.Fetch.SearchPath)
	cfg.Fetch.MinDelay = envutil.Millis("FETCH_MIN_DELAY_MS", cfg.Fetch.MinDelay)
	cfg.Fetch.MaxDelay = envutil.Millis("FETCH_MAX_DELAY_MS", cfg.Fetch.MaxDelay)
	cfg.Fetch.Timeout = envutil.Seconds("FETCH_TIMEOUT_SECONDS", cfg.Fetch.Timeout)
	cfg.Fetch.UserAgent = envutil.String("FETCH_USER_AGENT", cfg.Fetch.UserAgent)
	cfg.SnapshotDir = envutil.String("SNAPSHOT_DIR", cfg.SnapshotDir)

	cfg.MirrorPath = envutil.String("MIRROR_PATH", cfg.MirrorPath)
	cfg.MirrorBucket = gcp.MirrorBucketConfig{
		Bucket:    envutil.String("MIRROR_GCS_BUCKET", cfg.MirrorBucket.Bucket),
		Object:    envutil.String("MIRROR_GCS_OBJECT", cfg.MirrorBucket.Object),
		CDNDomain: envutil.String("MIRROR_CDN_DOMAIN", cfg.MirrorBucket.CDNDomain),
	}

	cfg.Defaults.Genders = envutil.List("INGEST_GENDERS", cfg.Defaults.Genders)
	cfg.Defaults.Categories = envutil.List("INGEST_CATEGORIES", cfg.Defaults.Categories)
	cfg.Defaults.Levels = envutil.List("INGEST_LEVELS", cfg.Defaults.Levels)
	cfg.Defaults.Region = envutil.String("INGEST_REGION", cfg.Defaults.Region)
	cfg.MaxResults = envutil.Int("INGEST_MAX_RESULTS", cfg.MaxResults)
	cfg.MaxPages = envutil.Int("INGEST_MAX_PAGES", cfg.MaxPages)
	cfg.WindowDays = envutil.Int("INGEST_WINDOW_DAYS", cfg.WindowDays)
	cfg.Timezone = envutil.String("INGEST_TIMEZONE", cfg.Timezone)
	cfg.RunTimeout = envutil.Seconds("INGEST_RUN_TIMEOUT_SECONDS", cfg.RunTimeout)

	// An explicitly empty INGEST_SCHEDULE disables the timer.
	if v, ok := os.LookupEnv("INGEST_SCHEDULE"); ok {
		cfg.Schedule = strings.TrimSpace(v)
	}

	cfg.Redis = redis.Config{
		Addr:     envutil.String("REDIS_ADDR", cfg.Redis.Addr),
		Password: envutil.String("REDIS_PASSWORD", cfg.Redis.Password),
		DB:       envutil.Int("REDIS_DB", cfg.Redis.DB),
		Channel:  envutil.String("REDIS_CHANNEL", cfg.Redis.Channel),
		LockKey:  envutil.String("RUN_LOCK_KEY", cfg.Redis.LockKey),
	}
	cfg.RunLockTTL = envutil.Seconds("RUN_LOCK_TTL_SECONDS", cfg.RunLockTTL)
	cfg.RunLockFile = envutil.String("RUN_LOCK_FILE", cfg.RunLockFile)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// PipelineConfig projects the run orchestrator settings.
func (c Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		MaxResults: c.MaxResults,
		MaxPages:   c.MaxPages,
		WindowDays: c.WindowDays,
		Location:   c.Location,
		Defaults:   c.Defaults,
	}
}
