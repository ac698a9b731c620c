package main

import (
	"fmt"
	"os"
	"time"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/engine"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8087"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxBodyBytes    = 1 << 20
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	MaxBodyBytes int64         `yaml:"maxBodyBytes"`
}

// EngineConfig holds execution engine transport and polling settings.
type EngineConfig struct {
	engine.Config `yaml:",inline"`
	Poll          engine.PollConfig `yaml:"poll"`
}

// ExecuteConfig holds execution settings.
type ExecuteConfig struct {
	MaxCodeBytes        int                     `yaml:"maxCodeBytes"`
	MaxCustomInputs     int                     `yaml:"maxCustomInputs"`
	MaxCustomInputBytes int                     `yaml:"maxCustomInputBytes"`
	ReportTTL           time.Duration           `yaml:"reportTTL"`
	ProblemCacheTTL     time.Duration           `yaml:"problemCacheTTL"`
	ProblemEmptyTTL     time.Duration           `yaml:"problemEmptyTTL"`
	SourceBucket        string                  `yaml:"sourceBucket"`
	SourceKeyPrefix     string                  `yaml:"sourceKeyPrefix"`
	SolvedTopic         string                  `yaml:"solvedTopic"`
	Limits              model.ModeLimits        `yaml:"limits"`
	RateLimit           service.RateLimitConfig `yaml:"rateLimit"`
	Timeouts            service.TimeoutConfig   `yaml:"timeouts"`
}

// AppConfig holds judge-service configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Engine   EngineConfig        `yaml:"engine"`
	Execute  ExecuteConfig       `yaml:"execute"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = defaultMaxBodyBytes
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.Engine.BaseURL == "" {
		return nil, fmt.Errorf("engine baseURL is required")
	}
	cfg.Engine.ApplyDefaults()
	cfg.Engine.Poll.ApplyDefaults()

	if cfg.Execute.ReportTTL == 0 {
		cfg.Execute.ReportTTL = 24 * time.Hour
	}
	if cfg.Execute.ProblemCacheTTL == 0 {
		cfg.Execute.ProblemCacheTTL = 30 * time.Minute
	}
	if cfg.Execute.ProblemEmptyTTL == 0 {
		cfg.Execute.ProblemEmptyTTL = 5 * time.Minute
	}
	if cfg.Execute.SourceBucket == "" {
		cfg.Execute.SourceBucket = cfg.MinIO.Bucket
	}
	if cfg.Execute.SourceBucket == "" {
		cfg.Execute.SourceBucket = "codejudge-sources"
	}
	if cfg.Execute.SourceKeyPrefix == "" {
		cfg.Execute.SourceKeyPrefix = "sources"
	}
	if cfg.Execute.SolvedTopic == "" {
		cfg.Execute.SolvedTopic = "problem.solved"
	}
	cfg.Execute.Limits.ApplyDefaults()
	if cfg.Execute.RateLimit.Window == 0 {
		cfg.Execute.RateLimit.Window = time.Minute
	}
	if cfg.Execute.RateLimit.UserMax == 0 {
		cfg.Execute.RateLimit.UserMax = 20
	}
	if cfg.Execute.RateLimit.IPMax == 0 {
		cfg.Execute.RateLimit.IPMax = 60
	}
	if cfg.Execute.Timeouts.Problem == 0 {
		cfg.Execute.Timeouts.Problem = 3 * time.Second
	}
	if cfg.Execute.Timeouts.Engine == 0 {
		cfg.Execute.Timeouts.Engine = 75 * time.Second
	}
	if cfg.Execute.Timeouts.DB == 0 {
		cfg.Execute.Timeouts.DB = 3 * time.Second
	}
	if cfg.Execute.Timeouts.Cache == 0 {
		cfg.Execute.Timeouts.Cache = time.Second
	}
	if cfg.Execute.Timeouts.MQ == 0 {
		cfg.Execute.Timeouts.MQ = 3 * time.Second
	}
	if cfg.Execute.Timeouts.Storage == 0 {
		cfg.Execute.Timeouts.Storage = 5 * time.Second
	}
	return &cfg, nil
}
