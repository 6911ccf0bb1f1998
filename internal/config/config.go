package config

import (
	"fmt"
	"time"

	"sitetrack/pkg/config"
)

// ProgressConfig 进度引擎参数
type ProgressConfig struct {
	// 每往后一层楼，自动进度上限降低的百分点
	FloorPenalty *int `yaml:"floor_penalty"`
}

// SweepConfig 每日全量重算
type SweepConfig struct {
	Hour       int  `yaml:"hour"` // 本地时间 0-23
	RunOnStart bool `yaml:"run_on_start"`
}

// OutboxConfig 发件箱派发参数
type OutboxConfig struct {
	IntervalMS int `yaml:"interval_ms"`
	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`
}

// ConsumerConfig 重算请求消费者
type ConsumerConfig struct {
	Queue         string `yaml:"queue"`
	MaxRetries    int    `yaml:"max_retries"`
	DedupTTLHours int    `yaml:"dedup_ttl_hours"`
}

type Config struct {
	DB       config.DBConfig     `yaml:"db"`
	MQ       config.MQConfig     `yaml:"mq"`
	Redis    config.RedisConfig  `yaml:"redis"`
	JWT      config.JWTConfig    `yaml:"jwt"`
	Server   config.ServerConfig `yaml:"server"`
	Log      config.LogConfig    `yaml:"log"`
	OTel     config.OTelConfig   `yaml:"otel"`
	Progress ProgressConfig      `yaml:"progress"`
	Sweep    SweepConfig         `yaml:"sweep"`
	Outbox   OutboxConfig        `yaml:"outbox"`
	Consumer ConsumerConfig      `yaml:"consumer"`
}

// Load 读取 CONFIG_ENV / CONFIG_DIR 指定的配置
func Load() (*Config, error) {
	return LoadFrom(config.GetConfigEnv(), config.GetEnv("CONFIG_DIR", "config"))
}

// LoadFrom 合并 base.yaml、<env>.yaml、secrets.env，再用环境变量覆盖
func LoadFrom(env, dir string) (*Config, error) {
	cfgMap, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var cfg Config
	if err := config.Decode(cfgMap, &cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（优先级最高）
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideOTelFromEnv(&cfg.OTel)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Sweep.Hour < 0 || c.Sweep.Hour > 23 {
		return fmt.Errorf("sweep.hour must be between 0 and 23, got %d", c.Sweep.Hour)
	}
	if c.Progress.FloorPenalty != nil && (*c.Progress.FloorPenalty < 0 || *c.Progress.FloorPenalty > 100) {
		return fmt.Errorf("progress.floor_penalty must be between 0 and 100, got %d", *c.Progress.FloorPenalty)
	}
	return nil
}

// FloorPenalty 未配置时返回 -1，交给引擎使用默认值
func (c *Config) FloorPenalty() int {
	if c.Progress.FloorPenalty == nil {
		return -1
	}
	return *c.Progress.FloorPenalty
}

func (c *Config) OutboxInterval() time.Duration {
	return time.Duration(c.Outbox.IntervalMS) * time.Millisecond
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.TTLHours) * time.Hour
}

func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.Consumer.DedupTTLHours) * time.Hour
}
