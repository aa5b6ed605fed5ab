package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getsentry/cli-sub002/internal/domain"
)

const fileName = ".sentry-detect.yaml"

// ProjectConfig is the optional per-project override file.
type ProjectConfig struct {
	// DSN pins the project's DSN explicitly (source "config").
	DSN string `yaml:"dsn"`
	// URL points at a self-hosted instance; its host replaces the SaaS
	// host-validation rule.
	URL         string   `yaml:"url"`
	MaxDepth    int      `yaml:"max_depth"`
	MaxFileSize int64    `yaml:"max_file_size"`
	CacheTTL    string   `yaml:"cache_ttl"`
	Ignore      []string `yaml:"ignore"`
}

// YAMLLoader reads .sentry-detect.yaml from a project directory.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads the config file from projectPath. A missing file yields the
// zero config.
func (l *YAMLLoader) Load(projectPath string) (ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(projectPath, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ProjectConfig{}, nil
		}
		return ProjectConfig{}, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	if cfg.CacheTTL != "" {
		if _, err := time.ParseDuration(cfg.CacheTTL); err != nil {
			return ProjectConfig{}, fmt.Errorf("invalid %s: cache_ttl: %w", fileName, err)
		}
	}
	if cfg.DSN != "" {
		if _, ok := domain.ParseDSN(cfg.DSN); !ok {
			return ProjectConfig{}, fmt.Errorf("invalid %s: dsn does not have the expected shape", fileName)
		}
	}
	return cfg, nil
}

// Apply overlays the file's explicit values on top of opts.
func (cfg ProjectConfig) Apply(opts domain.Options) domain.Options {
	if cfg.DSN != "" {
		opts.ConfigDSN = cfg.DSN
	}
	if cfg.URL != "" {
		if host := hostOf(cfg.URL); host != "" {
			opts.SelfHostedHost = host
		}
	}
	if cfg.MaxDepth > 0 {
		opts.MaxDepth = cfg.MaxDepth
	}
	if cfg.MaxFileSize > 0 {
		opts.MaxFileSize = cfg.MaxFileSize
	}
	if cfg.CacheTTL != "" {
		if ttl, err := time.ParseDuration(cfg.CacheTTL); err == nil {
			opts.CacheTTL = ttl
		}
	}
	opts.ExtraIgnoreDirs = append(opts.ExtraIgnoreDirs, cfg.Ignore...)
	return opts
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
