package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// 环境变量名。设置后总是覆盖配置文件中的值。
const (
	EnvFeedsFile  = "FEEDS_FILE"
	EnvToken      = "GITHUB_TOKEN"
	EnvRepository = "GITHUB_REPOSITORY"
)

// Config 是 gazette 的顶层配置结构。
type Config struct {
	FeedsFile string         `yaml:"feeds_file"`
	GitHub    GitHubConfig   `yaml:"github"`
	Fetch     FetchConfig    `yaml:"fetch"`
	Cache     CacheConfig    `yaml:"cache"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Render    RenderConfig   `yaml:"render"`
	Log       LogConfig      `yaml:"log"`
}

// GitHubConfig 发布目标仓库配置。
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Repository string `yaml:"repository"` // owner/name
	Branch     string `yaml:"branch"`     // 为空则使用仓库默认分支
	Path       string `yaml:"path"`
	// APIURL 用于 GitHub Enterprise，为空则使用 api.github.com。
	APIURL string `yaml:"api_url"`
}

// FetchConfig 抓取配置。超时固定为 10 秒，不在此处配置。
type FetchConfig struct {
	CAFile    string `yaml:"ca_file"`
	UserAgent string `yaml:"user_agent"`
}

// CacheConfig 解析结果缓存配置。
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	TTLSeconds int `yaml:"ttl_seconds"`
}

// PipelineConfig 并发配置。
type PipelineConfig struct {
	// MaxWorkers 解析 worker 上限，实际数量为 min(MaxWorkers, 订阅源数量)。
	MaxWorkers int `yaml:"max_workers"`
}

// RenderConfig 摘要页面配置。
type RenderConfig struct {
	Title    string `yaml:"title"`
	Timezone string `yaml:"timezone"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// CacheTTL 返回缓存 TTL。
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Owner 返回仓库所有者，Repository 格式错误时返回空串。
func (c *Config) Owner() string {
	owner, _, _ := splitRepository(c.GitHub.Repository)
	return owner
}

// RepoName 返回仓库名。
func (c *Config) RepoName() string {
	_, name, _ := splitRepository(c.GitHub.Repository)
	return name
}

// DefaultPath 返回 XDG 配置目录下的默认配置文件路径。
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "gazette", "config.yaml")
}

// Load 读取配置。
// path 为空时尝试 DefaultPath()，默认文件不存在则只使用环境变量和默认值。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.Expand(string(data), func(key string) string {
			return os.Getenv(key)
		})
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// 没有默认配置文件是正常情况，定时任务一般只靠环境变量
	default:
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	applyEnv(cfg)
	setDefaults(cfg)
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置。
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvFeedsFile); v != "" {
		cfg.FeedsFile = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv(EnvRepository); v != "" {
		cfg.GitHub.Repository = v
	}
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.FeedsFile == "" {
		cfg.FeedsFile = "rss_feeds.txt"
	}
	if cfg.GitHub.Path == "" {
		cfg.GitHub.Path = "index.html"
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Gazette/1.0 RSS Reader"
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 100
	}
	if cfg.Cache.TTLSeconds <= 0 {
		cfg.Cache.TTLSeconds = 600
	}
	if cfg.Pipeline.MaxWorkers <= 0 {
		cfg.Pipeline.MaxWorkers = 8
	}
	if cfg.Render.Title == "" {
		cfg.Render.Title = "Daily Gazette"
	}
	if cfg.Render.Timezone == "" {
		cfg.Render.Timezone = "UTC"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 环境变量展开后常带空白或换行
	cfg.GitHub.Token = strings.TrimSpace(cfg.GitHub.Token)
	cfg.GitHub.Repository = strings.TrimSpace(cfg.GitHub.Repository)
}

// Validate 检查发布所需的配置。缺失任一项都应在任何网络请求之前终止进程。
func (c *Config) Validate() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("缺少 GitHub token（请设置 %s）", EnvToken)
	}
	if c.GitHub.Repository == "" {
		return fmt.Errorf("缺少目标仓库（请设置 %s）", EnvRepository)
	}
	if _, _, ok := splitRepository(c.GitHub.Repository); !ok {
		return fmt.Errorf("仓库格式应为 owner/name: %q", c.GitHub.Repository)
	}
	if _, err := time.LoadLocation(c.Render.Timezone); err != nil {
		return fmt.Errorf("无效的时区 %q: %w", c.Render.Timezone, err)
	}
	return nil
}

func splitRepository(repo string) (owner, name string, ok bool) {
	owner, name, found := strings.Cut(repo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", false
	}
	return owner, name, true
}
