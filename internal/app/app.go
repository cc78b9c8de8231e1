// Package app 串联一次完整运行：读取订阅源列表、抓取解析、渲染、发布。
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/gazette/internal/config"
	"github.com/iabetor/gazette/internal/digest"
	"github.com/iabetor/gazette/internal/logger"
	"github.com/iabetor/gazette/internal/pipeline"
	"github.com/iabetor/gazette/internal/publish"
	"github.com/iabetor/gazette/internal/rss"
)

// Window 摘要覆盖的时间窗口。
const Window = 24 * time.Hour

// App 持有一次运行所需的全部组件。缓存随 App 存活。
type App struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	renderer  *digest.Renderer
	publisher *publish.Publisher
}

// New 创建 App。store 为 nil 时只能 Build，不能 Run。
func New(cfg *config.Config, store publish.Store) (*App, error) {
	fetcher, err := rss.NewFetcher(rss.FetcherOptions{
		CAFile:    cfg.Fetch.CAFile,
		UserAgent: cfg.Fetch.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return NewWithFetcher(cfg, fetcher, store)
}

// NewWithFetcher 使用自定义抓取器创建 App。
func NewWithFetcher(cfg *config.Config, fetcher pipeline.Fetcher, store publish.Store) (*App, error) {
	cache, err := rss.NewCache(cfg.Cache.MaxEntries, cfg.CacheTTL())
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Render.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", cfg.Render.Timezone, err)
	}
	renderer, err := digest.NewRenderer(digest.Options{Title: cfg.Render.Title, Location: loc})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		pipeline: pipeline.New(fetcher, cache, pipeline.Options{MaxWorkers: cfg.Pipeline.MaxWorkers}),
		renderer: renderer,
	}
	if store != nil {
		a.publisher = publish.NewPublisher(store)
	}
	return a, nil
}

// Build 抓取最近 24 小时的文章并渲染为 HTML。
func (a *App) Build(ctx context.Context, now time.Time) (string, pipeline.Result, error) {
	urls, err := rss.LoadFeedList(a.cfg.FeedsFile)
	if err != nil {
		return "", pipeline.Result{}, err
	}

	cutoff := now.UTC().Add(-Window)
	res := a.pipeline.Run(ctx, urls, cutoff)

	html, err := a.renderer.Render(res.Posts, now)
	if err != nil {
		return "", res, err
	}
	return html, res, nil
}

// Run 构建摘要并发布到配置的路径。发布失败时返回错误，调用方应以非零状态退出。
func (a *App) Run(ctx context.Context, now time.Time) error {
	if a.publisher == nil {
		return fmt.Errorf("未配置发布目标")
	}

	runID := uuid.NewString()
	log := logger.With("run", runID)
	log.Infof("[app] 开始生成摘要 (feeds=%s, repo=%s)", a.cfg.FeedsFile, a.cfg.GitHub.Repository)

	html, res, err := a.Build(ctx, now)
	if err != nil {
		log.Errorf("[app] 生成摘要失败: %v", err)
		return err
	}
	log.Infof("[app] 摘要包含 %d 条文章，来自 %d 个订阅源", len(res.Posts), len(res.Feeds)-res.Failed())

	if err := a.publisher.Publish(ctx, a.cfg.GitHub.Path, []byte(html), now); err != nil {
		log.Errorf("[app] 更新 GitHub 仓库失败: %v", err)
		return err
	}
	log.Infof("[app] 网站已更新")
	return nil
}
