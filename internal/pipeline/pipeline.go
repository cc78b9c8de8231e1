// Package pipeline 并发抓取所有订阅源，在有界 worker pool 上解析，汇总为一个文章列表。
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/iabetor/gazette/internal/logger"
	"github.com/iabetor/gazette/internal/rss"
)

// DefaultMaxWorkers 解析 worker 数量上限。
const DefaultMaxWorkers = 8

// Fetcher 抓取订阅源原文。*rss.Fetcher 实现了该接口。
type Fetcher interface {
	Fetch(ctx context.Context, url string) rss.FetchResult
}

// ParseFunc 解析原文，默认为 rss.Parse。
type ParseFunc func(raw []byte, cutoff time.Time) rss.ParseResult

// Options 流水线选项。
type Options struct {
	MaxWorkers int
	Parse      ParseFunc
}

// FeedReport 单个订阅源的处理情况。
type FeedReport struct {
	URL    string
	Posts  int
	Cached bool
	Err    error
}

// Result 一次运行的汇总。Posts 顺序不作保证。
type Result struct {
	Posts   []rss.Post
	Feeds   []FeedReport
	Elapsed time.Duration
}

// Failed 返回失败的订阅源数量。
func (r Result) Failed() int {
	n := 0
	for _, f := range r.Feeds {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Pipeline 抓取 → 解析 → 缓存 的编排器。缓存由调用方持有并传入。
type Pipeline struct {
	fetcher    Fetcher
	cache      *rss.Cache
	parse      ParseFunc
	maxWorkers int
}

// New 创建流水线。cache 为 nil 时不缓存。
func New(fetcher Fetcher, cache *rss.Cache, opts Options) *Pipeline {
	p := &Pipeline{
		fetcher:    fetcher,
		cache:      cache,
		parse:      opts.Parse,
		maxWorkers: opts.MaxWorkers,
	}
	if p.parse == nil {
		p.parse = rss.Parse
	}
	if p.maxWorkers <= 0 {
		p.maxWorkers = DefaultMaxWorkers
	}
	return p
}

// Run 处理所有 urls，等全部完成后才返回。单个订阅源失败只会让它的贡献为空。
func (p *Pipeline) Run(ctx context.Context, urls []string, cutoff time.Time) Result {
	start := time.Now()
	if len(urls) == 0 {
		logger.Infof("[pipeline] 没有订阅源")
		return Result{}
	}

	workers := min(p.maxWorkers, len(urls))
	pool := NewPool(workers)
	defer pool.Close()

	logger.Infof("[pipeline] 开始抓取 %d 个订阅源（解析 worker: %d）", len(urls), workers)

	posts := make([][]rss.Post, len(urls))
	reports := make([]FeedReport, len(urls))

	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("[pipeline] 处理 %s 时 panic: %v\n%s", url, r, debug.Stack())
					posts[i] = nil
					reports[i] = FeedReport{URL: url, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			posts[i], reports[i] = p.processFeed(ctx, pool, url, cutoff)
		}(i, url)
	}
	wg.Wait()

	var all []rss.Post
	for _, ps := range posts {
		all = append(all, ps...)
	}

	res := Result{Posts: all, Feeds: reports, Elapsed: time.Since(start)}
	for _, r := range reports {
		logger.Debugf("[pipeline] %s: %d 条 (cached=%v, err=%v)", r.URL, r.Posts, r.Cached, r.Err)
	}
	logger.Infof("[pipeline] 共获取 %d 条文章，耗时 %.2f 秒（失败 %d 个订阅源）",
		len(all), res.Elapsed.Seconds(), res.Failed())
	return res
}

// processFeed 处理单个订阅源：查缓存，未命中则抓取并在 pool 上解析，非空结果写回缓存。
func (p *Pipeline) processFeed(ctx context.Context, pool *Pool, url string, cutoff time.Time) ([]rss.Post, FeedReport) {
	report := FeedReport{URL: url}

	if p.cache != nil {
		if cached, ok := p.cache.Get(url); ok {
			report.Posts = len(cached)
			report.Cached = true
			return cached, report
		}
	}

	fetched := p.fetcher.Fetch(ctx, url)
	if !fetched.OK() {
		report.Err = fetched.Err
		return nil, report
	}

	parsed := <-Submit(ctx, pool, func() rss.ParseResult {
		return p.parse(fetched.Body, cutoff)
	})
	if parsed.Err != nil {
		report.Err = parsed.Err
		return nil, report
	}

	if p.cache != nil {
		p.cache.Put(url, parsed.Posts)
	}
	report.Posts = len(parsed.Posts)
	return parsed.Posts, report
}
