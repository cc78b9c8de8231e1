package rss

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/iabetor/gazette/internal/logger"
	"github.com/mmcdole/gofeed"
)

// ParseResult 一次解析的结果。
type ParseResult struct {
	Posts  []Post
	Source string
	Err    error
}

// Parse 解析 RSS/Atom/JSON Feed 原文，只保留发布时间严格晚于 cutoff 的条目。
// 空输入返回空结果；无法识别的内容记录日志并返回空结果，不会 panic。
func Parse(raw []byte, cutoff time.Time) ParseResult {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ParseResult{}
	}

	// gofeed.Parser 在解析过程中保存状态，每次调用单独创建
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		err = fmt.Errorf("解析订阅源失败: %w", err)
		logger.Errorf("[rss] %v", err)
		return ParseResult{Err: err}
	}

	return ParseResult{
		Posts:  convertItems(feed, cutoff),
		Source: sourceName(feed),
	}
}

// convertItems 将 gofeed 条目转换为 Post，丢弃没有时间或过期的条目。
func convertItems(feed *gofeed.Feed, cutoff time.Time) []Post {
	source := sourceName(feed)

	var posts []Post
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		published, ok := itemTime(item)
		if !ok {
			// 没有时间的条目无法按时间过滤，直接丢弃
			continue
		}
		if !published.After(cutoff) {
			continue
		}
		posts = append(posts, Post{
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			Published: published,
			Source:    source,
		})
	}
	return posts
}

// itemTime 依次取 published、updated 时间。
func itemTime(item *gofeed.Item) (time.Time, bool) {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC(), true
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC(), true
	default:
		return time.Time{}, false
	}
}

func sourceName(feed *gofeed.Feed) string {
	if title := strings.TrimSpace(feed.Title); title != "" {
		return title
	}
	return UnknownSource
}
