// Package rss 负责订阅源的抓取、解析和短期缓存。
package rss

import "time"

// UnknownSource 订阅源没有标题时使用的来源名。
const UnknownSource = "Unknown Source"

// Post 一条摘要文章。构造后不再修改。
type Post struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Published time.Time `json:"published"` // UTC
	Source    string    `json:"source"`
}

// PublishedISO 返回带时区偏移的 ISO-8601 时间串。
// 同为 UTC 时按字典序排序即按时间排序。
func (p Post) PublishedISO() string {
	return p.Published.UTC().Format(time.RFC3339)
}

// DisplayTitle 返回用于展示的标题，标题为空时退回链接。
func (p Post) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Link
}
