package rss

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = 600 * time.Second
)

// Cache 以订阅源 URL 为键缓存解析结果。
// 容量满时按 LRU 淘汰，超过 TTL 的条目视为不存在。只在进程内有效。
type Cache struct {
	entries *lru.Cache[string, cachedFeed]
	ttl     time.Duration
	now     func() time.Time
}

type cachedFeed struct {
	posts     []Post
	expiresAt time.Time
}

// NewCache 创建缓存，参数不大于 0 时使用默认值。
func NewCache(maxEntries int, ttl time.Duration) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	entries, err := lru.New[string, cachedFeed](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("创建缓存失败: %w", err)
	}
	return &Cache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Get 返回未过期的缓存内容。
func (c *Cache) Get(url string) ([]Post, bool) {
	entry, ok := c.entries.Get(url)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.entries.Remove(url)
		return nil, false
	}
	return entry.posts, true
}

// Put 写入缓存。空结果不缓存，下次访问会重新抓取。
func (c *Cache) Put(url string, posts []Post) {
	if len(posts) == 0 {
		return
	}
	c.entries.Add(url, cachedFeed{
		posts:     posts,
		expiresAt: c.now().Add(c.ttl),
	})
}

// Len 返回缓存中的条目数（可能包含尚未清理的过期条目）。
func (c *Cache) Len() int {
	return c.entries.Len()
}
