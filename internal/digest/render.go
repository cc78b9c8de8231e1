// Package digest 把文章列表渲染为按来源分组的单页 HTML。
package digest

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/iabetor/gazette/internal/rss"
)

const (
	// NoPostsMessage 没有文章时显示的文案。
	NoPostsMessage = "No new posts in the last 24 hours."

	defaultTitle = "Daily Gazette"
	dateLayout   = "January 02, 2006"
	timeLayout   = "03:04 PM"
)

//go:embed digest.html.tmpl
var digestTemplate string

// Options 渲染选项。
type Options struct {
	Title    string
	Location *time.Location // 文章时间的显示时区，默认 UTC
}

// Renderer 摘要渲染器，可并发使用。
type Renderer struct {
	tmpl     *template.Template
	title    string
	location *time.Location
}

type pageData struct {
	Title  string
	Date   string
	Empty  string
	Groups []group
}

type group struct {
	Source string
	Posts  []postView
}

type postView struct {
	Title string
	Link  string // html/template 会过滤 javascript: 等不安全链接
	ISO   string
	Time  string
}

// NewRenderer 解析内嵌模板并创建渲染器。
func NewRenderer(opts Options) (*Renderer, error) {
	tmpl, err := template.New("digest").Parse(digestTemplate)
	if err != nil {
		return nil, fmt.Errorf("解析摘要模板失败: %w", err)
	}

	r := &Renderer{tmpl: tmpl, title: opts.Title, location: opts.Location}
	if r.title == "" {
		r.title = defaultTitle
	}
	if r.location == nil {
		r.location = time.UTC
	}
	return r, nil
}

// Render 渲染完整的 HTML 文档。now 用于页面标题中的日期。
func (r *Renderer) Render(posts []rss.Post, now time.Time) (string, error) {
	data := pageData{
		Title:  r.title,
		Date:   now.In(r.location).Format(dateLayout),
		Empty:  NoPostsMessage,
		Groups: r.groupBySource(posts),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("渲染摘要失败: %w", err)
	}
	return buf.String(), nil
}

// groupBySource 先按发布时间倒序排序，再按来源分组，来源按字典序升序。
func (r *Renderer) groupBySource(posts []rss.Post) []group {
	if len(posts) == 0 {
		return nil
	}

	sorted := make([]rss.Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})

	bySource := make(map[string][]postView)
	for _, p := range sorted {
		bySource[p.Source] = append(bySource[p.Source], r.view(p))
	}

	sources := make([]string, 0, len(bySource))
	for s := range bySource {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	groups := make([]group, 0, len(sources))
	for _, s := range sources {
		groups = append(groups, group{Source: s, Posts: bySource[s]})
	}
	return groups
}

func (r *Renderer) view(p rss.Post) postView {
	return postView{
		Title: p.DisplayTitle(),
		Link:  p.Link,
		ISO:   p.PublishedISO(),
		Time:  p.Published.In(r.location).Format(timeLayout),
	}
}
