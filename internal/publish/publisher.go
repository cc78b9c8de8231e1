// Package publish 把渲染好的摘要写入远端仓库：存在则更新，不存在则创建。
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iabetor/gazette/internal/logger"
)

// ErrNotFound 目标文件不存在。首次发布时属于正常分支。
var ErrNotFound = errors.New("文件不存在")

const commitTimeLayout = "2006-01-02 15:04:05"

// File 远端文件的元数据。
type File struct {
	Path string
	SHA  string // 更新时作为乐观并发的前置条件
}

// Store 按路径读写文件的远端存储。
type Store interface {
	// Get 返回文件信息，不存在时返回 ErrNotFound。
	Get(ctx context.Context, path string) (*File, error)
	Create(ctx context.Context, path string, content []byte, message string) error
	Update(ctx context.Context, path string, content []byte, message, sha string) error
}

// Publisher 对 Store 执行 upsert。
type Publisher struct {
	store Store
}

// NewPublisher 创建发布器。
func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Publish 写入 content。除首次发布的 ErrNotFound 外，任何错误都直接返回给调用方。
func (p *Publisher) Publish(ctx context.Context, path string, content []byte, now time.Time) error {
	stamp := now.Format(commitTimeLayout)

	existing, err := p.store.Get(ctx, path)
	switch {
	case err == nil:
		msg := "Update news digest - " + stamp
		if err := p.store.Update(ctx, existing.Path, content, msg, existing.SHA); err != nil {
			return fmt.Errorf("更新 %s 失败: %w", existing.Path, err)
		}
		logger.Infof("[publish] 已更新 %s", existing.Path)
		return nil
	case errors.Is(err, ErrNotFound):
		msg := "Create news digest - " + stamp
		if err := p.store.Create(ctx, path, content, msg); err != nil {
			return fmt.Errorf("创建 %s 失败: %w", path, err)
		}
		logger.Infof("[publish] 已创建 %s", path)
		return nil
	default:
		return fmt.Errorf("读取 %s 失败: %w", path, err)
	}
}
