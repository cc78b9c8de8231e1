package pipeline

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/iabetor/gazette/internal/logger"
)

// Pool 固定数量的 worker，用于执行 CPU 密集的解析任务，
// 避免大量抓取 goroutine 同时解析。
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewPool 启动 workers 个 worker，workers < 1 时按 1 处理。
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{tasks: make(chan func())}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Close 停止接收任务并等待所有 worker 退出。Close 之后不能再 Submit。
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

// Submit 把 fn 交给 pool 执行，返回只会收到一个值的 channel。
// ctx 在任务被接收前取消时，channel 立即收到零值。
// fn 内部 panic 会被恢复并记录，channel 同样收到零值。
func Submit[T any](ctx context.Context, p *Pool, fn func() T) <-chan T {
	out := make(chan T, 1)
	task := func() {
		var result T
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[pipeline] 任务 panic: %v\n%s", r, debug.Stack())
			}
			out <- result
		}()
		result = fn()
	}

	select {
	case p.tasks <- task:
	case <-ctx.Done():
		var zero T
		out <- zero
	}
	return out
}
