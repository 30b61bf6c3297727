// Package pool 基于 ants 提供命名协程池。后台任务（缓存回写）与
// 健康检查探测共用这里的全局池，避免在请求路径上无限制地创建
// goroutine。
package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("池已关闭")
	// ErrPoolNotFound 池不存在
	ErrPoolNotFound = errors.New("池不存在")
	// ErrPoolAlreadyExists 池已存在
	ErrPoolAlreadyExists = errors.New("池已存在")
	// ErrManagerNotInitialized 管理器未初始化
	ErrManagerNotInitialized = errors.New("池管理器未初始化")
	// ErrPoolOverload 池已满
	ErrPoolOverload = errors.New("池已满")
)

// Type 预定义池类型。
type Type string

const (
	// HealthCheckPool 健康检查探测池
	HealthCheckPool Type = "health-check"
	// BackgroundPool 后台任务池（缓存回写等）
	BackgroundPool Type = "background"
)

// Config 单个池的配置。
type Config struct {
	// Capacity 最大并发 worker 数，0 表示无限制（不推荐）。
	Capacity int
	// ExpiryDuration 空闲 worker 的回收周期。
	ExpiryDuration time.Duration
	// PreAlloc 预分配 worker 队列内存。
	PreAlloc bool
	// Nonblocking 为 true 时池满直接拒绝而不是阻塞等待。
	Nonblocking bool
	// MaxBlockingTasks 阻塞模式下的最大排队任务数，0 表示无限制。
	MaxBlockingTasks int
	// PanicHandler 自定义 panic 处理，缺省记录错误日志。
	PanicHandler func(interface{})
}

// DefaultPoolConfig 返回通用池配置，NewPool 在 config 为 nil 时使用。
func DefaultPoolConfig() *Config {
	return &Config{
		Capacity:       1000,
		ExpiryDuration: 10 * time.Second,
	}
}

// HealthCheckPoolConfig 返回健康检查池配置。探测任务短小且突发，
// 池满时直接拒绝并由调用方降级。
func HealthCheckPoolConfig() *Config {
	return &Config{
		Capacity:         100,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		Nonblocking:      true,
		MaxBlockingTasks: 10,
	}
}

// BackgroundPoolConfig 返回后台任务池配置。缓存回写允许少量排队，
// 超出后拒绝，由调用方决定是否降级执行。
func BackgroundPoolConfig() *Config {
	return &Config{
		Capacity:         50,
		ExpiryDuration:   60 * time.Second,
		Nonblocking:      true,
		MaxBlockingTasks: 100,
	}
}

// Pool 包装一个带统计的 ants 池。
type Pool struct {
	name     string
	pool     *ants.Pool
	config   *Config
	stats    counters
	closed   atomic.Bool
	closedMu sync.Mutex
}

// counters 任务计数，全部原子更新。
type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

// Info 单个池的运行快照。
type Info struct {
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Running   int    `json:"running"`
	Free      int    `json:"free"`
	Waiting   int    `json:"waiting"`
	Submitted int64  `json:"submitted"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Rejected  int64  `json:"rejected"`
	Panics    int64  `json:"panics"`
}

// NewPool 创建命名池，config 为 nil 时使用 DefaultPoolConfig。
func NewPool(name string, config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	opts := []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
	}
	handler := config.PanicHandler
	if handler == nil {
		handler = func(r interface{}) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", r)
		}
	}
	opts = append(opts, ants.WithPanicHandler(handler))

	inner, err := ants.NewPool(config.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 ants 池失败: %w", err)
	}

	logger.Infow("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
		"nonblocking", config.Nonblocking,
	)

	return &Pool{name: name, pool: inner, config: config}, nil
}

// Name 返回池名称。
func (p *Pool) Name() string {
	return p.name
}

// Cap 返回池容量。
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Submit 提交任务。池满且处于非阻塞模式时返回 ErrPoolOverload，
// 任务内的 panic 计入统计后重新抛出，交给 ants 的 PanicHandler。
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.stats.panics.Add(1)
				p.stats.failed.Add(1)
				panic(r)
			}
			p.stats.completed.Add(1)
		}()
		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.rejected.Add(1)
			return ErrPoolOverload
		}
		return err
	}

	p.stats.submitted.Add(1)
	return nil
}

// Info 返回池的运行快照。
func (p *Pool) Info() Info {
	return Info{
		Name:      p.name,
		Capacity:  p.pool.Cap(),
		Running:   p.pool.Running(),
		Free:      p.pool.Free(),
		Waiting:   p.pool.Waiting(),
		Submitted: p.stats.submitted.Load(),
		Completed: p.stats.completed.Load(),
		Failed:    p.stats.failed.Load(),
		Rejected:  p.stats.rejected.Load(),
		Panics:    p.stats.panics.Load(),
	}
}

// Release 立即关闭池。
func (p *Pool) Release() {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return
	}

	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout 关闭池并等待在途任务完成，直到超时。
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()

	if p.closed.Load() {
		return nil
	}

	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}
