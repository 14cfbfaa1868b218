package keylock

import (
	"context"
	"io"
)

// Handle 表示一次成功的锁获取。
// Unlock 是幂等的：第一次调用释放锁并返回 nil，后续调用返回 [ErrNotHeld]。
type Handle[K comparable] interface {
	// Unlock 释放锁，唤醒一个等待者（如有）。
	// 幂等：第一次调用返回 nil，后续调用返回 [ErrNotHeld]。
	// 多个 goroutine 并发调用同一 Handle 的 Unlock 是安全的，实际释放恰好一次。
	Unlock() error

	// Key 返回锁的 key。
	// 即使在 Unlock 之后调用，Key 仍返回原始 key 值。
	Key() K
}

// Locker 提供基于 key 的进程内互斥锁。
// 所有方法都是并发安全的。
type Locker[K comparable] interface {
	io.Closer

	// Acquire 获取 key 对应的锁，锁被占用时挂起等待。
	// 传入不带 deadline 的 context（如 context.Background()）即为无限期阻塞式获取，
	// 此时在未关闭的 Locker 上不会失败。
	//
	// ctx 超时或取消时返回 [context.DeadlineExceeded] 或 [context.Canceled]，
	// 并完全撤销本次获取的引用登记——取消的获取不留任何痕迹。
	// 取消与授予同时发生时授予优先，详见包文档。
	// Locker 已关闭时返回 [ErrClosed]。ctx 不得为 nil，否则 panic。
	Acquire(ctx context.Context, key K) (Handle[K], error)

	// TryAcquire 非阻塞获取锁。
	// 锁被占用时返回 (nil, nil)。
	// Locker 已关闭时返回 (nil, [ErrClosed])。
	TryAcquire(key K) (Handle[K], error)

	// IsLocked 返回 key 当前是否被持有。
	// 这是并发下的瞬时快照：false 仅表示"此刻未被持有"，不与并发的
	// Acquire/Unlock 线性化，不能据此推断 key 从未被锁过。
	IsLocked(key K) bool

	// Len 返回当前活跃的 key 数量（单次原子读取，瞬时快照）。
	// 比 Keys() 更高效，适用于监控和指标采集。
	// Close 后仍可安全调用，返回值随已持有 Handle 的释放逐渐归零。
	Len() int

	// Keys 返回当前活跃条目的 key 列表（包含持有者和等待者），仅用于调试。
	// 返回值是快照，不保证跨分片原子性。
	Keys() []K
}

// New 创建一个新的 Locker 实例。
// 配置无效时返回错误（如分片数不是 2 的幂）。
func New[K comparable](opts ...Option) (Locker[K], error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return newRegistry[K](o)
}
