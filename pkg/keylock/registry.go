package keylock

import (
	"context"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// registry 是 Locker 的分片实现。
type registry[K comparable] struct {
	shards   []shard[K]
	mask     uint64
	seed     maphash.Seed
	opts     options
	metrics  *Metrics
	closed   atomic.Bool
	keyCount atomic.Int64
	done     chan struct{}
}

type shard[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// entry 表示一个 key 的锁条目。
// ch 是 size=1 的 channel，用作互斥量：
//   - 发送成功 = 获取锁
//   - 发送阻塞 = 锁被占用
//   - 接收 = 释放锁
type entry struct {
	ch chan struct{}
	// refcnt 跟踪引用此条目的 goroutine 数量（持有者 + 等待者 + 进行中的获取）。
	// 仅在所属分片的 mu 临界区内修改；归零时条目从 map 中删除，删除后不再复用。
	refcnt atomic.Int32
}

// lockHandle 实现 Handle 接口。
type lockHandle[K comparable] struct {
	r     *registry[K]
	key   K
	entry *entry
	done  atomic.Bool
}

func newRegistry[K comparable](opts options) (*registry[K], error) {
	m, err := NewMetrics(opts.meterProvider)
	if err != nil {
		return nil, err
	}
	shards := make([]shard[K], opts.shardCount)
	for i := range shards {
		shards[i].entries = make(map[K]*entry)
	}
	return &registry[K]{
		shards:  shards,
		mask:    opts.shardMask,
		seed:    maphash.MakeSeed(),
		opts:    opts,
		metrics: m,
		done:    make(chan struct{}),
	}, nil
}

func (r *registry[K]) shardFor(key K) *shard[K] {
	var h uint64
	switch k := any(key).(type) {
	case string:
		h = xxhash.Sum64String(k)
	default:
		h = maphash.Comparable(r.seed, key)
	}
	return &r.shards[h&r.mask]
}

// getOrCreate 获取或创建 entry，并增加引用计数。
// 查找、创建与计数递增在同一分片临界区内完成，同一 key 的并发首次获取
// 必然汇聚到同一条目。
func (r *registry[K]) getOrCreate(key K) (*entry, error) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.closed.Load() {
		return nil, ErrClosed
	}

	e, ok := s.entries[key]
	if !ok {
		if r.opts.maxKeys > 0 {
			// 使用 CAS 严格限制 key 数量，避免跨分片并发突破上限。
			for {
				cur := r.keyCount.Load()
				if cur >= int64(r.opts.maxKeys) {
					return nil, ErrMaxKeysExceeded
				}
				if r.keyCount.CompareAndSwap(cur, cur+1) {
					break
				}
			}
		} else {
			r.keyCount.Add(1)
		}
		e = &entry{ch: make(chan struct{}, 1)}
		s.entries[key] = e
		r.metrics.RecordEntries(1)
	}
	e.refcnt.Add(1)
	return e, nil
}

// releaseRef 减少引用计数，归零时从 map 删除。
// 归零判定与删除在同一分片临界区内完成：此刻没有持有者、等待者或进行中的
// 获取引用该条目，新的获取者只能在临界区外创建全新条目。
func (r *registry[K]) releaseRef(key K, e *entry) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.refcnt.Add(-1) == 0 {
		delete(s.entries, key)
		r.keyCount.Add(-1)
		r.metrics.RecordEntries(-1)
	}
}

func (r *registry[K]) Acquire(ctx context.Context, key K) (Handle[K], error) {
	if ctx == nil {
		panic("keylock: nil Context")
	}
	start := time.Now()
	// 快速检查：ctx 已取消时避免进入 getOrCreate 造成不必要的锁竞争。
	if err := ctx.Err(); err != nil {
		r.metrics.RecordAcquire(ctx, false, reasonCancelled, time.Since(start))
		return nil, err
	}
	if r.closed.Load() {
		r.metrics.RecordAcquire(ctx, false, reasonClosed, time.Since(start))
		return nil, ErrClosed
	}
	e, err := r.getOrCreate(key)
	if err != nil {
		r.metrics.RecordAcquire(ctx, false, failReason(err), time.Since(start))
		return nil, err
	}

	h, err := r.await(ctx, key, e)
	if err != nil {
		r.metrics.RecordAcquire(ctx, false, failReason(err), time.Since(start))
		return nil, err
	}
	r.metrics.RecordAcquire(ctx, true, "", time.Since(start))
	return h, nil
}

// await 在 e 上等待授予，直到 ctx 取消或 Locker 关闭。
// 调用方必须已通过 getOrCreate 持有 e 的引用；失败路径在此撤销该引用。
func (r *registry[K]) await(ctx context.Context, key K, e *entry) (Handle[K], error) {
	select {
	case e.ch <- struct{}{}: // 获取成功
		return &lockHandle[K]{r: r, key: key, entry: e}, nil
	case <-ctx.Done(): // 超时或取消
		// 授予优先：取消与授予同时就绪时做最后一次非阻塞尝试，
		// 保证平局有确定结果且不会留下一个无人认领的授予。
		select {
		case e.ch <- struct{}{}:
			return &lockHandle[K]{r: r, key: key, entry: e}, nil
		default:
			r.releaseRef(key, e)
			return nil, ctx.Err()
		}
	case <-r.done: // Locker 已关闭
		r.releaseRef(key, e)
		return nil, ErrClosed
	}
}

func (r *registry[K]) TryAcquire(key K) (Handle[K], error) {
	start := time.Now()
	if r.closed.Load() {
		return nil, ErrClosed
	}
	e, err := r.getOrCreate(key)
	if err != nil {
		return nil, err
	}
	select {
	case e.ch <- struct{}{}: // 获取成功
		r.metrics.RecordAcquire(context.Background(), true, "", time.Since(start))
		return &lockHandle[K]{r: r, key: key, entry: e}, nil
	default: // 锁被占用
		r.releaseRef(key, e)
		r.metrics.RecordAcquire(context.Background(), false, reasonOccupied, time.Since(start))
		return nil, nil
	}
}

func (r *registry[K]) IsLocked(key K) bool {
	s := r.shardFor(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	return ok && len(e.ch) == 1
}

func (r *registry[K]) Len() int {
	return int(max(r.keyCount.Load(), 0))
}

func (r *registry[K]) Keys() []K {
	keys := make([]K, 0, max(r.keyCount.Load(), 0))
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for k := range s.entries {
			keys = append(keys, k)
		}
		s.mu.Unlock()
	}
	return keys
}

func (r *registry[K]) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(r.done)
	return nil
}

// lockHandle 方法

func (h *lockHandle[K]) Unlock() error {
	if !h.done.CompareAndSwap(false, true) {
		return ErrNotHeld
	}
	<-h.entry.ch
	h.r.releaseRef(h.key, h.entry)
	h.r.metrics.RecordRelease(context.Background())
	return nil
}

func (h *lockHandle[K]) Key() K {
	return h.key
}

// 编译期接口检查。
var (
	_ Locker[string] = (*registry[string])(nil)
	_ Handle[string] = (*lockHandle[string])(nil)
)
