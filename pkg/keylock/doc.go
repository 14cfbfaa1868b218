// Package keylock 提供基于任意可比较 key 的进程内互斥锁注册表。
//
// 不同 key 互不阻塞，相同 key 串行执行。适用于按业务 key 进行互斥的场景，
// 如按资源 ID 串行更新、按订单号互斥处理等，是单一全局锁的细粒度替代方案。
//
// # 特性
//
//   - 泛型 key：任意 comparable 类型（string、整数、UUID、复合结构体）均可作为 key
//   - Context 支持：Acquire 支持超时和取消（ctx 不得为 nil，否则 panic）
//   - TryAcquire：非阻塞获取，锁被占用时返回 (nil, nil)
//   - Handle 语义：Unlock 幂等（首次返回 nil，后续返回 [ErrNotHeld]）
//   - 自动回收：无持有者且无等待者的条目随释放立即从注册表删除
//   - 分片 map：默认 32 分片，减少管理锁争用
//   - 内存安全：WithMaxKeys(n) 可限制最大 key 数
//   - 可观测：WithMeterProvider 启用 OpenTelemetry 指标
//   - 关闭语义：Close() 拒绝新请求并唤醒所有等待中的 Acquire，已持有锁不受影响
//
// # 快速开始
//
//	kl, err := keylock.New[string]()
//	if err != nil {
//	    return err
//	}
//	defer kl.Close()
//
//	handle, err := kl.Acquire(ctx, "order:42")
//	if err != nil {
//	    return err // 取消/超时；未持有任何锁
//	}
//	defer handle.Unlock()
//
//	// 临界区：同一 key 的其他获取者在此期间被阻塞...
//
// # 取消与授予的竞态
//
// 当 ctx 取消与锁授予几乎同时发生时，授予优先（grant wins）：Acquire 在放弃前
// 会做最后一次非阻塞尝试，若此刻锁恰好可用则返回成功而非取消错误。调用方只需
// 遵守统一契约：Acquire 返回非 nil 错误时未持有任何锁，无需 Unlock。
//
// # 条目回收
//
// 每个 key 的条目带引用计数（持有者 + 等待者 + 进行中的获取）。计数归零时
// 条目在同一管理临界区内从 map 删除，删除后的条目不会被复用——后续获取会
// 创建全新条目。回收仅是内存优化，互斥正确性不依赖它。
//
// # 设计决策
//
// 锁是非可重入的（non-reentrant），与 sync.Mutex 一致。同一 goroutine 对同一
// key 重复 Acquire 会死锁，由调用方负责避免，建议使用带 deadline 的 context
// 防止因编程错误导致的永久阻塞。等待者的唤醒顺序由 runtime 决定（近似 FIFO
// 但不保证），调用方不应依赖公平性。
package keylock
