package keylock

import "errors"

var (
	// ErrNotHeld 表示锁已被释放。
	// Unlock 第二次及后续调用时返回此错误。
	ErrNotHeld = errors.New("keylock: lock not held")

	// ErrClosed 表示 Locker 已关闭。
	// Close 后调用 Acquire/TryAcquire 返回此错误。
	ErrClosed = errors.New("keylock: closed")

	// ErrMaxKeysExceeded 表示已达到最大 key 数量限制。
	ErrMaxKeysExceeded = errors.New("keylock: max keys exceeded")

	// ErrInvalidShardCount 表示分片数配置无效。
	// 分片数必须为 2 的幂且不超过 65536。
	ErrInvalidShardCount = errors.New("keylock: invalid shard count")
)
