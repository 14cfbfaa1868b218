package keylock_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jchristn/padlock/pkg/keylock"
)

func ExampleNew() {
	kl, err := keylock.New[string]()
	if err != nil {
		panic(err)
	}

	handle, err := kl.Acquire(context.Background(), "resource:123")
	if err != nil {
		panic(err)
	}

	fmt.Println("lock acquired for:", handle.Key())

	if err := handle.Unlock(); err != nil {
		panic(err)
	}
	if err := kl.Close(); err != nil {
		panic(err)
	}
	// Output:
	// lock acquired for: resource:123
}

func ExampleLocker_TryAcquire() {
	kl, err := keylock.New[string]()
	if err != nil {
		panic(err)
	}

	// First acquire
	h1, err := kl.TryAcquire("resource:123")
	if err != nil {
		panic(err)
	}

	// Second acquire — lock is occupied
	h2, err := kl.TryAcquire("resource:123")
	if err != nil {
		panic(err)
	}
	fmt.Println("first acquired:", h1 != nil)
	fmt.Println("second acquired:", h2 != nil)

	if err := h1.Unlock(); err != nil {
		panic(err)
	}
	if err := kl.Close(); err != nil {
		panic(err)
	}
	// Output:
	// first acquired: true
	// second acquired: false
}

func ExampleLocker_Acquire_deadline() {
	kl, err := keylock.New[string]()
	if err != nil {
		panic(err)
	}

	holder, err := kl.Acquire(context.Background(), "resource:123")
	if err != nil {
		panic(err)
	}

	// 锁被占用，带 deadline 的获取在超时后失败，不留任何释放义务
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = kl.Acquire(ctx, "resource:123")
	fmt.Println("timed out:", errors.Is(err, context.DeadlineExceeded))

	if err := holder.Unlock(); err != nil {
		panic(err)
	}
	if err := kl.Close(); err != nil {
		panic(err)
	}
	// Output:
	// timed out: true
}

// 复合结构体 key：结构相等的两个实例串行，不相等的并行。
func ExampleNew_compositeKeys() {
	type orderKey struct {
		Tenant string
		Order  int
	}

	kl, err := keylock.New[orderKey]()
	if err != nil {
		panic(err)
	}

	h, err := kl.Acquire(context.Background(), orderKey{Tenant: "t1", Order: 42})
	if err != nil {
		panic(err)
	}

	same, _ := kl.TryAcquire(orderKey{Tenant: "t1", Order: 42})
	other, _ := kl.TryAcquire(orderKey{Tenant: "t1", Order: 43})

	fmt.Println("equal key acquired:", same != nil)
	fmt.Println("different key acquired:", other != nil)

	if err := other.Unlock(); err != nil {
		panic(err)
	}
	if err := h.Unlock(); err != nil {
		panic(err)
	}
	if err := kl.Close(); err != nil {
		panic(err)
	}
	// Output:
	// equal key acquired: false
	// different key acquired: true
}
