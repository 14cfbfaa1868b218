package keylock

import (
	"context"
	"testing"
)

func FuzzAcquireUnlock(f *testing.F) {
	f.Add("key1")
	f.Add("")
	f.Add("very-long-key-name-that-might-cause-issues-with-hashing")
	f.Add("key/with/slashes")
	f.Add("key with spaces")
	f.Add("中文key")

	f.Fuzz(func(t *testing.T, key string) {
		kl, err := New[string]()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer kl.Close()

		// 注册表不检查 key 的内容：任何 string（包括空串）都是合法 key
		h, err := kl.Acquire(context.Background(), key)
		if err != nil {
			t.Fatalf("Acquire failed for key %q: %v", key, err)
		}
		if h.Key() != key {
			t.Fatalf("Key mismatch: got %q, want %q", h.Key(), key)
		}
		if !kl.IsLocked(key) {
			t.Fatalf("IsLocked(%q) = false while held", key)
		}
		if err := h.Unlock(); err != nil {
			t.Fatalf("Unlock failed for key %q: %v", key, err)
		}
		if kl.Len() != 0 {
			t.Fatalf("entry for key %q not reclaimed, Len() = %d", key, kl.Len())
		}
	})
}

func FuzzTryAcquireUnlock(f *testing.F) {
	f.Add("key1")
	f.Add("")
	f.Add("a/b/c")
	f.Add("中文key")

	f.Fuzz(func(t *testing.T, key string) {
		kl, err := New[string]()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer kl.Close()

		h, err := kl.TryAcquire(key)
		if err != nil {
			t.Fatalf("TryAcquire failed for key %q: %v", key, err)
		}
		if h == nil {
			t.Fatalf("TryAcquire returned nil handle for uncontended key %q", key)
		}
		if h.Key() != key {
			t.Fatalf("Key mismatch: got %q, want %q", h.Key(), key)
		}

		// 再次 TryAcquire 同一 key 应返回 (nil, nil)（锁被占用）
		h2, err := kl.TryAcquire(key)
		if err != nil {
			t.Fatalf("second TryAcquire for held key %q: %v", key, err)
		}
		if h2 != nil {
			t.Fatalf("second TryAcquire for held key %q succeeded", key)
		}

		if err := h.Unlock(); err != nil {
			t.Fatalf("Unlock failed for key %q: %v", key, err)
		}
	})
}
