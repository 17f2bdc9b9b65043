package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	payload := bytes.Repeat([]byte("NaN,"), 512)
	if err := c.Set(ctx, "grid:1", payload, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, hit, err := c.Get(ctx, "grid:1")
	if err != nil || !hit {
		t.Fatalf("Get = hit %v, err %v", hit, err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("Get returned different payload")
	}

	// stored compressed
	info, err := os.Stat(c.path("grid:1"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() >= int64(len(payload)) {
		t.Errorf("entry size %d not smaller than payload %d", info.Size(), len(payload))
	}

	if err := c.Delete(ctx, "grid:1"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "grid:1"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "grid:1"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !errors.Is(err, os.ErrNotExist) {
		t.Error("expired entry should be removed")
	}

	// a clock far in the future still sees a zero-ttl entry
	c.now = func() time.Time { return time.Now().Add(100 * 365 * 24 * time.Hour) }
	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl should never expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tests := []struct {
		name    string
		content string
	}{
		{"short", "LSC"},
		{"bad magic", "JSON\x00\x00\x00\x00\x00\x00\x00\x00abc"},
		{"bad snappy", "LSC1\x00\x00\x00\x00\x00\x00\x00\x00\xff\xff\xff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(c.path("k"), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
				t.Errorf("corrupt entry: hit %v, err %v", hit, err)
			}
		})
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get after Clear should miss")
	}
}

func TestFileCachePruneAndUsage(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	start := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return start }

	for key, ttl := range map[string]time.Duration{"forever": 0, "hour": time.Hour, "minute": time.Minute} {
		if err := c.Set(ctx, key, []byte(key), ttl); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	junk := filepath.Join(c.Dir(), "zz", "junk"+entryExt)
	if err := os.MkdirAll(filepath.Dir(junk), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(junk, []byte("xx"), 0o644); err != nil {
		t.Fatal(err)
	}

	c.now = func() time.Time { return start.Add(10 * time.Minute) }
	u, err := c.Usage()
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.Entries != 4 || u.Expired != 2 || u.Bytes == 0 {
		t.Errorf("Usage = %+v, want 4 entries, 2 expired", u)
	}

	n, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("Prune removed %d entries, want 2", n)
	}
	for _, key := range []string{"forever", "hour"} {
		if _, hit, _ := c.Get(ctx, key); !hit {
			t.Errorf("Get(%s) after Prune should hit", key)
		}
	}
}

func TestFileCacheDecode(t *testing.T) {
	c, _ := NewFileCache(t.TempDir())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set(context.Background(), "k", []byte("sigma"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, err := os.ReadFile(c.path("k"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, entryMagic) {
		t.Fatalf("entry starts with %q", raw[:4])
	}

	payload, expired, err := c.decode(raw)
	if err != nil || expired || string(payload) != "sigma" {
		t.Errorf("decode() = %q, %v, %v", payload, expired, err)
	}

	now = now.Add(2 * time.Minute)
	if _, expired, _ := c.decode(raw); !expired {
		t.Error("entry should expire after its ttl")
	}

	if _, _, err := c.decode([]byte("LSC1")); !errors.Is(err, ErrCorrupt) {
		t.Errorf("decode(short) = %v, want ErrCorrupt", err)
	}
}

func TestRedisCacheUnavailable(t *testing.T) {
	_, err := NewRedisCache(context.Background(), RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("NewRedisCache(unreachable) = %v, want ErrUnavailable", err)
	}
}
