package cli

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/matzehuels/lscgrid/pkg/config"
)

func TestCacheDirDefault(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CACHE_HOME is only honoured on Linux")
	}
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := cacheDir(config.Default())
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	expected := filepath.Join("/tmp/custom-cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirNilConfig(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CACHE_HOME is only honoured on Linux")
	}
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := cacheDir(nil)
	if err != nil {
		t.Fatalf("cacheDir(nil) error: %v", err)
	}
	if filepath.Base(dir) != appName {
		t.Errorf("cacheDir(nil) = %q, should end with %q", dir, appName)
	}
}

func TestCacheDirConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = "/srv/lscgrid/cache"

	dir, err := cacheDir(cfg)
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != cfg.Cache.Dir {
		t.Errorf("cacheDir() = %q, want configured %q", dir, cfg.Cache.Dir)
	}
}

func TestClearCacheDirMissing(t *testing.T) {
	n, err := clearCacheDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("clearCacheDir() error: %v", err)
	}
	if n != 0 {
		t.Errorf("clearCacheDir() = %d, want 0", n)
	}
}

func TestFormatBytes(t *testing.T) {
	for n, want := range map[int64]string{
		0:       "0 B",
		1023:    "1023 B",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	} {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
