package cache

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
)

// entryMagic starts every file cache entry. An entry is the magic, the
// expiry as big-endian Unix nanoseconds (0 = never), and the
// snappy-compressed payload.
var entryMagic = []byte("LSC1")

const (
	entryHeader = 4 + 8
	entryExt    = ".entry"
)

// FileCache stores entries as files under a directory, two levels deep by
// key hash. Payloads are snappy-compressed; sigma grids compress well
// because most rows share their NaN padding.
type FileCache struct {
	dir string
	now func() time.Time
}

// DefaultDir returns the per-user cache directory, ~/.cache/lscgrid on Linux.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "lscgrid"), nil
}

// NewFileCache opens (and creates) a file cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the payload stored under key. Expired and unreadable entries
// are removed and reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	payload, expired, err := c.decode(raw)
	if err != nil || expired {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return payload, true, nil
}

func (c *FileCache) decode(raw []byte) ([]byte, bool, error) {
	if len(raw) < entryHeader || !bytes.Equal(raw[:4], entryMagic) {
		return nil, false, ErrCorrupt
	}
	if exp := int64(binary.BigEndian.Uint64(raw[4:entryHeader])); exp != 0 && c.now().UnixNano() > exp {
		return nil, true, nil
	}
	payload, err := snappy.Decode(nil, raw[entryHeader:])
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return payload, false, nil
}

// Set stores data under key. The write goes through a temporary file so
// concurrent readers never see a partial entry.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	var exp int64
	if ttl > 0 {
		exp = c.now().Add(ttl).UnixNano()
	}
	buf := make([]byte, entryHeader, entryHeader+snappy.MaxEncodedLen(len(data)))
	copy(buf, entryMagic)
	binary.BigEndian.PutUint64(buf[4:], uint64(exp))
	buf = append(buf, snappy.Encode(nil, data)...)

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Delete removes key. Missing keys are not an error.
func (c *FileCache) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (c *FileCache) entries() ([]string, error) {
	return filepath.Glob(filepath.Join(c.dir, "*", "*"+entryExt))
}

// Clear removes every entry and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	return c.removeIf(func(string) bool { return true })
}

// Prune removes expired and unreadable entries and returns how many were
// deleted.
func (c *FileCache) Prune() (int, error) {
	return c.removeIf(func(p string) bool {
		live, err := c.live(p)
		return err != nil || !live
	})
}

func (c *FileCache) removeIf(match func(path string) bool) (int, error) {
	paths, err := c.entries()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range paths {
		if !match(p) {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return n, fmt.Errorf("remove %s: %w", p, err)
		}
		n++
	}
	return n, nil
}

// Usage summarizes the entries on disk.
type Usage struct {
	Entries int
	Expired int // expired or unreadable
	Bytes   int64
}

// Usage scans the cache directory. Only entry headers are read.
func (c *FileCache) Usage() (Usage, error) {
	paths, err := c.entries()
	if err != nil {
		return Usage{}, err
	}
	var u Usage
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		u.Entries++
		u.Bytes += fi.Size()
		if live, err := c.live(p); err != nil || !live {
			u.Expired++
		}
	}
	return u, nil
}

// live reports whether the entry at path has a valid header and has not
// expired.
func (c *FileCache) live(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var hdr [entryHeader]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil || !bytes.Equal(hdr[:4], entryMagic) {
		return false, ErrCorrupt
	}
	exp := int64(binary.BigEndian.Uint64(hdr[4:]))
	return exp == 0 || c.now().UnixNano() <= exp, nil
}

// Close is a no-op.
func (c *FileCache) Close() error { return nil }

// path maps key to dir/<first two hash chars>/<rest of hash>.entry.
func (c *FileCache) path(key string) string {
	h := Hash([]byte(key))
	return filepath.Join(c.dir, h[:2], h[2:]+entryExt)
}

var _ Cache = (*FileCache)(nil)
