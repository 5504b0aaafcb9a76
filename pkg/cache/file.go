package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// fileEntry is the on-disk representation of a cached value.
// Expires and Created are unix seconds; Expires 0 means "never".
type fileEntry struct {
	Expires int64 `json:"expires"`
	Value   any   `json:"value"`
	Created int64 `json:"created"`
}

// FileTier is the durable fallback cache tier. Each key maps
// deterministically to a file under the cache directory, sharded into
// subdirectories by hash prefix to bound directory size:
//
//	<dir>/<sha256(key)[0:2]>/<sha256(key)>.cache
//
// The tier is private per instance; it exists for durability and
// failover, not cross-instance coherence. Reads that find an expired or
// malformed entry delete the file and report absent.
type FileTier struct {
	dir string
}

// NewFileTier creates a filesystem-backed tier rooted at dir, creating
// the directory if necessary.
func NewFileTier(dir string) (*FileTier, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %q: %w", dir, err)
	}
	return &FileTier{dir: dir}, nil
}

// Name identifies the tier in logs.
func (t *FileTier) Name() string { return "file" }

// path returns the sharded file path for key.
func (t *FileTier) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	hash := hex.EncodeToString(sum[:])
	return filepath.Join(t.dir, hash[:2], hash+".cache")
}

// Get returns the value for key, deleting expired or malformed entries.
func (t *FileTier) Get(ctx context.Context, key string) (Value, bool, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, false, err
	}

	path := t.path(key)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Value{}, false, nil
	}
	if err != nil {
		return Value{}, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Malformed entries are treated as absent and removed so they
		// cannot shadow future writes.
		_ = os.Remove(path)
		return Value{}, false, nil
	}

	if entry.Expires != 0 && entry.Expires <= time.Now().Unix() {
		_ = os.Remove(path)
		return Value{}, false, nil
	}

	switch v := entry.Value.(type) {
	case string:
		return Scalar(v), true, nil
	default:
		return Structured(v), true, nil
	}
}

// Set writes the value to its sharded file. A zero ttl stores the entry
// without expiry; a negative ttl stores it already expired.
func (t *FileTier) Set(ctx context.Context, key string, value Value, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().Unix()
	entry := fileEntry{
		Value:   value.Interface(),
		Created: now,
	}
	switch {
	case ttl > 0:
		entry.Expires = now + int64(ttl.Seconds())
	case ttl < 0:
		entry.Expires = now - 1
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry for %q: %w", key, err)
	}

	path := t.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache shard directory: %w", err)
	}

	// Write-then-rename so a concurrent reader never observes a partial
	// entry.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize cache file: %w", err)
	}
	return nil
}

// Delete removes the file for key. Deleting an absent key is not an error.
func (t *FileTier) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(t.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every cache file under the tier's directory.
func (t *FileTier) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return filepath.WalkDir(t.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if strings.HasSuffix(path, ".cache") {
			return os.Remove(path)
		}
		return nil
	})
}

// Sweep removes expired entries and returns the number of files
// deleted. It is invoked by the janitor on a schedule.
func (t *FileTier) Sweep(ctx context.Context) (int, error) {
	now := time.Now().Unix()
	deleted := 0

	err := filepath.WalkDir(t.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !strings.HasSuffix(path, ".cache") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		var entry fileEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			if os.Remove(path) == nil {
				deleted++
			}
			return nil
		}
		if entry.Expires != 0 && entry.Expires <= now {
			if os.Remove(path) == nil {
				deleted++
			}
		}
		return nil
	})

	return deleted, err
}
