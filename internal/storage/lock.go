package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetry = 100 * time.Millisecond

// Lock takes an exclusive advisory lock on path, creating it if needed,
// and retries until ctx is done. The returned func releases the lock.
func Lock(ctx context.Context, path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: lock dir: %w", err)
	}
	l := flock.New(path)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("storage: lock %s: %w", path, err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("storage: %s is locked by another process: %w", path, ctx.Err())
		case <-time.After(lockRetry):
		}
	}
}
