package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/pfrederiksen/grant-triage/internal/logger"
)

// LockFile guards an output directory against concurrent runs.
const LockFile = ".grant-triage.lock"

// ErrLocked is returned when another run holds the output directory.
var ErrLocked = errors.New("output directory is locked by another run")

type staged struct {
	tmp   string
	final string
}

// Batch stages files in an output directory and publishes them together.
// Nothing under its final name changes until Commit.
type Batch struct {
	dir    string
	lock   *flock.Flock
	staged []staged
	closed bool
}

// NewBatch creates dir if needed and takes its lock, waiting until ctx is done.
func NewBatch(ctx context.Context, dir string) (*Batch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, LockFile))
	ok, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("locking output directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Batch{dir: dir, lock: lock}, nil
}

// Stage writes name into a temporary file beside its final path.
func (b *Batch) Stage(name string, write func(w io.Writer) error) error {
	if b.closed {
		return errors.New("batch already closed")
	}
	f, err := os.CreateTemp(b.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("staging %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("staging %s: %w", name, err)
	}
	b.staged = append(b.staged, staged{tmp: f.Name(), final: filepath.Join(b.dir, name)})
	return nil
}

// Commit renames every staged file into place, in staging order, and
// releases the lock. It returns the final paths.
func (b *Batch) Commit() ([]string, error) {
	if b.closed {
		return nil, errors.New("batch already closed")
	}
	defer b.release()

	paths := make([]string, 0, len(b.staged))
	for i, s := range b.staged {
		if err := os.Rename(s.tmp, s.final); err != nil {
			for _, rest := range b.staged[i:] {
				os.Remove(rest.tmp)
			}
			return paths, fmt.Errorf("publishing %s: %w", filepath.Base(s.final), err)
		}
		paths = append(paths, s.final)
	}
	logger.Debug("published outputs", logger.Fields{"dir": b.dir, "files": len(paths)})
	return paths, nil
}

// Abort discards staged files and releases the lock. Safe to call after Commit.
func (b *Batch) Abort() {
	if b.closed {
		return
	}
	for _, s := range b.staged {
		os.Remove(s.tmp)
	}
	b.release()
}

func (b *Batch) release() {
	b.closed = true
	b.staged = nil
	if err := b.lock.Unlock(); err != nil {
		logger.Warn("releasing output lock failed", logger.Fields{"dir": b.dir, "error": err.Error()})
	}
}
