package repository

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/S1riyS/os-course-lab-4/memfs/pkg/rangelock"
)

var (
	ErrOutOfSpace      = errors.New("write exceeds store capacity")
	ErrTooLarge        = errors.New("size exceeds store capacity")
	ErrNegative        = errors.New("negative offset or size")
	ErrInvalidCapacity = errors.New("capacity must be positive")
)

// FileStore is the content of one file: a buffer allocated once with a
// fixed capacity and a logical size that is always within [0, capacity].
//
// Size-changing operations (Truncate, Reset) hold mu exclusively. ReadAt
// and WriteAt share mu and lock only the byte range they touch, so writes
// to disjoint ranges run in parallel while overlapping ones are serialized.
// The logical size only grows while mu is shared, and it grows while the
// writer still holds its range, so a reader never sees a size that exposes
// bytes that are not completely written.
type FileStore struct {
	capacity int64
	zeroFill bool

	mu     sync.RWMutex
	ranges rangelock.RangeLock
	size   atomic.Int64
	mtime  atomic.Int64 // unix nanoseconds

	buf []byte
}

type StoreOption func(*FileStore)

// WithZeroFillOnExtend makes Truncate zero the bytes it exposes when the
// size grows. By default those bytes keep whatever was last written there.
func WithZeroFillOnExtend(enabled bool) StoreOption {
	return func(s *FileStore) {
		s.zeroFill = enabled
	}
}

func NewFileStore(capacity int64, opts ...StoreOption) (*FileStore, error) {
	const op = "repository.NewFileStore"

	if capacity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCapacity)
	}

	s := &FileStore{
		capacity: capacity,
		buf:      make([]byte, capacity),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.touch()

	return s, nil
}

func (s *FileStore) Capacity() int64 { return s.capacity }

func (s *FileStore) Size() int64 { return s.size.Load() }

func (s *FileStore) ModTime() time.Time { return time.Unix(0, s.mtime.Load()) }

// ReadAt copies up to len(dst) bytes starting at off, never past the
// logical size. Reading at or past the end returns 0 bytes and no error.
func (s *FileStore) ReadAt(dst []byte, off int64) (int, error) {
	const op = "repository.FileStore.ReadAt"

	if off < 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNegative)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.size.Load()
	if off >= size {
		return 0, nil
	}
	n := min(int64(len(dst)), size-off)

	unlock := s.ranges.RLock(off, off+n)
	defer unlock()

	return copy(dst[:n], s.buf[off:off+n]), nil
}

// WriteAt copies data to off. A write that would end past the capacity is
// rejected as a whole.
func (s *FileStore) WriteAt(data []byte, off int64) (int, error) {
	const op = "repository.FileStore.WriteAt"

	if off < 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrNegative)
	}
	end := off + int64(len(data))
	if end > s.capacity || end < off {
		return 0, fmt.Errorf("%s: %w", op, ErrOutOfSpace)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	unlock := s.ranges.Lock(off, end)
	defer unlock()

	copy(s.buf[off:end], data)
	for {
		cur := s.size.Load()
		if end <= cur || s.size.CompareAndSwap(cur, end) {
			break
		}
	}
	s.touch()

	return len(data), nil
}

// Truncate sets the logical size. The buffer is never reallocated.
func (s *FileStore) Truncate(size int64) error {
	const op = "repository.FileStore.Truncate"

	if size < 0 {
		return fmt.Errorf("%s: %w", op, ErrNegative)
	}
	if size > s.capacity {
		return fmt.Errorf("%s: %w", op, ErrTooLarge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old := s.size.Load(); s.zeroFill && size > old {
		clear(s.buf[old:size])
	}
	s.size.Store(size)
	s.touch()

	return nil
}

// Reset collapses the logical size to zero. The content stays in the
// buffer but becomes unreachable.
func (s *FileStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.size.Store(0)
	s.touch()
}

func (s *FileStore) touch() {
	s.mtime.Store(time.Now().UnixNano())
}
