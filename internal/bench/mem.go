package bench

import (
	"context"
	"fmt"
	"io"
	"time"
)

const DefaultMemoryBytes = 1_000_000_000

type MemoryResult struct {
	Bytes         int
	InitElapsed   time.Duration
	CopyElapsed   time.Duration
	ModifyElapsed time.Duration
}

// RunMemory allocates two buffers of n bytes, fills the first with i%256,
// copies it into the second and increments every byte of the copy.
func RunMemory(ctx context.Context, n int) (*MemoryResult, error) {
	res, _, err := runMemory(ctx, n)
	return res, err
}

func runMemory(ctx context.Context, n int) (*MemoryResult, []byte, error) {
	const op = "bench.RunMemory"

	if n < 0 {
		return nil, nil, fmt.Errorf("%s: %w: bytes %d", op, ErrInvalidSize, n)
	}

	a := make([]byte, n)
	b := make([]byte, n)
	res := &MemoryResult{Bytes: n}

	start := time.Now()
	for i := range a {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		a[i] = byte(i % 256)
	}
	res.InitElapsed = time.Since(start)

	start = time.Now()
	copy(b, a)
	res.CopyElapsed = time.Since(start)

	start = time.Now()
	for i := range b {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		b[i]++
	}
	res.ModifyElapsed = time.Since(start)

	return res, b, nil
}

func (r *MemoryResult) Report(w io.Writer) {
	fmt.Fprintf(w, "Initialization time: %v\n", r.InitElapsed)
	fmt.Fprintf(w, "Memory copy time: %v\n", r.CopyElapsed)
	fmt.Fprintf(w, "Memory modification time: %v\n", r.ModifyElapsed)
}
