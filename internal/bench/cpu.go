// Package bench holds the workload harnesses used to compare the driver
// host against reference runs: a trigonometric CPU loop, buffered file
// IO, bulk memory traffic and a BFS probe measured with perf.
package bench

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	DefaultCPUIterations = 1_000_000_000

	// cancellation is polled once per checkEvery iterations
	checkEvery = 1 << 20
)

type CPUResult struct {
	Iterations int
	Sum        float64
	Elapsed    time.Duration
}

// RunCPU sums sin(x)*cos(x) for x = i*pi/180 over the given number of
// iterations.
func RunCPU(ctx context.Context, iterations int) (*CPUResult, error) {
	const op = "bench.RunCPU"

	if iterations < 0 {
		return nil, fmt.Errorf("%s: %w: iterations %d", op, ErrInvalidSize, iterations)
	}

	var sum float64
	start := time.Now()
	for i := range iterations {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		x := float64(i) * math.Pi / 180
		sum += math.Sin(x) * math.Cos(x)
	}

	return &CPUResult{Iterations: iterations, Sum: sum, Elapsed: time.Since(start)}, nil
}

func (r *CPUResult) Report(w io.Writer) {
	fmt.Fprintf(w, "CPU-intensive test: sum = %v, time elapsed %v\n", r.Sum, r.Elapsed)
}
