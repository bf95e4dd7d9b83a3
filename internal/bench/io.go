package bench

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	DefaultIOLines = 100_000_000
	DefaultIOPath  = "io_test.txt"
	SampleLine     = "This is a sample line for IO-intensive testing.\n"
)

type IOResult struct {
	Lines        int
	BytesRead    int64
	WriteElapsed time.Duration
	ReadElapsed  time.Duration
}

// RunIO writes lines copies of SampleLine to path through a buffered
// writer and then reads the whole file back.
func RunIO(ctx context.Context, path string, lines int) (*IOResult, error) {
	const op = "bench.RunIO"

	if lines < 0 {
		return nil, fmt.Errorf("%s: %w: lines %d", op, ErrInvalidSize, lines)
	}

	res := &IOResult{Lines: lines}

	start := time.Now()
	if err := writeLines(ctx, path, lines); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res.WriteElapsed = time.Since(start)

	start = time.Now()
	n, err := readAll(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res.ReadElapsed = time.Since(start)
	res.BytesRead = n

	return res, nil
}

func writeLines(ctx context.Context, path string, lines int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := range lines {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(SampleLine); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return f.Close()
}

func readAll(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	contents, err := io.ReadAll(bufio.NewReader(f))
	if err != nil {
		return 0, err
	}

	return int64(len(contents)), nil
}

func (r *IOResult) Report(w io.Writer) {
	fmt.Fprintf(w, "Writing %d lines took: %v\n", r.Lines, r.WriteElapsed)
	fmt.Fprintf(w, "Reading file took: %v\n", r.ReadElapsed)
}
