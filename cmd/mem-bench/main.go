package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/bench"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

func main() {
	size := pflag.IntP("bytes", "n", bench.DefaultMemoryBytes, "size of each buffer in bytes")
	runs := pflag.Int("runs", 1, "number of repetitions")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	for range *runs {
		res, err := bench.RunMemory(ctx, *size)
		if err != nil {
			logger.Error("Memory benchmark failed", slogext.Err(err))
			os.Exit(1)
		}
		res.Report(os.Stdout)
	}
}
