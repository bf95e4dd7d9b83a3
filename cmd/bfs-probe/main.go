package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/S1riyS/os-course-lab-4/memfs/internal/bench"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

func main() {
	perf := pflag.String("perf", "perf", "perf binary")
	logPath := pflag.String("log", bench.DefaultPerfLogPath, "file receiving a copy of the perf output (empty to disable)")
	settle := pflag.Duration("settle", bench.DefaultPerfSettle, "time given to perf to attach before the search")
	seed := pflag.Uint64("seed", 0, "graph seed (0 picks one from the clock)")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <number_of_nodes>\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(1)
	}

	nodes, err := strconv.Atoi(pflag.Arg(0))
	if err != nil || nodes <= 0 {
		fmt.Println("Invalid number of nodes. Please enter a positive integer.")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logging.MakeContextWithLogger(ctx, logger)

	res, err := bench.RunProbe(ctx, bench.ProbeOptions{
		Nodes:   nodes,
		Perf:    *perf,
		LogPath: *logPath,
		Settle:  *settle,
		Seed:    *seed,
	})
	if err != nil {
		logger.Error("BFS probe failed", slogext.Err(err))
		os.Exit(1)
	}

	res.Report(os.Stdout)
}
