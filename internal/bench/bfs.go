package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/memfs/pkg/logging/slogext"
)

const (
	PerfEvents         = "cycles,instructions,cache-references,cache-misses"
	DefaultPerfSettle  = time.Second
	DefaultPerfLogPath = "bfs_go_perf_output.log"
)

var ErrPerfUnavailable = errors.New("perf is not available")

// Graph is an undirected graph stored as a dense adjacency matrix.
type Graph struct {
	n   int
	adj []bool
}

// NewRandomGraph connects every pair of distinct nodes with probability
// one half.
func NewRandomGraph(n int, rng *rand.Rand) (*Graph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: nodes %d", ErrInvalidSize, n)
	}

	g := &Graph{n: n, adj: make([]bool, n*n)}
	for i := range n {
		for j := i + 1; j < n; j++ {
			if rng.IntN(2) == 1 {
				g.Connect(i, j)
			}
		}
	}

	return g, nil
}

func NewGraph(n int) *Graph {
	return &Graph{n: n, adj: make([]bool, n*n)}
}

func (g *Graph) Len() int { return g.n }

func (g *Graph) Connect(i, j int) {
	g.adj[i*g.n+j] = true
	g.adj[j*g.n+i] = true
}

func (g *Graph) Connected(i, j int) bool {
	return g.adj[i*g.n+j]
}

// BFS returns the nodes reachable from start in visiting order.
func (g *Graph) BFS(start int) []int {
	visited := make([]bool, g.n)
	queue := make([]int, 0, g.n)

	visited[start] = true
	queue = append(queue, start)

	for front := 0; front < len(queue); front++ {
		current := queue[front]
		row := g.adj[current*g.n : (current+1)*g.n]
		for i, edge := range row {
			if edge && !visited[i] {
				visited[i] = true
				queue = append(queue, i)
			}
		}
	}

	return queue
}

type ProbeOptions struct {
	Nodes int

	// Perf is the perf binary. Empty means "perf" from PATH.
	Perf string

	// LogPath receives a copy of the perf output when set.
	LogPath string

	// Settle is how long perf is given to attach before the search.
	Settle time.Duration

	Seed uint64
}

type ProbeResult struct {
	Nodes   int
	Visited int
	Elapsed time.Duration

	// PerfOutput is empty when perf could not be run.
	PerfOutput []byte
	PerfErr    error
}

// RunProbe builds a random graph and runs a BFS from node 0 while perf
// stat counts hardware events for this process. A missing or failing
// perf is recorded in the result and does not fail the probe.
func RunProbe(ctx context.Context, opts ProbeOptions) (*ProbeResult, error) {
	const op = "bench.RunProbe"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if opts.Nodes <= 0 {
		return nil, fmt.Errorf("%s: %w: nodes %d", op, ErrInvalidSize, opts.Nodes)
	}
	if opts.Perf == "" {
		opts.Perf = "perf"
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	g, err := NewRandomGraph(opts.Nodes, rand.New(rand.NewPCG(seed, seed>>1)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &ProbeResult{Nodes: opts.Nodes}

	perf, err := startPerf(ctx, opts.Perf, os.Getpid())
	if err != nil {
		logger.Warn("Running without perf", slogext.Err(err))
		res.PerfErr = err
	} else {
		select {
		case <-time.After(opts.Settle):
		case <-ctx.Done():
			perf.stop()
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}

	start := time.Now()
	res.Visited = len(g.BFS(0))
	res.Elapsed = time.Since(start)

	if perf != nil {
		res.PerfOutput, res.PerfErr = perf.stop()
		if res.PerfErr != nil {
			logger.Debug("perf exited with error", slogext.Err(res.PerfErr))
		}
		if opts.LogPath != "" {
			if err := os.WriteFile(opts.LogPath, res.PerfOutput, 0o644); err != nil {
				logger.Warn("Failed to write perf log", slog.String("path", opts.LogPath), slogext.Err(err))
			}
		}
	}

	return res, nil
}

type perfProcess struct {
	cmd *exec.Cmd
	out *bytes.Buffer
}

func startPerf(ctx context.Context, perf string, pid int) (*perfProcess, error) {
	bin, err := exec.LookPath(perf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPerfUnavailable, err)
	}

	out := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, bin, "stat", "-e", PerfEvents, "-p", strconv.Itoa(pid))
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPerfUnavailable, err)
	}

	return &perfProcess{cmd: cmd, out: out}, nil
}

// stop interrupts perf so it prints its counters, then waits for it.
func (p *perfProcess) stop() ([]byte, error) {
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return p.out.Bytes(), err
	}

	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !exitErr.Exited() {
		// terminated by the interrupt we sent
		err = nil
	}

	return p.out.Bytes(), err
}

func (r *ProbeResult) Report(w io.Writer) {
	if len(r.PerfOutput) > 0 {
		fmt.Fprintf(w, "\n[ Perf Stat Output ]\n%s", r.PerfOutput)
	} else if r.PerfErr != nil {
		fmt.Fprintf(w, "\nperf stat unavailable: %v\n", r.PerfErr)
	}

	fmt.Fprintf(w, "\nTime taken to search graph of size %d: %f seconds\n", r.Nodes, r.Elapsed.Seconds())
}
